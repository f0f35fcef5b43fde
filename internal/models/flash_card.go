package models

import (
	"time"

	"gorm.io/datatypes"
)

type FlashCard struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	GameID      uint            `gorm:"uniqueIndex;not null" json:"game_id"`
	Game        Game            `gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE" json:"-"`
	Title       string          `gorm:"size:128;not null" json:"title"`
	Description string          `gorm:"size:256" json:"description"`
	Thumbnail   *string         `gorm:"size:500" json:"thumbnail"`
	Settings    datatypes.JSON  `json:"settings,omitempty"`
	IsPublished bool            `gorm:"not null;default:false" json:"is_published"`
	TotalPlayed int             `gorm:"not null;default:0" json:"total_played"`
	Items       []FlashCardItem `gorm:"foreignKey:FlashCardID" json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FlashCardItem position values are contiguous from 0 in submission order;
// updates replace the whole set, never merge.
type FlashCardItem struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	FlashCardID   uint    `gorm:"not null;index" json:"flash_card_id"`
	Position      int     `gorm:"not null" json:"position"`
	QuestionType  string  `gorm:"size:10;not null" json:"question_type"`
	QuestionText  *string `gorm:"size:2000" json:"question_text"`
	QuestionImage *string `gorm:"size:500" json:"question_image"`
	BackType      string  `gorm:"size:10;not null" json:"back_type"`
	AnswerText    string  `gorm:"size:2000;not null" json:"answer_text"`
	BackImage     *string `gorm:"size:500" json:"back_image"`
	IsCorrect     bool    `gorm:"not null;default:false" json:"is_correct"`
}

const (
	CardSideText  = "text"
	CardSideImage = "image"
)
