package models

import (
	"time"

	"gorm.io/datatypes"
)

// Game is the platform-level aggregate. Every playable game regardless of
// template has one row here; game-type modules keep GameSummary in sync with
// their own detail tables so listing endpoints never join into them.
type Game struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatorID      uint           `gorm:"not null;index" json:"creator_id"`
	Creator        User           `gorm:"foreignKey:CreatorID;constraint:OnDelete:CASCADE" json:"-"`
	TemplateID     uint           `gorm:"not null;index" json:"template_id"`
	Template       GameTemplate   `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Name           string         `gorm:"size:128;not null" json:"name"`
	Description    string         `gorm:"size:256" json:"description"`
	ThumbnailImage *string        `gorm:"size:500" json:"thumbnail_image"`
	IsPublished    bool           `gorm:"not null;default:false" json:"is_published"`
	TotalPlayed    int            `gorm:"not null;default:0" json:"total_played"`
	GameSummary    datatypes.JSON `json:"game_summary,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
