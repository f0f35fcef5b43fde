package models

type GameTemplate struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Name string `gorm:"size:100;not null" json:"name"`
}

const FlashCardSlug = "flash-card"
