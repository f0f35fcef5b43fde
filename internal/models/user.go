package models

import "time"

type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Username        string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash    string    `gorm:"size:255;not null" json:"-"`
	Role            string    `gorm:"size:20;not null;default:'CREATOR'" json:"role"`
	TotalGamePlayed int       `gorm:"not null;default:0" json:"total_game_played"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	RoleCreator    = "CREATOR"
	RoleSuperAdmin = "SUPER_ADMIN"
)
