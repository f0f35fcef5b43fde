package database

import (
	"fmt"
	"log"

	"flashcard-game-backend/internal/config"
	"flashcard-game-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	log.Println("database connected")
	return db
}

func AutoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.User{},
		&models.GameTemplate{},
		&models.Game{},
		&models.FlashCard{},
		&models.FlashCardItem{},
	)
	if err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	SeedTemplates(db)
	log.Println("database migrated")
}

// SeedTemplates makes sure the game-type templates this backend serves exist.
func SeedTemplates(db *gorm.DB) {
	templates := []models.GameTemplate{
		{Slug: models.FlashCardSlug, Name: "Flash Card"},
	}
	for _, tpl := range templates {
		if err := db.Where("slug = ?", tpl.Slug).FirstOrCreate(&tpl).Error; err != nil {
			log.Fatalf("failed to seed template %s: %v", tpl.Slug, err)
		}
	}
}
