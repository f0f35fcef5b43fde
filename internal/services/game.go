package services

import (
	"fmt"
	"strings"

	"flashcard-game-backend/internal/models"

	"gorm.io/gorm"
)

// GameService covers the platform side of the games table: creating the game
// shell a game-type module later fills in, and listing a creator's games with
// the denormalized previews the modules keep in sync.
type GameService struct {
	db *gorm.DB
}

func NewGameService(db *gorm.DB) *GameService {
	return &GameService{db: db}
}

func (s *GameService) CreateGame(creatorID uint, name, description, templateSlug string) (*models.Game, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxName {
		return nil, fmt.Errorf("%w: name", ErrValidation)
	}
	if len(description) > maxDesc {
		return nil, fmt.Errorf("%w: description", ErrValidation)
	}

	var tpl models.GameTemplate
	if err := s.db.Where("slug = ?", templateSlug).First(&tpl).Error; err != nil {
		return nil, fmt.Errorf("%w: game template", ErrNotFound)
	}

	game := models.Game{
		CreatorID:   creatorID,
		TemplateID:  tpl.ID,
		Name:        name,
		Description: strings.TrimSpace(description),
	}
	if err := s.db.Create(&game).Error; err != nil {
		return nil, err
	}

	game.Template = tpl
	return &game, nil
}

func (s *GameService) GetGamesByCreator(creatorID uint) ([]models.Game, error) {
	var games []models.Game
	err := s.db.Where("creator_id = ?", creatorID).
		Preload("Template").
		Order("created_at DESC").
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

func (s *GameService) GetGameByID(gameID, creatorID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.Where("id = ? AND creator_id = ?", gameID, creatorID).
		Preload("Template").
		First(&game).Error
	if err != nil {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	return &game, nil
}
