package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"flashcard-game-backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxCards    = 200
	maxCardText = 2000
	maxName     = 128
	maxDesc     = 256
)

// FileStore is the storage capability flash-card uploads go through. Uploads
// always happen before any database write so a storage failure aborts cleanly.
type FileStore interface {
	Upload(prefix, filename string, src io.Reader) (string, error)
	Remove(path string) error
}

// FileUpload is one file submitted with a create/update request.
type FileUpload struct {
	Filename string
	Content  io.Reader
}

// CardInput is the card DTO shared by create and update. Images are referenced
// by index into the files_to_upload array, never by path.
type CardInput struct {
	QuestionType            string  `json:"question_type"`
	QuestionText            *string `json:"question_text"`
	QuestionImageArrayIndex *int    `json:"question_image_array_index"`
	BackType                string  `json:"back_type"`
	AnswerText              string  `json:"answer_text"`
	BackImageArrayIndex     *int    `json:"back_image_array_index"`
	IsCorrect               bool    `json:"is_correct"`
}

type CreateFlashCardInput struct {
	Name                 string
	Description          *string
	Settings             datatypes.JSON
	IsPublishImmediately bool
	Cards                []CardInput
	Thumbnail            *FileUpload
	Files                []FileUpload
}

// UpdateFlashCardInput fields are pointers so "absent" and "zero" stay
// distinguishable. A nil Cards slice leaves the item set untouched.
type UpdateFlashCardInput struct {
	Name        *string
	Description *string
	Settings    datatypes.JSON
	IsPublish   *bool
	Cards       []CardInput
	Thumbnail   *FileUpload
	Files       []FileUpload
}

type FlashCardRef struct {
	ID     uint `json:"id"`
	GameID uint `json:"game_id,omitempty"`
}

// SummaryItem is the answer-free projection of one card embedded in the parent
// game record. It must never carry answer_text or is_correct.
type SummaryItem struct {
	QuestionType  string  `json:"question_type"`
	QuestionText  *string `json:"question_text"`
	QuestionImage *string `json:"question_image"`
	BackType      string  `json:"back_type"`
}

type GameSummary struct {
	Type     string          `json:"type"`
	Settings json.RawMessage `json:"settings"`
	Items    []SummaryItem   `json:"items"`
}

type FlashCardService struct {
	db    *gorm.DB
	files FileStore
}

func NewFlashCardService(db *gorm.DB, files FileStore) *FlashCardService {
	return &FlashCardService{db: db, files: files}
}

func uploadPrefix(gameID uint) string {
	return fmt.Sprintf("game/flash-card/%d", gameID)
}

// authorize is the single ownership rule for getDetail/update/delete: the
// admin role bypasses it, everyone else must own the game.
func authorize(creatorID, userID uint, role string) bool {
	return role == models.RoleSuperAdmin || creatorID == userID
}

func (s *FlashCardService) Create(gameID, userID uint, in CreateFlashCardInput) (*FlashCardRef, error) {
	game, err := s.loadGame(gameID)
	if err != nil {
		return nil, err
	}
	if game.CreatorID != userID {
		return nil, fmt.Errorf("%w: user cannot create flash-card for this game", ErrForbidden)
	}

	var existing models.FlashCard
	if err := s.db.Select("id").Where("game_id = ?", gameID).First(&existing).Error; err == nil {
		return nil, fmt.Errorf("%w: flash card already exists for this game", ErrConflict)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxName {
		return nil, fmt.Errorf("%w: name", ErrValidation)
	}
	description := ""
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
		if len(description) > maxDesc {
			return nil, fmt.Errorf("%w: description", ErrValidation)
		}
	}
	if err := validateCards(in.Cards); err != nil {
		return nil, err
	}

	prefix := uploadPrefix(gameID)
	thumbnailPath, err := s.uploadThumbnail(prefix, in.Thumbnail)
	if err != nil {
		return nil, err
	}
	imagePaths, err := s.uploadFiles(prefix, in.Files)
	if err != nil {
		return nil, err
	}

	items := normalizeCards(in.Cards, imagePaths)
	summary, err := marshalSummary(buildSummary(in.Settings, items))
	if err != nil {
		return nil, err
	}

	flash := models.FlashCard{
		GameID:      gameID,
		Title:       name,
		Description: description,
		Thumbnail:   thumbnailPath,
		Settings:    in.Settings,
		IsPublished: in.IsPublishImmediately,
		Items:       items,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&flash).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"name":         name,
			"is_published": in.IsPublishImmediately,
			"game_summary": summary,
		}
		if in.Description != nil {
			updates["description"] = description
		}
		if thumbnailPath != nil {
			updates["thumbnail_image"] = *thumbnailPath
		}
		return tx.Model(&models.Game{}).Where("id = ?", gameID).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return &FlashCardRef{ID: flash.ID, GameID: gameID}, nil
}

func (s *FlashCardService) GetDetail(gameID, userID uint, role string) (*models.FlashCard, error) {
	flash, err := s.loadFlashCard(gameID)
	if err != nil {
		return nil, err
	}
	if !authorize(flash.Game.CreatorID, userID, role) {
		return nil, fmt.Errorf("%w: user cannot access this flash-card", ErrForbidden)
	}
	return flash, nil
}

func (s *FlashCardService) Update(gameID, userID uint, role string, in UpdateFlashCardInput) (*FlashCardRef, error) {
	flash, err := s.loadFlashCard(gameID)
	if err != nil {
		return nil, err
	}
	if !authorize(flash.Game.CreatorID, userID, role) {
		return nil, fmt.Errorf("%w: user cannot edit this flash-card", ErrForbidden)
	}

	var name, description string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxName {
			return nil, fmt.Errorf("%w: name", ErrValidation)
		}
	}
	if in.Description != nil {
		description = strings.TrimSpace(*in.Description)
		if len(description) > maxDesc {
			return nil, fmt.Errorf("%w: description", ErrValidation)
		}
	}
	if in.Cards != nil {
		if err := validateCards(in.Cards); err != nil {
			return nil, err
		}
	}

	prefix := uploadPrefix(gameID)
	thumbnailPath := flash.Thumbnail
	if in.Thumbnail != nil {
		thumbnailPath, err = s.uploadThumbnail(prefix, in.Thumbnail)
		if err != nil {
			return nil, err
		}
	}
	imagePaths, err := s.uploadFiles(prefix, in.Files)
	if err != nil {
		return nil, err
	}

	var items []models.FlashCardItem
	if in.Cards != nil {
		items = normalizeCards(in.Cards, imagePaths)
	}

	summary, err := mergeSummary(flash.Game.GameSummary, in.Settings, items, in.Cards != nil)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		flashUpdates := map[string]interface{}{
			"thumbnail": thumbnailPath,
		}
		if in.Name != nil {
			flashUpdates["title"] = name
		}
		if in.Description != nil {
			flashUpdates["description"] = description
		}
		if in.IsPublish != nil {
			flashUpdates["is_published"] = *in.IsPublish
		}
		if len(in.Settings) > 0 {
			flashUpdates["settings"] = in.Settings
		}
		if err := tx.Model(&models.FlashCard{}).Where("id = ?", flash.ID).Updates(flashUpdates).Error; err != nil {
			return err
		}

		if in.Cards != nil {
			if err := tx.Where("flash_card_id = ?", flash.ID).Delete(&models.FlashCardItem{}).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].FlashCardID = flash.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		gameUpdates := map[string]interface{}{
			"game_summary": summary,
		}
		if in.Name != nil {
			gameUpdates["name"] = name
		}
		if in.Description != nil {
			gameUpdates["description"] = description
		}
		if in.IsPublish != nil {
			gameUpdates["is_published"] = *in.IsPublish
		}
		if thumbnailPath != nil {
			gameUpdates["thumbnail_image"] = *thumbnailPath
		}
		return tx.Model(&models.Game{}).Where("id = ?", gameID).Updates(gameUpdates).Error
	})
	if err != nil {
		return nil, err
	}

	return &FlashCardRef{ID: flash.ID}, nil
}

func (s *FlashCardService) Delete(gameID, userID uint, role string) (*FlashCardRef, error) {
	flash, err := s.loadFlashCard(gameID)
	if err != nil {
		return nil, err
	}
	if !authorize(flash.Game.CreatorID, userID, role) {
		return nil, fmt.Errorf("%w: user cannot delete this flash-card", ErrForbidden)
	}

	// Best-effort: a dangling file is preferable to a dangling row.
	if flash.Thumbnail != nil {
		if err := s.files.Remove(*flash.Thumbnail); err != nil {
			log.Printf("failed to remove thumbnail %s: %v", *flash.Thumbnail, err)
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("flash_card_id = ?", flash.ID).Delete(&models.FlashCardItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.FlashCard{}, flash.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return &FlashCardRef{ID: flash.ID}, nil
}

// IncrementPlay bumps the play counters on the flash card, its parent game
// and, when the caller is authenticated, the user's lifetime counter, as one
// transaction.
func (s *FlashCardService) IncrementPlay(gameID uint, userID *uint) error {
	var flash models.FlashCard
	if err := s.db.Select("id", "is_published").Where("game_id = ?", gameID).First(&flash).Error; err != nil {
		return fmt.Errorf("%w: flash card", ErrNotFound)
	}
	if !flash.IsPublished {
		return fmt.Errorf("%w: flash card", ErrNotFound)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FlashCard{}).Where("id = ?", flash.ID).
			UpdateColumn("total_played", gorm.Expr("total_played + 1")).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Game{}).Where("id = ?", gameID).
			UpdateColumn("total_played", gorm.Expr("total_played + 1")).Error; err != nil {
			return err
		}
		if userID != nil {
			if err := tx.Model(&models.User{}).Where("id = ?", *userID).
				UpdateColumn("total_game_played", gorm.Expr("total_game_played + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FlashCardService) loadGame(gameID uint) (*models.Game, error) {
	var game models.Game
	err := s.db.Preload("Template").First(&game, gameID).Error
	if err != nil || game.Template.Slug != models.FlashCardSlug {
		return nil, fmt.Errorf("%w: game", ErrNotFound)
	}
	return &game, nil
}

func (s *FlashCardService) loadFlashCard(gameID uint) (*models.FlashCard, error) {
	var flash models.FlashCard
	err := s.db.Where("game_id = ?", gameID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Game.Template").
		First(&flash).Error
	if err != nil || flash.Game.Template.Slug != models.FlashCardSlug {
		return nil, fmt.Errorf("%w: flash card", ErrNotFound)
	}
	return &flash, nil
}

func (s *FlashCardService) uploadThumbnail(prefix string, thumbnail *FileUpload) (*string, error) {
	if thumbnail == nil {
		return nil, nil
	}
	path, err := s.files.Upload(prefix, thumbnail.Filename, thumbnail.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %v", ErrUpload, err)
	}
	return &path, nil
}

// uploadFiles stores the files_to_upload array in submission order; cards
// reference the resulting paths by array index.
func (s *FlashCardService) uploadFiles(prefix string, files []FileUpload) ([]string, error) {
	var paths []string
	for i, f := range files {
		path, err := s.files.Upload(prefix, f.Filename, f.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: files_to_upload[%d]: %v", ErrUpload, i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func validateCards(cards []CardInput) error {
	if len(cards) == 0 || len(cards) > maxCards {
		return fmt.Errorf("%w: cards must contain between 1 and %d entries", ErrValidation, maxCards)
	}
	for i := range cards {
		card := &cards[i]
		if card.QuestionType != models.CardSideText && card.QuestionType != models.CardSideImage {
			return fmt.Errorf("%w: cards[%d].question_type", ErrValidation, i)
		}
		if card.BackType != models.CardSideText && card.BackType != models.CardSideImage {
			return fmt.Errorf("%w: cards[%d].back_type", ErrValidation, i)
		}
		if card.QuestionText != nil {
			trimmed := strings.TrimSpace(*card.QuestionText)
			if len(trimmed) > maxCardText {
				return fmt.Errorf("%w: cards[%d].question_text", ErrValidation, i)
			}
			*card.QuestionText = trimmed
		}
		card.AnswerText = strings.TrimSpace(card.AnswerText)
		if card.AnswerText == "" || len(card.AnswerText) > maxCardText {
			return fmt.Errorf("%w: cards[%d].answer_text", ErrValidation, i)
		}
	}
	return nil
}

// normalizeCards turns card DTOs into item rows. Position equals the array
// index; image indices resolve against the uploaded paths or stay null.
func normalizeCards(cards []CardInput, imagePaths []string) []models.FlashCardItem {
	items := make([]models.FlashCardItem, len(cards))
	for i, card := range cards {
		items[i] = models.FlashCardItem{
			Position:      i,
			QuestionType:  card.QuestionType,
			QuestionText:  card.QuestionText,
			QuestionImage: resolveImage(card.QuestionImageArrayIndex, imagePaths),
			BackType:      card.BackType,
			AnswerText:    card.AnswerText,
			BackImage:     resolveImage(card.BackImageArrayIndex, imagePaths),
			IsCorrect:     card.IsCorrect,
		}
	}
	return items
}

func resolveImage(index *int, imagePaths []string) *string {
	if index == nil || *index < 0 || *index >= len(imagePaths) {
		return nil
	}
	path := imagePaths[*index]
	return &path
}

// buildSummary projects items into the answer-free preview document embedded
// in the parent game record.
func buildSummary(settings datatypes.JSON, items []models.FlashCardItem) GameSummary {
	sum := GameSummary{
		Type:     models.FlashCardSlug,
		Settings: json.RawMessage("null"),
		Items:    summaryItems(items),
	}
	if len(settings) > 0 {
		sum.Settings = json.RawMessage(settings)
	}
	return sum
}

func summaryItems(items []models.FlashCardItem) []SummaryItem {
	out := make([]SummaryItem, len(items))
	for i, it := range items {
		out[i] = SummaryItem{
			QuestionType:  it.QuestionType,
			QuestionText:  it.QuestionText,
			QuestionImage: it.QuestionImage,
			BackType:      it.BackType,
		}
	}
	return out
}

// mergeSummary refreshes the stored preview document in place: items only when
// the request replaced the card set, settings only when the request supplied
// them. Everything else survives untouched.
func mergeSummary(current datatypes.JSON, settings datatypes.JSON, items []models.FlashCardItem, replaceItems bool) (datatypes.JSON, error) {
	var sum GameSummary
	if len(current) > 0 {
		if err := json.Unmarshal(current, &sum); err != nil {
			return nil, fmt.Errorf("decode game summary: %w", err)
		}
	}

	sum.Type = models.FlashCardSlug
	if len(sum.Settings) == 0 {
		sum.Settings = json.RawMessage("null")
	}
	if len(settings) > 0 {
		sum.Settings = json.RawMessage(settings)
	}
	if replaceItems {
		sum.Items = summaryItems(items)
	}
	if sum.Items == nil {
		sum.Items = []SummaryItem{}
	}

	return marshalSummary(sum)
}

func marshalSummary(sum GameSummary) (datatypes.JSON, error) {
	raw, err := json.Marshal(sum)
	if err != nil {
		return nil, fmt.Errorf("encode game summary: %w", err)
	}
	return datatypes.JSON(raw), nil
}
