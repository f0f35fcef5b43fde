package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"flashcard-game-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

const (
	maxUploadSize  = 2 << 20
	maxUploadFiles = 50
)

type FlashCardHandler struct {
	flashCardService *services.FlashCardService
}

func NewFlashCardHandler(flashCardService *services.FlashCardService) *FlashCardHandler {
	return &FlashCardHandler{flashCardService: flashCardService}
}

// Create godoc
// @Summary      Create a flash card for a game
// @Description  Multipart form: name, description, settings (JSON object string), is_publish_immediately, cards (JSON array string), thumbnail file, files_to_upload files
// @Tags         flash-cards
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      201 {object} services.FlashCardRef
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/flash-cards/{game_id} [post]
func (h *FlashCardHandler) Create(c *gin.Context) {
	userID := c.GetUint("user_id")
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	cardsRaw := c.PostForm("cards")
	if cardsRaw == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cards is required"})
		return
	}
	var cards []services.CardInput
	if err := json.Unmarshal([]byte(cardsRaw), &cards); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cards must be a JSON array"})
		return
	}

	settings, err := parseSettings(c.PostForm("settings"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	isPublish := false
	if raw := c.PostForm("is_publish_immediately"); raw != "" {
		isPublish, err = strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "is_publish_immediately must be a boolean"})
			return
		}
	}

	thumbnail, files, cleanup, err := openUploads(c)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	in := services.CreateFlashCardInput{
		Name:                 c.PostForm("name"),
		Settings:             settings,
		IsPublishImmediately: isPublish,
		Cards:                cards,
		Thumbnail:            thumbnail,
		Files:                files,
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}

	ref, err := h.flashCardService.Create(gameID, userID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ref)
}

// GetDetail godoc
// @Summary      Get flash card detail
// @Description  Full detail including answers; owner or admin only
// @Tags         flash-cards
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} FlashCard
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/flash-cards/{game_id} [get]
func (h *FlashCardHandler) GetDetail(c *gin.Context) {
	userID := c.GetUint("user_id")
	role := c.GetString("user_role")
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	flash, err := h.flashCardService.GetDetail(gameID, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, flash)
}

// Update godoc
// @Summary      Update a flash card
// @Description  Partial multipart update; supplying cards replaces the whole item set
// @Tags         flash-cards
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} services.FlashCardRef
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/flash-cards/{game_id} [patch]
func (h *FlashCardHandler) Update(c *gin.Context) {
	userID := c.GetUint("user_id")
	role := c.GetString("user_role")
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	var in services.UpdateFlashCardInput
	if v, ok := c.GetPostForm("name"); ok {
		in.Name = &v
	}
	if v, ok := c.GetPostForm("description"); ok {
		in.Description = &v
	}
	if raw, ok := c.GetPostForm("is_publish"); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "is_publish must be a boolean"})
			return
		}
		in.IsPublish = &b
	}

	settings, err := parseSettings(c.PostForm("settings"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	in.Settings = settings

	if raw, ok := c.GetPostForm("cards"); ok {
		var cards []services.CardInput
		if err := json.Unmarshal([]byte(raw), &cards); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cards must be a JSON array"})
			return
		}
		if cards == nil {
			cards = []services.CardInput{}
		}
		in.Cards = cards
	}

	thumbnail, files, cleanup, err := openUploads(c)
	defer cleanup()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	in.Thumbnail = thumbnail
	in.Files = files

	ref, err := h.flashCardService.Update(gameID, userID, role, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ref)
}

// Delete godoc
// @Summary      Delete a flash card
// @Description  Removes the flash card, its items and its thumbnail file; the parent game stays
// @Tags         flash-cards
// @Produce      json
// @Security     BearerAuth
// @Param        game_id path int true "Game ID"
// @Success      200 {object} services.FlashCardRef
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/flash-cards/{game_id} [delete]
func (h *FlashCardHandler) Delete(c *gin.Context) {
	userID := c.GetUint("user_id")
	role := c.GetString("user_role")
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	ref, err := h.flashCardService.Delete(gameID, userID, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ref)
}

// Play godoc
// @Summary      Record a play
// @Description  Increments play counters; works anonymously, counts against the user when authenticated
// @Tags         flash-cards
// @Produce      json
// @Param        game_id path int true "Game ID"
// @Success      200 {object} MessageResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/flash-cards/{game_id}/play [post]
func (h *FlashCardHandler) Play(c *gin.Context) {
	gameID, ok := parseGameID(c)
	if !ok {
		return
	}

	var userID *uint
	if v, exists := c.Get("user_id"); exists {
		if id, ok := v.(uint); ok {
			userID = &id
		}
	}

	if err := h.flashCardService.IncrementPlay(gameID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "play count updated"})
}

// parseSettings accepts an empty field (absent), a JSON object or JSON null.
func parseSettings(raw string) (datatypes.JSON, error) {
	if raw == "" {
		return nil, nil
	}
	if raw == "null" {
		return datatypes.JSON("null"), nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("settings must be a JSON object")
	}
	return datatypes.JSON(raw), nil
}

// openUploads pulls the optional thumbnail and files_to_upload parts out of
// the multipart form. The caller must invoke cleanup after the service call.
func openUploads(c *gin.Context) (*services.FileUpload, []services.FileUpload, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, cl := range closers {
			cl.Close()
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		// no multipart body means no files were submitted
		return nil, nil, cleanup, nil
	}

	var thumbnail *services.FileUpload
	if headers := form.File["thumbnail"]; len(headers) > 0 {
		fh := headers[0]
		if fh.Size > maxUploadSize {
			return nil, nil, cleanup, fmt.Errorf("thumbnail exceeds %d bytes", maxUploadSize)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("failed to read thumbnail")
		}
		closers = append(closers, f)
		thumbnail = &services.FileUpload{Filename: fh.Filename, Content: f}
	}

	headers := form.File["files_to_upload"]
	if len(headers) > maxUploadFiles {
		return nil, nil, cleanup, fmt.Errorf("files_to_upload accepts at most %d files", maxUploadFiles)
	}

	var files []services.FileUpload
	for i, fh := range headers {
		if fh.Size > maxUploadSize {
			return nil, nil, cleanup, fmt.Errorf("files_to_upload[%d] exceeds %d bytes", i, maxUploadSize)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("failed to read files_to_upload[%d]", i)
		}
		closers = append(closers, f)
		files = append(files, services.FileUpload{Filename: fh.Filename, Content: f})
	}

	return thumbnail, files, cleanup, nil
}
