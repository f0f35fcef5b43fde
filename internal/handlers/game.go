package handlers

import (
	"net/http"

	"flashcard-game-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

type CreateGameRequest struct {
	Name         string `json:"name" binding:"required,max=128" example:"English Vocabulary Level 1"`
	Description  string `json:"description" binding:"max=256" example:"Learn basic English vocabulary"`
	TemplateSlug string `json:"template_slug" binding:"required" example:"flash-card"`
}

// CreateGame godoc
// @Summary      Create a game shell
// @Description  Create an empty game row for a template; the game-type module fills it in afterwards
// @Tags         games
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateGameRequest true "Game data"
// @Success      201 {object} Game
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/games [post]
func (h *GameHandler) CreateGame(c *gin.Context) {
	userID := c.GetUint("user_id")

	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	game, err := h.gameService.CreateGame(userID, req.Name, req.Description, req.TemplateSlug)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

// ListGames godoc
// @Summary      List my games
// @Description  List the caller's games with their denormalized previews
// @Tags         games
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Game
// @Failure      401 {object} ErrorResponse
// @Router       /api/v1/games [get]
func (h *GameHandler) ListGames(c *gin.Context) {
	userID := c.GetUint("user_id")

	games, err := h.gameService.GetGamesByCreator(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, games)
}
