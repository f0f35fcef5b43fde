package main

import (
	"log"

	"flashcard-game-backend/internal/config"
	"flashcard-game-backend/internal/database"
	"flashcard-game-backend/internal/handlers"
	"flashcard-game-backend/internal/middleware"
	"flashcard-game-backend/internal/services"
	"flashcard-game-backend/internal/storage"

	_ "flashcard-game-backend/docs"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Flash Card Game API
// @version         1.0
// @description     API for authoring and playing flash-card games on the game platform
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	fileStore := storage.NewFileStore(cfg.UploadDir)

	authService := services.NewAuthService(db, cfg.JWTSecret)
	gameService := services.NewGameService(db)
	flashCardService := services.NewFlashCardService(db, fileStore)

	authHandler := handlers.NewAuthHandler(authService)
	gameHandler := handlers.NewGameHandler(gameService)
	flashCardHandler := handlers.NewFlashCardHandler(flashCardService)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.Static("/uploads", cfg.UploadDir)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/profile", middleware.JWTAuth(authService), authHandler.GetProfile)
		}

		games := api.Group("/games")
		games.Use(middleware.JWTAuth(authService))
		{
			games.GET("", gameHandler.ListGames)
			games.POST("", gameHandler.CreateGame)
		}

		flashCards := api.Group("/flash-cards")
		{
			flashCards.POST("/:game_id", middleware.JWTAuth(authService), flashCardHandler.Create)
			flashCards.GET("/:game_id", middleware.JWTAuth(authService), flashCardHandler.GetDetail)
			flashCards.PATCH("/:game_id", middleware.JWTAuth(authService), flashCardHandler.Update)
			flashCards.DELETE("/:game_id", middleware.JWTAuth(authService), flashCardHandler.Delete)
			flashCards.POST("/:game_id/play", middleware.OptionalAuth(authService), flashCardHandler.Play)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
