package main

import (
	"log"
	"net/http"
	"time"

	"github.com/Ovtnc/RowCoach/internal/config"
	"github.com/Ovtnc/RowCoach/internal/database"
	"github.com/Ovtnc/RowCoach/internal/handlers"
	"github.com/Ovtnc/RowCoach/internal/middleware"
	"github.com/Ovtnc/RowCoach/internal/services"
	"github.com/Ovtnc/RowCoach/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	multiRowService := services.NewMultiRowService(db)
	tokenService := services.NewTokenService(cfg.JWTSecret)

	sweepInterval := cfg.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = 10
	}
	sweeper := services.NewExpirySweeper(db, time.Duration(sweepInterval)*time.Minute)
	sweeper.Start()
	defer sweeper.Stop()

	sessionHandler := handlers.NewSessionHandler(multiRowService, tokenService)
	wsHandler := handlers.NewMultiRowWSHandler(multiRowService, tokenService, hub)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().Format(time.RFC3339)})
	})

	r.GET("/ws/multi-row", wsHandler.HandleMultiRow)

	api := r.Group("/api/v1")
	{
		multiRow := api.Group("/multi-row")
		multiRow.Use(middleware.SessionAuth(tokenService))
		{
			multiRow.POST("/sessions", sessionHandler.CreateSession)
			multiRow.POST("/sessions/join", sessionHandler.JoinSession)
			multiRow.GET("/sessions/:code", sessionHandler.GetSession)
			multiRow.PUT("/sessions/:code/workout-type", sessionHandler.UpdateWorkoutType)
			multiRow.PUT("/sessions/:code/interval-plan", sessionHandler.UpdateIntervalPlan)
			multiRow.POST("/sessions/:code/start", sessionHandler.StartSession)
			multiRow.PUT("/sessions/:code/stats", sessionHandler.UpdateStats)
			multiRow.POST("/sessions/:code/finish", sessionHandler.FinishSession)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
