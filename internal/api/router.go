package api

import (
	"loyaltypoints-backend/config"
	"loyaltypoints-backend/internal/api/v1/auth"
	"loyaltypoints-backend/internal/api/v1/events"
	"loyaltypoints-backend/internal/api/v1/promotions"
	"loyaltypoints-backend/internal/api/v1/transactions"
	"loyaltypoints-backend/internal/api/v1/users"
	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	_, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}

	err = database.ConnectRedis(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8080"}, // Allow frontend origin
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	}))

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1, cfg)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			users.RegisterRoutes(authorized)
			transactions.RegisterRoutes(authorized)
			promotions.RegisterRoutes(authorized)
			events.RegisterRoutes(authorized)
		}
	}

	return router, nil
}
