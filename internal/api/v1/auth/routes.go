package auth

import (
	"time"

	"loyaltypoints-backend/config"
	"loyaltypoints-backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup, cfg *config.Config) {
	limiter := middleware.RateLimit(cfg.RateLimitRequests,
		time.Duration(cfg.RateLimitWindow)*time.Second, middleware.KeyByClientIP)

	router.POST("/auth/tokens", IssueToken)
	router.POST("/auth/resets", limiter, RequestReset)
	router.POST("/auth/resets/:resetToken", ConfirmReset)
	router.POST("/auth/logout", Logout)
}
