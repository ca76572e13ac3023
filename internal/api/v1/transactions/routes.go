package transactions

import (
	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/transactions", middleware.RequireClearance(models.RoleCashier), CreateTransaction)
	router.GET("/transactions", middleware.RequireClearance(models.RoleManager), ListTransactions)
	router.GET("/transactions/export", middleware.RequireClearance(models.RoleManager), ExportTransactions)
	router.GET("/transactions/:transactionId", middleware.RequireClearance(models.RoleManager), GetTransaction)
	router.PATCH("/transactions/:transactionId/suspicious", middleware.RequireClearance(models.RoleManager), SetSuspicious)
	router.PATCH("/transactions/:transactionId/processed", middleware.RequireClearance(models.RoleCashier), ProcessRedemption)
}
