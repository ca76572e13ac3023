package users

import (
	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/users", middleware.RequireClearance(models.RoleCashier), Register)
	router.GET("/users", middleware.RequireClearance(models.RoleManager), ListUsers)

	me := router.Group("/users/me")
	{
		me.GET("", GetCurrentUser)
		me.PATCH("", UpdateCurrentUser)
		me.PATCH("/password", UpdatePassword)
		me.GET("/transactions", ListCurrentUserTransactions)
		me.POST("/transactions", CreateRedemption)
	}

	router.GET("/users/:userId", middleware.RequireClearance(models.RoleCashier), GetUser)
	router.PATCH("/users/:userId", middleware.RequireClearance(models.RoleManager), UpdateUserStatus)
	router.POST("/users/:userId/transactions", CreateTransfer)
}
