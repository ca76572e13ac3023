package promotions

import (
	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/promotions", middleware.RequireClearance(models.RoleManager), CreatePromotion)
	router.GET("/promotions", ListPromotions)
	router.GET("/promotions/:promotionId", GetPromotion)
	router.PATCH("/promotions/:promotionId", middleware.RequireClearance(models.RoleManager), UpdatePromotion)
	router.DELETE("/promotions/:promotionId", middleware.RequireClearance(models.RoleManager), DeletePromotion)
}
