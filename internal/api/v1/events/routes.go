package events

import (
	"loyaltypoints-backend/internal/middleware"
	"loyaltypoints-backend/internal/models"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/events", middleware.RequireClearance(models.RoleManager), CreateEvent)
	router.GET("/events", ListEvents)
	router.GET("/events/:eventId", GetEvent)
	router.PATCH("/events/:eventId", UpdateEvent)
	router.DELETE("/events/:eventId", middleware.RequireClearance(models.RoleManager), DeleteEvent)

	router.POST("/events/:eventId/organizers", middleware.RequireClearance(models.RoleManager), AddOrganizer)
	router.DELETE("/events/:eventId/organizers/:userId", middleware.RequireClearance(models.RoleManager), RemoveOrganizer)

	router.POST("/events/:eventId/guests", AddGuest)
	router.DELETE("/events/:eventId/guests/:userId", middleware.RequireClearance(models.RoleManager), RemoveGuest)
	router.POST("/events/:eventId/guests/me", RSVP)
	router.DELETE("/events/:eventId/guests/me", UnRSVP)

	router.POST("/events/:eventId/transactions", CreateReward)
}
