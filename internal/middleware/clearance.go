package middleware

import (
	"net/http"

	"loyaltypoints-backend/internal/models"
	"loyaltypoints-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// RequireClearance rejects requests from users below the given role.
// Must run after AuthMiddleware.
func RequireClearance(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if !user.Role.AtLeast(role) {
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: insufficient clearance"))
			c.Abort()
			return
		}
		c.Next()
	}
}
