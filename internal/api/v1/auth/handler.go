package auth

import (
	"net/http"
	"time"

	"loyaltypoints-backend/internal/services"
	"loyaltypoints-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// IssueToken authenticates a user and returns a bearer token.
func IssueToken(c *gin.Context) {
	var req TokenRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	token, expiresAt, err := services.Authenticate(req.Utorid, req.Password)
	if err != nil {
		status := services.HTTPStatus(err)
		c.JSON(status, utils.NewErrorResponse(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Authenticated", TokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	}))
}

// RequestReset issues a password reset token for a utorid.
func RequestReset(c *gin.Context) {
	var req ResetRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	token, err := services.RequestPasswordReset(req.Utorid)
	if err != nil {
		status := services.HTTPStatus(err)
		c.JSON(status, utils.NewErrorResponse(status, err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, utils.NewResponse(http.StatusAccepted, "Reset token issued", ResetResponse{
		ResetToken: token.Token,
		ExpiresAt:  token.ExpiresAt,
	}))
}

// ConfirmReset consumes a reset token and sets a new password.
func ConfirmReset(c *gin.Context) {
	var req ResetConfirmRequest
	if !utils.BindStrict(c, &req) {
		return
	}

	err := services.ResetPassword(c.Param("resetToken"), req.Utorid, req.Password)
	if err != nil {
		status := services.HTTPStatus(err)
		c.JSON(status, utils.NewErrorResponse(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Password updated", nil))
}

// Logout revokes the presented token for the remainder of its lifetime.
func Logout(c *gin.Context) {
	tokenString, err := utils.ExtractToken(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
		return
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid or expired token"))
		return
	}

	expiration := time.Hour * 24
	if exp, ok := claims["exp"].(float64); ok {
		if until := time.Until(time.Unix(int64(exp), 0)); until > 0 {
			expiration = until
		}
	}

	if err := services.AddToDenylist(tokenString, expiration); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to revoke token"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged out", nil))
}
