package services

import (
	"errors"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"
	"loyaltypoints-backend/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Authenticate checks credentials and issues a JWT, recording the login time.
func Authenticate(utorid, password string) (string, time.Time, error) {
	var user models.User
	if err := database.DB.Where("utorid = ?", utorid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", time.Time{}, forbidden("invalid credentials")
		}
		return "", time.Time{}, internal(err)
	}

	if user.Password == "" {
		return "", time.Time{}, forbidden("account has not been activated")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", time.Time{}, forbidden("invalid credentials")
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return "", time.Time{}, internal(err)
	}

	now := time.Now()
	if err := database.DB.Model(&user).Update("last_login", now).Error; err != nil {
		return "", time.Time{}, internal(err)
	}
	invalidateUserCache(user.ID)

	return token, expiresAt, nil
}

// RequestPasswordReset issues a fresh reset token for the given utorid.
// Older unused tokens for the same user are invalidated.
func RequestPasswordReset(utorid string) (*models.PasswordResetToken, error) {
	var user models.User
	if err := database.DB.Where("utorid = ?", utorid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err)
	}

	token := models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetToken{}).
			Where("user_id = ? AND used = ?", user.ID, false).
			Update("used", true).Error; err != nil {
			return err
		}
		return tx.Create(&token).Error
	})
	if err != nil {
		return nil, internal(err)
	}

	return &token, nil
}

// ResetPassword consumes a reset token and sets the user's password. This is
// also the account activation path for newly registered users.
func ResetPassword(tokenString, utorid, password string) error {
	var token models.PasswordResetToken
	if err := database.DB.Where("token = ?", tokenString).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("reset token not found")
		}
		return internal(err)
	}

	var user models.User
	if err := database.DB.First(&user, token.UserID).Error; err != nil {
		return internal(err)
	}
	if user.Utorid != utorid {
		return forbidden("reset token does not belong to this user")
	}

	if token.Used {
		return badPayload("reset token has already been used")
	}
	if token.Expired(time.Now()) {
		return badPayload("reset token has expired")
	}

	if err := validatePassword(password); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return internal(err)
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&token).Update("used", true).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("password", string(hashed)).Error
	})
	if err != nil {
		return internal(err)
	}

	invalidateUserCache(user.ID)

	return nil
}
