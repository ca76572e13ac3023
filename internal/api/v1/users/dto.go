package users

import (
	"time"

	"loyaltypoints-backend/internal/models"
)

type RegisterRequest struct {
	Utorid string `json:"utorid" validate:"required,len=8,alphanum"`
	Name   string `json:"name" validate:"required,min=1,max=50"`
	Email  string `json:"email" validate:"required,email"`
}

type RegisterResponse struct {
	ID         uint      `json:"id"`
	Utorid     string    `json:"utorid"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Verified   bool      `json:"verified"`
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type StatusUpdateRequest struct {
	Email      *string      `json:"email,omitempty" validate:"omitempty,email"`
	Verified   *bool        `json:"verified,omitempty"`
	Suspicious *bool        `json:"suspicious,omitempty"`
	Role       *models.Role `json:"role,omitempty"`
}

type ProfileUpdateRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Birthday  *string `json:"birthday,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type PasswordUpdateRequest struct {
	Old      string `json:"old" validate:"required"`
	Password string `json:"new" validate:"required"`
}

type TransferRequest struct {
	Type   string `json:"type" validate:"required,oneof=transfer"`
	Amount int    `json:"amount" validate:"required,gt=0"`
	Remark string `json:"remark,omitempty"`
}

type RedemptionRequest struct {
	Type   string `json:"type" validate:"required,oneof=redemption"`
	Amount int    `json:"amount" validate:"required,gt=0"`
	Remark string `json:"remark,omitempty"`
}

type UserListResponse struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
