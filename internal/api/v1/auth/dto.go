package auth

import "time"

type TokenRequest struct {
	Utorid   string `json:"utorid" validate:"required,len=8,alphanum"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ResetRequest struct {
	Utorid string `json:"utorid" validate:"required,len=8,alphanum"`
}

type ResetResponse struct {
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type ResetConfirmRequest struct {
	Utorid   string `json:"utorid" validate:"required,len=8,alphanum"`
	Password string `json:"password" validate:"required"`
}
