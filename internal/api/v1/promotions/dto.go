package promotions

import (
	"time"

	"loyaltypoints-backend/internal/models"
)

type CreatePromotionRequest struct {
	Name        string               `json:"name" validate:"required"`
	Description string               `json:"description" validate:"required"`
	Type        models.PromotionType `json:"type" validate:"required,oneof=automatic one-time"`
	StartTime   time.Time            `json:"startTime" validate:"required"`
	EndTime     time.Time            `json:"endTime" validate:"required"`
	MinSpending float64              `json:"minSpending,omitempty" validate:"gte=0"`
	Rate        float64              `json:"rate,omitempty" validate:"gte=0"`
	Points      int                  `json:"points,omitempty" validate:"gte=0"`
}

type UpdatePromotionRequest struct {
	Name        *string               `json:"name,omitempty"`
	Description *string               `json:"description,omitempty"`
	Type        *models.PromotionType `json:"type,omitempty" validate:"omitempty,oneof=automatic one-time"`
	StartTime   *time.Time            `json:"startTime,omitempty"`
	EndTime     *time.Time            `json:"endTime,omitempty"`
	MinSpending *float64              `json:"minSpending,omitempty" validate:"omitempty,gte=0"`
	Rate        *float64              `json:"rate,omitempty" validate:"omitempty,gte=0"`
	Points      *int                  `json:"points,omitempty" validate:"omitempty,gte=0"`
}
