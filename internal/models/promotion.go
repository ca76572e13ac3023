package models

import "time"

type PromotionType string

const (
	PromotionTypeAutomatic PromotionType = "automatic"
	PromotionTypeOneTime   PromotionType = "one-time"
)

func (t PromotionType) Valid() bool {
	return t == PromotionTypeAutomatic || t == PromotionTypeOneTime
}

type Promotion struct {
	ID          uint          `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Type        PromotionType `gorm:"type:varchar(20);not null" json:"type"`
	StartTime   time.Time     `gorm:"index;not null" json:"startTime"`
	EndTime     time.Time     `gorm:"index;not null" json:"endTime"`
	MinSpending float64       `gorm:"not null;default:0" json:"minSpending"`
	// Rate is a points-per-rate-unit divisor: a purchase of spent dollars
	// earns an extra round(spent/rate) points when rate is non-zero.
	Rate   float64 `gorm:"not null;default:0" json:"rate"`
	Points int     `gorm:"not null;default:0" json:"points"`
}

func (Promotion) TableName() string {
	return "promotions"
}

func (p *Promotion) Started(now time.Time) bool {
	return !now.Before(p.StartTime)
}

func (p *Promotion) Ended(now time.Time) bool {
	return now.After(p.EndTime)
}

// UserPromotion marks a one-time promotion as consumed by a user. The
// composite unique index makes double consumption a constraint violation
// even under concurrent purchases.
type UserPromotion struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UserID      uint      `gorm:"uniqueIndex:idx_user_promotion;not null" json:"user_id"`
	PromotionID uint      `gorm:"uniqueIndex:idx_user_promotion;not null" json:"promotion_id"`
}

func (UserPromotion) TableName() string {
	return "user_promotions"
}
