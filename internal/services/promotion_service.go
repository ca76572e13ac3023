package services

import (
	"errors"
	"math"
	"strings"
	"time"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"gorm.io/gorm"
)

// baseRate is the base accrual: one point per $0.25 spent.
const baseRate = 0.25

type PromotionCreate struct {
	Name        string
	Description string
	Type        models.PromotionType
	StartTime   time.Time
	EndTime     time.Time
	MinSpending float64
	Rate        float64
	Points      int
}

type PromotionUpdate struct {
	Name        *string
	Description *string
	Type        *models.PromotionType
	StartTime   *time.Time
	EndTime     *time.Time
	MinSpending *float64
	Rate        *float64
	Points      *int
}

// PromotionFilter defines criteria for the promotion listing.
type PromotionFilter struct {
	Name    string
	Type    *models.PromotionType
	Started *bool
	Ended   *bool
	Page    int
	Limit   int
	OrderBy string
	Order   string
}

// validatePromotionIDs checks that every referenced promotion exists, is
// inside its active window and has not been consumed by this user. Any
// single violation fails the whole batch before anything is recorded.
func validatePromotionIDs(db *gorm.DB, promotionIDs []uint, user models.User) error {
	now := time.Now()

	for _, promoID := range promotionIDs {
		var promotion models.Promotion
		if err := db.First(&promotion, promoID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return badPayload("promotion with id %d does not exist", promoID)
			}
			return internal(err)
		}
		if promotion.Ended(now) {
			return badPayload("promotion with id %d has expired", promoID)
		}
		if !promotion.Started(now) {
			return badPayload("promotion with id %d has not started yet", promoID)
		}

		var used models.UserPromotion
		err := db.Where("user_id = ? AND promotion_id = ?", user.ID, promoID).First(&used).Error
		if err == nil {
			return badPayload("promotion with id %d has already been used by this user", promoID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internal(err)
		}
	}

	return nil
}

// ValidatePromotionIDs is the standalone eligibility check for a batch of
// promotion references against a user.
func ValidatePromotionIDs(promotionIDs []uint, utorid string) error {
	user, err := FindUserByUtorid(utorid)
	if err != nil {
		return err
	}
	return validatePromotionIDs(database.DB, promotionIDs, user)
}

// applyPromotions computes the point total for a purchase and consumes any
// one-time promotions that contributed. Only promotions whose minimum
// spending is met contribute; the rest are silently skipped, not rejected.
// Must run inside the purchase's store transaction so consumption markers
// roll back with it.
func applyPromotions(db *gorm.DB, spent float64, promotionIDs []uint, user models.User) (int, []models.Promotion, error) {
	base := int(math.Round(spent / baseRate))
	bonus := 0
	var applied []models.Promotion

	seen := make(map[uint]bool, len(promotionIDs))
	for _, promoID := range promotionIDs {
		// A repeated reference must not double-count the bonus.
		if seen[promoID] {
			continue
		}
		seen[promoID] = true

		var promotion models.Promotion
		if err := db.First(&promotion, promoID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, nil, badPayload("promotion with id %d does not exist", promoID)
			}
			return 0, nil, internal(err)
		}

		if promotion.MinSpending > spent {
			continue
		}

		if promotion.Rate != 0 {
			base += int(math.Round(spent / promotion.Rate))
		}
		bonus += promotion.Points

		if promotion.Type == models.PromotionTypeOneTime {
			marker := models.UserPromotion{UserID: user.ID, PromotionID: promoID}
			if err := db.Create(&marker).Error; err != nil {
				// The unique constraint turns a concurrent double
				// consumption into an error here.
				return 0, nil, conflict("promotion with id %d has already been used by this user", promoID)
			}
		}

		applied = append(applied, promotion)
	}

	return base + bonus, applied, nil
}

// CreatePromotion creates a promotion. The start must not be in the past
// and must precede the end.
func CreatePromotion(req PromotionCreate) (*models.Promotion, error) {
	if req.Name == "" {
		return nil, badPayload("invalid name, must be a non-empty string")
	}
	if req.Description == "" {
		return nil, badPayload("invalid description, must be a non-empty string")
	}
	if !req.Type.Valid() {
		return nil, badPayload("invalid type, must be either automatic or one-time")
	}

	now := time.Now()
	if req.StartTime.Before(now) {
		return nil, badPayload("startTime cannot be in the past")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, badPayload("endTime must be after startTime")
	}
	if req.MinSpending < 0 || req.Rate < 0 || req.Points < 0 {
		return nil, badPayload("minSpending, rate and points must be non-negative")
	}

	promotion := models.Promotion{
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		MinSpending: req.MinSpending,
		Rate:        req.Rate,
		Points:      req.Points,
	}

	if err := database.DB.Create(&promotion).Error; err != nil {
		return nil, internal(err)
	}

	return &promotion, nil
}

// UpdatePromotion edits a promotion. Once started, everything except the
// end time is frozen; once ended, the promotion is fully frozen.
func UpdatePromotion(promoID uint, req PromotionUpdate) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := database.DB.First(&promotion, promoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("promotion not found")
		}
		return nil, internal(err)
	}

	now := time.Now()
	if promotion.Ended(now) {
		return nil, badPayload("promotion has already ended")
	}

	frozenRequested := req.Name != nil || req.Description != nil || req.Type != nil ||
		req.StartTime != nil || req.MinSpending != nil || req.Rate != nil || req.Points != nil
	if promotion.Started(now) && frozenRequested {
		return nil, badPayload("promotion has already started")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, badPayload("invalid name, must be a non-empty string")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		if *req.Description == "" {
			return nil, badPayload("invalid description, must be a non-empty string")
		}
		updates["description"] = *req.Description
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return nil, badPayload("invalid type, must be either automatic or one-time")
		}
		updates["type"] = *req.Type
	}

	startTime := promotion.StartTime
	if req.StartTime != nil {
		if req.StartTime.Before(now) {
			return nil, badPayload("startTime cannot be in the past")
		}
		startTime = *req.StartTime
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		if !req.EndTime.After(startTime) {
			return nil, badPayload("endTime must be after startTime")
		}
		if req.EndTime.Before(now) {
			return nil, badPayload("endTime cannot be in the past")
		}
		updates["end_time"] = *req.EndTime
	}
	if req.MinSpending != nil {
		if *req.MinSpending < 0 {
			return nil, badPayload("minSpending must be non-negative")
		}
		updates["min_spending"] = *req.MinSpending
	}
	if req.Rate != nil {
		if *req.Rate < 0 {
			return nil, badPayload("rate must be non-negative")
		}
		updates["rate"] = *req.Rate
	}
	if req.Points != nil {
		if *req.Points < 0 {
			return nil, badPayload("points must be non-negative")
		}
		updates["points"] = *req.Points
	}

	if len(updates) == 0 {
		return nil, badPayload("no valid fields to update")
	}

	if err := database.DB.Model(&promotion).Updates(updates).Error; err != nil {
		return nil, internal(err)
	}

	return &promotion, nil
}

// DeletePromotion removes a promotion that has not yet started.
func DeletePromotion(promoID uint) error {
	var promotion models.Promotion
	if err := database.DB.First(&promotion, promoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("promotion not found")
		}
		return internal(err)
	}

	if promotion.Started(time.Now()) {
		return forbidden("promotion has already started, cannot delete")
	}

	if err := database.DB.Delete(&promotion).Error; err != nil {
		return internal(err)
	}

	return nil
}

var promotionSortable = map[string]string{
	"name":        "name",
	"type":        "type",
	"startTime":   "start_time",
	"endTime":     "end_time",
	"minSpending": "min_spending",
	"rate":        "rate",
	"points":      "points",
}

// FindPromotions retrieves a paginated promotion listing. Regulars and
// cashiers only ever see currently active promotions.
func FindPromotions(filter PromotionFilter, actor models.User) ([]models.Promotion, int64, error) {
	var promotions []models.Promotion
	var total int64

	now := time.Now()
	query := database.DB.Model(&models.Promotion{})

	if filter.Name != "" {
		query = query.Where("name = ?", filter.Name)
	}
	if filter.Type != nil {
		if !filter.Type.Valid() {
			return nil, 0, badPayload("invalid type, must be either automatic or one-time")
		}
		query = query.Where("type = ?", *filter.Type)
	}

	if filter.Started != nil && filter.Ended != nil {
		return nil, 0, badPayload("started and ended cannot both be specified")
	}

	switch {
	case filter.Started != nil:
		if !actor.Role.AtLeast(models.RoleManager) {
			return nil, 0, forbidden("only managers can filter by started")
		}
		if *filter.Started {
			query = query.Where("start_time <= ?", now)
		} else {
			query = query.Where("start_time > ?", now)
		}
	case filter.Ended != nil:
		if !actor.Role.AtLeast(models.RoleManager) {
			return nil, 0, forbidden("only managers can filter by ended")
		}
		if *filter.Ended {
			query = query.Where("end_time <= ?", now)
		} else {
			query = query.Where("end_time > ?", now)
		}
	default:
		if !actor.Role.AtLeast(models.RoleManager) {
			query = query.Where("start_time <= ? AND end_time > ?", now, now)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internal(err)
	}

	if filter.OrderBy != "" {
		column, ok := promotionSortable[filter.OrderBy]
		if !ok {
			return nil, 0, badPayload("invalid orderBy field: %s", filter.OrderBy)
		}
		direction := strings.ToLower(filter.Order)
		if direction != "asc" && direction != "desc" {
			return nil, 0, badPayload("invalid order, must be asc or desc")
		}
		query = query.Order(column + " " + direction)
	} else {
		query = query.Order("id asc")
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Limit(filter.Limit).Offset(offset).Find(&promotions).Error; err != nil {
		return nil, 0, internal(err)
	}

	return promotions, total, nil
}

// GetPromotionByID fetches a single promotion. Below manager clearance,
// inactive promotions are hidden.
func GetPromotionByID(promoID uint, actor models.User) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := database.DB.First(&promotion, promoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("promotion not found")
		}
		return nil, internal(err)
	}

	now := time.Now()
	if !actor.Role.AtLeast(models.RoleManager) &&
		(!promotion.Started(now) || promotion.Ended(now)) {
		return nil, notFound("promotion not found")
	}

	return &promotion, nil
}
