package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"loyaltypoints-backend/internal/database"
	"loyaltypoints-backend/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = 7 * 24 * time.Hour

var utoridPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8}$`)

// UserFilter defines criteria for filtering the user listing.
type UserFilter struct {
	Name      string // matches utorid or name exactly
	Role      *models.Role
	Verified  *bool
	Activated *bool
	Page      int
	Limit     int
	OrderBy   string
	Order     string
}

type RegisterRequest struct {
	Utorid string
	Name   string
	Email  string
}

// RegisteredUser is the registration result: the created user plus the
// activation token the cashier hands to them.
type RegisteredUser struct {
	User       models.User
	ResetToken string
	ExpiresAt  time.Time
}

type UserStatusUpdate struct {
	Email      *string
	Verified   *bool
	Suspicious *bool
	Role       *models.Role
}

type ProfileUpdate struct {
	Name      *string
	Email     *string
	Birthday  *string
	AvatarURL *string
}

func validEmail(email string) bool {
	return strings.HasSuffix(email, "utoronto.ca") && strings.Contains(email, "@")
}

// RegisterUser creates an unactivated account and its activation token.
func RegisterUser(req RegisterRequest) (*RegisteredUser, error) {
	if !utoridPattern.MatchString(req.Utorid) {
		return nil, badPayload("invalid utorid, must be 8 alphanumeric characters")
	}
	if len(req.Name) < 1 || len(req.Name) > 50 {
		return nil, badPayload("invalid name, must be 1-50 characters")
	}
	if !validEmail(req.Email) {
		return nil, badPayload("invalid email, must be a utoronto.ca email")
	}

	var existing models.User
	err := database.DB.Where("utorid = ?", req.Utorid).First(&existing).Error
	if err == nil {
		return nil, conflict("user with that utorid already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal(err)
	}

	err = database.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return nil, conflict("user with that email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal(err)
	}

	user := models.User{
		Utorid:   req.Utorid,
		Name:     req.Name,
		Email:    req.Email,
		Role:     models.RoleRegular,
		Verified: false,
	}

	token := models.PasswordResetToken{
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		token.UserID = user.ID
		return tx.Create(&token).Error
	})
	if err != nil {
		return nil, internal(err)
	}

	return &RegisteredUser{User: user, ResetToken: token.Token, ExpiresAt: token.ExpiresAt}, nil
}

// FindUserByID looks up a user, consulting the redis cache first.
func FindUserByID(userID uint) (models.User, error) {
	cacheKey := fmt.Sprintf("user:%d", userID)
	if database.RedisClient != nil {
		val, err := database.RedisClient.Get(database.Ctx, cacheKey).Result()
		if err == nil {
			var user models.User
			if err := json.Unmarshal([]byte(val), &user); err == nil {
				return user, nil
			}
		}
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, notFound("user not found")
		}
		return user, internal(err)
	}

	if database.RedisClient != nil {
		if data, err := json.Marshal(user); err == nil {
			database.RedisClient.Set(database.Ctx, cacheKey, data, time.Hour)
		}
	}

	return user, nil
}

func FindUserByUtorid(utorid string) (models.User, error) {
	var user models.User
	if err := database.DB.Where("utorid = ?", utorid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, notFound("user not found")
		}
		return user, internal(err)
	}
	return user, nil
}

var userSortable = map[string]string{
	"utorid":    "utorid",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"verified":  "verified",
	"points":    "points",
	"lastLogin": "last_login",
}

// FindUsers retrieves a paginated, filtered list of users.
func FindUsers(filter UserFilter) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := database.DB.Model(&models.User{})

	if filter.Name != "" {
		query = query.Where("utorid = ? OR name = ?", filter.Name, filter.Name)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Verified != nil {
		query = query.Where("verified = ?", *filter.Verified)
	}
	if filter.Activated != nil {
		if *filter.Activated {
			query = query.Where("last_login IS NOT NULL")
		} else {
			query = query.Where("last_login IS NULL")
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internal(err)
	}

	if filter.OrderBy != "" {
		column, ok := userSortable[filter.OrderBy]
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
	if err := query.Limit(filter.Limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, internal(err)
	}

	return users, total, nil
}

// UpdateUserStatus applies the manager-facing updates: email, verified,
// suspicious and role. Verified is one-way, and managers may only grant
// regular or cashier.
func UpdateUserStatus(userID uint, req UserStatusUpdate, actor models.User) (*models.User, error) {
	updates := map[string]interface{}{}

	if req.Email != nil {
		if !validEmail(*req.Email) {
			return nil, badPayload("invalid email, must be a utoronto.ca email")
		}
		var existing models.User
		err := database.DB.Where("email = ?", *req.Email).First(&existing).Error
		if err == nil && existing.ID != userID {
			return nil, conflict("user with that email already exists")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal(err)
		}
		updates["email"] = *req.Email
	}

	if req.Verified != nil {
		if !*req.Verified {
			return nil, badPayload("verified can only be set to true")
		}
		updates["verified"] = true
	}

	if req.Suspicious != nil {
		updates["suspicious"] = *req.Suspicious
	}

	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, badPayload("invalid role: %s", *req.Role)
		}
		if !actor.Role.AtLeast(models.RoleSuperuser) && req.Role.AtLeast(models.RoleManager) {
			return nil, forbidden("role must be either regular or cashier")
		}
		updates["role"] = *req.Role
	}

	if len(updates) == 0 {
		return nil, badPayload("no valid fields to update")
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, internal(err)
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return nil, internal(err)
	}

	invalidateUserCache(userID)

	return &user, nil
}

// UpdateCurrentUser applies self-service profile edits.
func UpdateCurrentUser(current models.User, req ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}

	if req.Name != nil {
		if len(*req.Name) < 1 || len(*req.Name) > 50 {
			return nil, badPayload("invalid name, must be 1-50 characters")
		}
		updates["name"] = *req.Name
	}

	if req.Email != nil {
		if !validEmail(*req.Email) {
			return nil, badPayload("invalid email, must be a utoronto.ca email")
		}
		var existing models.User
		err := database.DB.Where("email = ?", *req.Email).First(&existing).Error
		if err == nil && existing.ID != current.ID {
			return nil, conflict("user with that email already exists")
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal(err)
		}
		updates["email"] = *req.Email
	}

	if req.Birthday != nil {
		if _, err := time.Parse("2006-01-02", *req.Birthday); err != nil {
			return nil, badPayload("invalid birthday, must be in YYYY-MM-DD format")
		}
		updates["birthday"] = *req.Birthday
	}

	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}

	if len(updates) == 0 {
		return nil, badPayload("no valid fields to update")
	}

	if err := database.DB.Model(&current).Updates(updates).Error; err != nil {
		return nil, internal(err)
	}

	invalidateUserCache(current.ID)

	return &current, nil
}

// UpdateCurrentUserPassword verifies the old password and stores the new one.
func UpdateCurrentUserPassword(current models.User, old, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(current.Password), []byte(old)); err != nil {
		return forbidden("incorrect old password")
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return internal(err)
	}

	if err := database.DB.Model(&current).Update("password", string(hashed)).Error; err != nil {
		return internal(err)
	}

	invalidateUserCache(current.ID)

	return nil
}

// validatePassword enforces 8-20 characters with at least one uppercase,
// one lowercase, one digit and one special character.
func validatePassword(password string) error {
	if len(password) < 8 || len(password) > 20 {
		return badPayload("password must be 8-20 characters")
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return badPayload("password must contain an uppercase letter, a lowercase letter, a number and a special character")
	}
	return nil
}

func invalidateUserCache(userID uint) {
	if database.RedisClient != nil {
		cacheKey := fmt.Sprintf("user:%d", userID)
		database.RedisClient.Del(database.Ctx, cacheKey)
	}
}
