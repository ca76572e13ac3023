package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Utorid    string    `gorm:"uniqueIndex;size:8;not null" json:"utorid"`
	Name      string    `gorm:"size:50;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	// Empty until the account is activated through a reset token.
	Password   string          `json:"-"`
	Birthday   *datatypes.Date `json:"birthday,omitempty"`
	AvatarURL  string          `json:"avatarUrl,omitempty"`
	Role       Role            `gorm:"type:varchar(20);not null;default:'regular'" json:"role"`
	Points     int             `gorm:"not null;default:0" json:"points"`
	Verified   bool            `gorm:"not null;default:false" json:"verified"`
	Suspicious bool            `gorm:"not null;default:false" json:"suspicious"`
	LastLogin  *time.Time      `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Activated reports whether the user has logged in at least once.
func (u *User) Activated() bool {
	return u.LastLogin != nil
}
