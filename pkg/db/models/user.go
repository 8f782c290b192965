package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/enums"
)

// User is a member of a business. Identity and credentials live elsewhere.
type User struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID uuid.UUID      `gorm:"column:business_id;type:uuid;not null;index"`
	Username   string         `gorm:"column:username;not null;uniqueIndex"`
	FullName   string         `gorm:"column:full_name;not null;default:''"`
	Role       enums.UserRole `gorm:"column:role;type:user_role;not null"`
	IsActive   bool           `gorm:"column:is_active;not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}
