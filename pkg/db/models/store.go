package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is a physical location of a business holding its own inventory.
type Store struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID    uuid.UUID  `gorm:"column:business_id;type:uuid;not null;index;uniqueIndex:ux_stores_main_per_business,where:is_main_store = true"`
	Name          string     `gorm:"column:name;not null"`
	Address       string     `gorm:"column:address;not null;default:''"`
	Phone         *string    `gorm:"column:phone"`
	ManagerName   *string    `gorm:"column:manager_name"`
	ManagerUserID *uuid.UUID `gorm:"column:manager_user_id;type:uuid;uniqueIndex:ux_stores_manager,where:manager_user_id IS NOT NULL"`
	IsMainStore   bool       `gorm:"column:is_main_store;not null;default:false"`
	IsActive      bool       `gorm:"column:is_active;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
