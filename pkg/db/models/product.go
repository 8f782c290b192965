package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog entry owned by a business. Catalog CRUD is handled
// by another service; this backend only reads it.
type Product struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID   uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index"`
	Name         string          `gorm:"column:name;not null"`
	SKU          *string         `gorm:"column:sku"`
	CostPrice    decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null"`
	SellingPrice decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	IsActive     bool            `gorm:"column:is_active;not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
