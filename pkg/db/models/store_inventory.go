package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreInventory is the (store, product) stock line. Quantity is what is
// physically in the store; ReservedQuantity is earmarked for outbound
// transfers that have been approved but not completed.
type StoreInventory struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID          uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_store_inventory_store_product,priority:1"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_store_inventory_store_product,priority:2;index"`
	Quantity         int       `gorm:"column:quantity;not null;default:0;check:chk_store_inventory_quantity,quantity >= 0"`
	ReservedQuantity int       `gorm:"column:reserved_quantity;not null;default:0;check:chk_store_inventory_reserved,reserved_quantity >= 0 AND reserved_quantity <= quantity"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StoreInventory) TableName() string {
	return "store_inventory"
}

func (s *StoreInventory) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Available is the stock that can still be sold or reserved.
func (s StoreInventory) Available() int {
	return s.Quantity - s.ReservedQuantity
}
