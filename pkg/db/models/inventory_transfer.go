package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/enums"
)

// InventoryTransfer moves stock between two stores of the same business.
type InventoryTransfer struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	BusinessID  uuid.UUID            `gorm:"column:business_id;type:uuid;not null;index"`
	FromStoreID uuid.UUID            `gorm:"column:from_store_id;type:uuid;not null;index"`
	ToStoreID   uuid.UUID            `gorm:"column:to_store_id;type:uuid;not null;index"`
	Status      enums.TransferStatus `gorm:"column:status;type:transfer_status;not null;index"`
	Notes       string               `gorm:"column:notes;not null;default:''"`
	CreatedBy   uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt *time.Time           `gorm:"column:completed_at"`
	Items       []TransferItem       `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
}

func (InventoryTransfer) TableName() string {
	return "inventory_transfers"
}

func (t *InventoryTransfer) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TransferItem is one product line of a transfer. Quantity is fixed at creation.
type TransferItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TransferID uuid.UUID `gorm:"column:transfer_id;type:uuid;not null;uniqueIndex:ux_transfer_items_transfer_product,priority:1"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_transfer_items_transfer_product,priority:2"`
	Quantity   int       `gorm:"column:quantity;not null;check:chk_transfer_items_quantity,quantity > 0"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (TransferItem) TableName() string {
	return "transfer_items"
}

func (i *TransferItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
