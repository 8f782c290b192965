package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/enums"
)

// TransferLine is the per-product slice of a transfer event.
type TransferLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// TransferStatusEvent is emitted on every transfer transition.
type TransferStatusEvent struct {
	TransferID     uuid.UUID            `json:"transfer_id"`
	BusinessID     uuid.UUID            `json:"business_id"`
	FromStoreID    uuid.UUID            `json:"from_store_id"`
	ToStoreID      uuid.UUID            `json:"to_store_id"`
	PreviousStatus enums.TransferStatus `json:"previous_status,omitempty"`
	Status         enums.TransferStatus `json:"status"`
	Lines          []TransferLine       `json:"lines"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

// StockChangedEvent describes one (store, product) line after a mutation.
type StockChangedEvent struct {
	BusinessID       uuid.UUID  `json:"business_id"`
	StoreID          uuid.UUID  `json:"store_id"`
	ProductID        uuid.UUID  `json:"product_id"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reserved_quantity"`
	Delta            int        `json:"delta"`
	TransferID       *uuid.UUID `json:"transfer_id,omitempty"`
	Reason           string     `json:"reason"`
}

// StockLowEvent asks the notification service to alert store managers.
type StockLowEvent struct {
	BusinessID  uuid.UUID `json:"business_id"`
	StoreID     uuid.UUID `json:"store_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	Threshold   int       `json:"threshold"`
}

// TransferStalledEvent nudges owners about transfers stuck in a non-terminal state.
type TransferStalledEvent struct {
	TransferID  uuid.UUID            `json:"transfer_id"`
	BusinessID  uuid.UUID            `json:"business_id"`
	FromStoreID uuid.UUID            `json:"from_store_id"`
	ToStoreID   uuid.UUID            `json:"to_store_id"`
	Status      enums.TransferStatus `json:"status"`
	Since       time.Time            `json:"since"`
}

// MainStoreChangedEvent records a new main store for a business.
type MainStoreChangedEvent struct {
	BusinessID        uuid.UUID  `json:"business_id"`
	StoreID           uuid.UUID  `json:"store_id"`
	PreviousMainStore *uuid.UUID `json:"previous_main_store_id,omitempty"`
}
