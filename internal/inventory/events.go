package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

// Reasons recorded on stock_changed events.
const (
	ReasonRestock     = "restock"
	ReasonCorrection  = "correction"
	ReasonTransferOut = "transfer_out"
	ReasonTransferIn  = "transfer_in"
	ReasonReserve     = "reserve"
	ReasonRelease     = "release"
)

// StockEvents writes stock_changed and stock_low rows into the outbox on the
// caller's transaction.
type StockEvents struct {
	emitter   outbox.Emitter
	threshold int
}

// NewStockEvents builds the emitter helper. threshold is the low-stock level.
func NewStockEvents(emitter outbox.Emitter, threshold int) *StockEvents {
	return &StockEvents{emitter: emitter, threshold: threshold}
}

// Threshold returns the low-stock level.
func (e *StockEvents) Threshold() int {
	return e.threshold
}

// Changed records a stock_changed event for line and, when a decrease left the
// line at or below the low-stock level, a stock_low event.
func (e *StockEvents) Changed(ctx context.Context, tx *gorm.DB, actor *outbox.ActorRef, businessID uuid.UUID, line *models.StoreInventory, delta int, reason string, transferID *uuid.UUID, productName string) error {
	if e == nil || e.emitter == nil || line == nil {
		return nil
	}
	err := e.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockChanged,
		AggregateType: enums.AggregateStoreInventory,
		AggregateID:   line.ID,
		Actor:         actor,
		Data: payloads.StockChangedEvent{
			BusinessID:       businessID,
			StoreID:          line.StoreID,
			ProductID:        line.ProductID,
			Quantity:         line.Quantity,
			ReservedQuantity: line.ReservedQuantity,
			Delta:            delta,
			TransferID:       transferID,
			Reason:           reason,
		},
	})
	if err != nil {
		return err
	}
	if delta >= 0 || line.Quantity > e.threshold {
		return nil
	}
	return e.emitter.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateStoreInventory,
		AggregateID:   line.ID,
		Actor:         actor,
		Data: payloads.StockLowEvent{
			BusinessID:  businessID,
			StoreID:     line.StoreID,
			ProductID:   line.ProductID,
			ProductName: productName,
			Quantity:    line.Quantity,
			Threshold:   e.threshold,
		},
	})
}
