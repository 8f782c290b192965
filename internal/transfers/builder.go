package transfers

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/internal/inventory"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/outbox/payloads"
)

const maxNotesLength = 1000

type storeLookup interface {
	FindManyInBusiness(ctx context.Context, businessID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]models.Store, error)
}

type productLookup interface {
	FindManyInBusiness(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
	NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// Builder validates a raw transfer request and persists it as pending.
// It never touches stock; reservation happens at approval.
type Builder struct {
	tx       txRunner
	repo     *Repository
	stores   storeLookup
	products productLookup
	outbox   outbox.Emitter
}

// NewBuilder wires the transfer request builder.
func NewBuilder(tx txRunner, repo *Repository, stores storeLookup, products productLookup, emitter outbox.Emitter) (*Builder, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store lookup required")
	}
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &Builder{tx: tx, repo: repo, stores: stores, products: products, outbox: emitter}, nil
}

func invalid(message string, details map[string]any) error {
	err := pkgerrors.New(pkgerrors.CodeValidation, message)
	if details != nil {
		return err.WithDetails(details)
	}
	return err
}

// Build checks the request against the creator's business and stores a
// pending transfer. Nothing is written when validation fails.
func (b *Builder) Build(ctx context.Context, creator auth.Actor, input BuildInput) (*models.InventoryTransfer, error) {
	if !creator.IsOwner() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the business owner can create transfers")
	}
	if input.FromStoreID == input.ToStoreID {
		return nil, invalid("source and destination stores must differ", map[string]any{"field": "to_store_id"})
	}
	notes := strings.TrimSpace(input.Notes)
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return nil, invalid(fmt.Sprintf("notes must be at most %d characters", maxNotesLength), map[string]any{"field": "notes"})
	}

	stores, err := b.stores.FindManyInBusiness(ctx, creator.BusinessID, input.FromStoreID, input.ToStoreID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load stores")
	}
	for _, ref := range []struct {
		field string
		id    uuid.UUID
	}{{"from_store_id", input.FromStoreID}, {"to_store_id", input.ToStoreID}} {
		field, id := ref.field, ref.id
		store, ok := stores[id]
		if !ok {
			return nil, invalid("store does not belong to your business", map[string]any{"field": field, "store_id": id})
		}
		if !store.IsActive {
			return nil, invalid(fmt.Sprintf("store %s is inactive", store.Name), map[string]any{"field": field, "store_id": id})
		}
	}

	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for i, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, invalid("quantity must be greater than zero", map[string]any{"line": i, "product_id": line.ProductID})
		}
		if line.Quantity > inventory.MaxQuantity {
			return nil, invalid(fmt.Sprintf("quantity must be at most %d", inventory.MaxQuantity), map[string]any{"line": i, "product_id": line.ProductID})
		}
		if _, dup := seen[line.ProductID]; dup {
			return nil, invalid("product appears more than once", map[string]any{"line": i, "product_id": line.ProductID})
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	products, err := b.products.FindManyInBusiness(ctx, creator.BusinessID, ids)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load products")
	}
	for i, line := range input.Lines {
		if _, ok := products[line.ProductID]; !ok {
			return nil, invalid("product does not belong to your business", map[string]any{"line": i, "product_id": line.ProductID})
		}
	}

	transfer := &models.InventoryTransfer{
		BusinessID:  creator.BusinessID,
		FromStoreID: input.FromStoreID,
		ToStoreID:   input.ToStoreID,
		Status:      enums.TransferStatusPending,
		Notes:       notes,
		CreatedBy:   creator.UserID,
		Items:       make([]models.TransferItem, 0, len(input.Lines)),
	}
	for _, line := range input.Lines {
		transfer.Items = append(transfer.Items, models.TransferItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	err = b.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := b.repo.WithTx(tx).Create(ctx, transfer); err != nil {
			return err
		}
		return b.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferCreated,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   transfer.ID,
			Actor:         outbox.ActorFor(creator),
			Data:          statusEvent(transfer, "", transfer.Status, time.Now().UTC()),
		})
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "create transfer")
	}
	return transfer, nil
}

func statusEvent(t *models.InventoryTransfer, previous, status enums.TransferStatus, at time.Time) payloads.TransferStatusEvent {
	lines := make([]payloads.TransferLine, 0, len(t.Items))
	for _, item := range t.Items {
		lines = append(lines, payloads.TransferLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return payloads.TransferStatusEvent{
		TransferID:     t.ID,
		BusinessID:     t.BusinessID,
		FromStoreID:    t.FromStoreID,
		ToStoreID:      t.ToStoreID,
		PreviousStatus: previous,
		Status:         status,
		Lines:          lines,
		OccurredAt:     at,
	}
}
