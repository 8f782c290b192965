package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/internal/notifications"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db/models"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StoreAccess resolves a store the actor is allowed to see.
type StoreAccess interface {
	Accessible(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*models.Store, error)
}

type productLookup interface {
	FindInBusiness(ctx context.Context, businessID, productID uuid.UUID) (*models.Product, error)
}

// AdjustInput is a restock (positive) or correction (negative).
type AdjustInput struct {
	ProductID uuid.UUID
	Delta     int
}

// Service exposes the store inventory endpoints.
type Service interface {
	List(ctx context.Context, actor auth.Actor, storeID uuid.UUID, params pagination.Params, search string) (pagination.Page[LineDTO], error)
	Summary(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*SummaryDTO, error)
	Adjust(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input AdjustInput) (*LineDTO, error)
}

type service struct {
	tx         txRunner
	ledger     *Ledger
	projection *Projection
	stores     StoreAccess
	products   productLookup
	events     *StockEvents
	notifier   notifications.StockNotifier
	cfg        config.InventoryConfig
	logg       *logger.Logger
}

// Deps groups the collaborators of the inventory service.
type Deps struct {
	Tx         txRunner
	Ledger     *Ledger
	Projection *Projection
	Stores     StoreAccess
	Products   productLookup
	Events     *StockEvents
	Notifier   notifications.StockNotifier
	Config     config.InventoryConfig
	Logger     *logger.Logger
}

// NewService validates deps and builds the inventory service.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("ledger required")
	case deps.Projection == nil:
		return nil, fmt.Errorf("inventory projection required")
	case deps.Stores == nil:
		return nil, fmt.Errorf("store access required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product lookup required")
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:         deps.Tx,
		ledger:     deps.Ledger,
		projection: deps.Projection,
		stores:     deps.Stores,
		products:   deps.Products,
		events:     deps.Events,
		notifier:   notifier,
		cfg:        deps.Config,
		logg:       logg,
	}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, storeID uuid.UUID, params pagination.Params, search string) (pagination.Page[LineDTO], error) {
	if _, err := s.stores.Accessible(ctx, actor, storeID); err != nil {
		return pagination.Page[LineDTO]{}, err
	}
	params = params.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	rows, count, err := s.projection.ListStocked(ctx, storeID, params, search)
	if err != nil {
		return pagination.Page[LineDTO]{}, pkgerrors.Storage(err, "list store inventory")
	}
	return pagination.NewPage(rows, count, params), nil
}

func (s *service) Summary(ctx context.Context, actor auth.Actor, storeID uuid.UUID) (*SummaryDTO, error) {
	if _, err := s.stores.Accessible(ctx, actor, storeID); err != nil {
		return nil, err
	}
	summary, err := s.projection.Summary(ctx, storeID, s.cfg.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Storage(err, "summarize store inventory")
	}
	return summary, nil
}

func (s *service) Adjust(ctx context.Context, actor auth.Actor, storeID uuid.UUID, input AdjustInput) (*LineDTO, error) {
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	store, err := s.stores.Accessible(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	if !store.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store is inactive")
	}
	product, err := s.products.FindInBusiness(ctx, actor.BusinessID, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product does not belong to this business").
				WithDetails(map[string]any{"product_id": input.ProductID})
		}
		return nil, pkgerrors.Storage(err, "load product")
	}

	reason := ReasonRestock
	if input.Delta < 0 {
		reason = ReasonCorrection
	}
	actorRef := outbox.ActorFor(actor)

	var line *models.StoreInventory
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		line, err = s.ledger.WithTx(tx).AdjustQuantity(ctx, storeID, product.ID, input.Delta)
		if err != nil {
			return err
		}
		return s.events.Changed(ctx, tx, actorRef, actor.BusinessID, line, input.Delta, reason, nil, product.Name)
	})
	if err != nil {
		return nil, pkgerrors.Storage(err, "adjust inventory")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"store_id":   storeID.String(),
		"product_id": product.ID.String(),
		"delta":      input.Delta,
		"quantity":   line.Quantity,
	})
	s.logg.Info(logCtx, "inventory adjusted")
	s.notifier.StockChanged(ctx, actor.BusinessID, []notifications.StockChange{
		notifications.ChangeFromLine(line, input.Delta, reason, nil),
	})

	return &LineDTO{
		ID:                line.ID,
		ProductID:         product.ID,
		ProductName:       product.Name,
		Quantity:          line.Quantity,
		ReservedQuantity:  line.ReservedQuantity,
		AvailableQuantity: line.Available(),
		SellingPrice:      product.SellingPrice,
		UpdatedAt:         line.UpdatedAt,
	}, nil
}
