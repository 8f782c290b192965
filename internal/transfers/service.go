package transfers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/internal/inventory"
	"github.com/supawave/supawave-backend/internal/notifications"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/metrics"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/pagination"
)

// Workflow actions.
const (
	ActionApprove  = "approve"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionRecorder interface {
	ObserveTransition(action, outcome string, elapsed time.Duration)
	IncInvariantViolation(operation string)
}

// Service exposes transfer creation, reads and the workflow transitions.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input BuildInput) (*TransferDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[TransferDTO], error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error)
	Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error)
}

// Deps groups the collaborators of the transfer service.
type Deps struct {
	Tx       txRunner
	Repo     *Repository
	Builder  *Builder
	Ledger   *inventory.Ledger
	Events   *inventory.StockEvents
	Stores   storeLookup
	Products productLookup
	Outbox   outbox.Emitter
	Notifier notifications.StockNotifier
	Metrics  transitionRecorder
	Paging   config.InventoryConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	tx       txRunner
	repo     *Repository
	builder  *Builder
	ledger   *inventory.Ledger
	events   *inventory.StockEvents
	stores   storeLookup
	products productLookup
	outbox   outbox.Emitter
	notifier notifications.StockNotifier
	metrics  transitionRecorder
	paging   config.InventoryConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the transfer workflow.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Repo == nil:
		return nil, fmt.Errorf("transfer repository required")
	case deps.Builder == nil:
		return nil, fmt.Errorf("transfer builder required")
	case deps.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case deps.Events == nil:
		return nil, fmt.Errorf("stock events required")
	case deps.Stores == nil:
		return nil, fmt.Errorf("store lookup required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product lookup required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	s := &service{
		tx:       deps.Tx,
		repo:     deps.Repo,
		builder:  deps.Builder,
		ledger:   deps.Ledger,
		events:   deps.Events,
		stores:   deps.Stores,
		products: deps.Products,
		outbox:   deps.Outbox,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		paging:   deps.Paging,
		logg:     deps.Logger,
		now:      deps.Now,
	}
	if s.notifier == nil {
		s.notifier = notifications.Noop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewInventoryMetrics(nil)
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func canOperate(actor auth.Actor) error {
	if actor.IsOwner() || actor.IsManager() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage transfers")
}

func transferNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found").
		WithDetails(map[string]any{"transfer_id": id})
}

func invalidState(id uuid.UUID, status enums.TransferStatus, action string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("cannot %s a transfer that is %s", action, status)).
		WithDetails(map[string]any{"transfer_id": id, "status": status, "action": action})
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input BuildInput) (*TransferDTO, error) {
	transfer, err := s.builder.Build(ctx, actor, input)
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transfer_id":   transfer.ID.String(),
		"from_store_id": transfer.FromStoreID.String(),
		"to_store_id":   transfer.ToStoreID.String(),
		"lines":         len(transfer.Items),
	})
	s.logg.Info(logCtx, "transfer created")
	return s.project(ctx, actor.BusinessID, transfer)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error) {
	if err := canOperate(actor); err != nil {
		return nil, err
	}
	transfer, err := s.repo.FindInBusiness(ctx, actor.BusinessID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transferNotFound(id)
		}
		return nil, pkgerrors.Storage(err, "load transfer")
	}
	return s.project(ctx, actor.BusinessID, transfer)
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[TransferDTO], error) {
	if err := canOperate(actor); err != nil {
		return pagination.Page[TransferDTO]{}, err
	}
	page := params.Pagination.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	rows, count, err := s.repo.List(ctx, actor.BusinessID, params.Status, page)
	if err != nil {
		return pagination.Page[TransferDTO]{}, pkgerrors.Storage(err, "list transfers")
	}
	n, err := s.lookupNames(ctx, actor.BusinessID, rows...)
	if err != nil {
		return pagination.Page[TransferDTO]{}, err
	}
	out := make([]TransferDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i], n))
	}
	return pagination.NewPage(out, count, page), nil
}

// Approve reserves every line at the source store and moves the transfer to
// in_transit. One short line rejects the whole approval.
func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error) {
	return s.transition(ctx, actor, id, ActionApprove, func(ctx context.Context, tx *gorm.DB, t *models.InventoryTransfer) (enums.TransferStatus, []notifications.StockChange, error) {
		if t.Status != enums.TransferStatusPending {
			return "", nil, invalidState(t.ID, t.Status, ActionApprove)
		}
		if len(t.Items) == 0 {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer has no items to approve").
				WithDetails(map[string]any{"transfer_id": t.ID})
		}
		ledger := s.ledger.WithTx(tx)
		changes := make([]notifications.StockChange, 0, len(t.Items))
		for _, item := range t.Items {
			line, err := ledger.Reserve(ctx, t.FromStoreID, item.ProductID, item.Quantity)
			if err != nil {
				return "", nil, err
			}
			changes = append(changes, notifications.ChangeFromLine(line, 0, inventory.ReasonReserve, &t.ID))
		}
		return enums.TransferStatusInTransit, changes, nil
	})
}

// Complete moves the reserved units from the source line to the destination
// line for every item. Any ledger failure here means the books disagree with
// the approval and rolls the whole completion back.
func (s *service) Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error) {
	return s.transition(ctx, actor, id, ActionComplete, func(ctx context.Context, tx *gorm.DB, t *models.InventoryTransfer) (enums.TransferStatus, []notifications.StockChange, error) {
		if t.Status != enums.TransferStatusInTransit {
			return "", nil, invalidState(t.ID, t.Status, ActionComplete)
		}
		names, err := s.repo.WithTx(tx).ProductNames(ctx, productIDs(t))
		if err != nil {
			return "", nil, err
		}
		ledger := s.ledger.WithTx(tx)
		ref := outbox.ActorFor(actor)
		changes := make([]notifications.StockChange, 0, 2*len(t.Items))
		for _, item := range t.Items {
			out, err := ledger.CommitTransferOut(ctx, t.FromStoreID, item.ProductID, item.Quantity)
			if err != nil {
				return "", nil, err
			}
			in, err := ledger.CommitTransferIn(ctx, t.ToStoreID, item.ProductID, item.Quantity)
			if err != nil {
				return "", nil, err
			}
			if err := s.events.Changed(ctx, tx, ref, t.BusinessID, out, -item.Quantity, inventory.ReasonTransferOut, &t.ID, names[item.ProductID]); err != nil {
				return "", nil, err
			}
			if err := s.events.Changed(ctx, tx, ref, t.BusinessID, in, item.Quantity, inventory.ReasonTransferIn, &t.ID, names[item.ProductID]); err != nil {
				return "", nil, err
			}
			changes = append(changes,
				notifications.ChangeFromLine(out, -item.Quantity, inventory.ReasonTransferOut, &t.ID),
				notifications.ChangeFromLine(in, item.Quantity, inventory.ReasonTransferIn, &t.ID),
			)
		}
		return enums.TransferStatusCompleted, changes, nil
	})
}

// Cancel ends a pending or in-transit transfer. Reservations exist only once
// the transfer was approved, so only then is the ledger touched.
func (s *service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDTO, error) {
	return s.transition(ctx, actor, id, ActionCancel, func(ctx context.Context, tx *gorm.DB, t *models.InventoryTransfer) (enums.TransferStatus, []notifications.StockChange, error) {
		switch t.Status {
		case enums.TransferStatusPending:
			return enums.TransferStatusCancelled, nil, nil
		case enums.TransferStatusInTransit:
		default:
			return "", nil, invalidState(t.ID, t.Status, ActionCancel)
		}
		ledger := s.ledger.WithTx(tx)
		changes := make([]notifications.StockChange, 0, len(t.Items))
		for _, item := range t.Items {
			line, err := ledger.ReleaseReservation(ctx, t.FromStoreID, item.ProductID, item.Quantity)
			if err != nil {
				return "", nil, err
			}
			changes = append(changes, notifications.ChangeFromLine(line, 0, inventory.ReasonRelease, &t.ID))
		}
		return enums.TransferStatusCancelled, changes, nil
	})
}

type stepFunc func(ctx context.Context, tx *gorm.DB, t *models.InventoryTransfer) (enums.TransferStatus, []notifications.StockChange, error)

// transition runs one workflow step as a single transaction: lock the
// transfer, apply the ledger calls, compare-and-set the status, queue the
// outbox event. Subscribers are told only after commit.
func (s *service) transition(ctx context.Context, actor auth.Actor, id uuid.UUID, action string, step stepFunc) (*TransferDTO, error) {
	started := time.Now()
	if err := canOperate(actor); err != nil {
		s.metrics.ObserveTransition(action, metrics.OutcomeRejected, time.Since(started))
		return nil, err
	}

	var (
		transfer *models.InventoryTransfer
		changes  []notifications.StockChange
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		t, err := repo.LockInBusiness(ctx, actor.BusinessID, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return transferNotFound(id)
			}
			return err
		}
		previous := t.Status

		next, stepChanges, err := step(ctx, tx, t)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		var completedAt *time.Time
		if next == enums.TransferStatusCompleted {
			completedAt = &now
		}
		ok, err := repo.CompareAndSetStatus(ctx, t.ID, previous, next, completedAt)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState(t.ID, previous, action)
		}
		t.Status = next
		t.CompletedAt = completedAt
		t.UpdatedAt = now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventFor(next),
			AggregateType: enums.AggregateTransfer,
			AggregateID:   t.ID,
			Actor:         outbox.ActorFor(actor),
			Data:          statusEvent(t, previous, next, now),
		}); err != nil {
			return err
		}
		transfer = t
		changes = stepChanges
		return nil
	})
	elapsed := time.Since(started)
	if err != nil {
		s.recordFailure(ctx, action, id, err, elapsed)
		return nil, pkgerrors.Storage(err, action+" transfer")
	}
	s.metrics.ObserveTransition(action, metrics.OutcomeSuccess, elapsed)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transfer_id": transfer.ID.String(),
		"action":      action,
		"status":      transfer.Status,
	})
	s.logg.Info(logCtx, "transfer transitioned")
	if len(changes) > 0 {
		s.notifier.StockChanged(ctx, transfer.BusinessID, changes)
	}
	return s.project(ctx, actor.BusinessID, transfer)
}

func (s *service) recordFailure(ctx context.Context, action string, id uuid.UUID, err error, elapsed time.Duration) {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() == pkgerrors.CodeStorage {
		s.metrics.ObserveTransition(action, metrics.OutcomeError, elapsed)
		logCtx := s.logg.WithField(ctx, "transfer_id", id.String())
		s.logg.Error(logCtx, "transfer "+action+" failed", err)
		return
	}
	if typed.Code() != pkgerrors.CodeInvariantViolation {
		s.metrics.ObserveTransition(action, metrics.OutcomeRejected, elapsed)
		return
	}

	s.metrics.ObserveTransition(action, metrics.OutcomeError, elapsed)
	fields := map[string]any{"transfer_id": id.String(), "action": action}
	operation := action
	if v, ok := typed.Details().(inventory.Violation); ok {
		operation = v.Operation
		fields["operation"] = v.Operation
		fields["store_id"] = v.StoreID.String()
		fields["product_id"] = v.ProductID.String()
		fields["requested"] = v.Requested
		fields["quantity"] = v.Quantity
		fields["reserved_quantity"] = v.ReservedQuantity
	}
	s.metrics.IncInvariantViolation(operation)
	s.logg.Error(s.logg.WithFields(ctx, fields), "inventory invariant violated; transfer left unchanged", err)
}

func eventFor(status enums.TransferStatus) enums.OutboxEventType {
	switch status {
	case enums.TransferStatusInTransit:
		return enums.EventTransferApproved
	case enums.TransferStatusCompleted:
		return enums.EventTransferCompleted
	default:
		return enums.EventTransferCancelled
	}
}

func productIDs(transfers ...*models.InventoryTransfer) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := []uuid.UUID{}
	for _, t := range transfers {
		for _, item := range t.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func (s *service) lookupNames(ctx context.Context, businessID uuid.UUID, rows ...models.InventoryTransfer) (names, error) {
	storeIDs := []uuid.UUID{}
	ptrs := make([]*models.InventoryTransfer, 0, len(rows))
	for i := range rows {
		storeIDs = append(storeIDs, rows[i].FromStoreID, rows[i].ToStoreID)
		ptrs = append(ptrs, &rows[i])
	}
	stores, err := s.stores.FindManyInBusiness(ctx, businessID, storeIDs...)
	if err != nil {
		return names{}, pkgerrors.Storage(err, "load store names")
	}
	products, err := s.products.NamesByID(ctx, productIDs(ptrs...))
	if err != nil {
		return names{}, pkgerrors.Storage(err, "load product names")
	}
	n := names{stores: make(map[uuid.UUID]string, len(stores)), products: products}
	for id, store := range stores {
		n.stores[id] = store.Name
	}
	return n, nil
}

func (s *service) project(ctx context.Context, businessID uuid.UUID, t *models.InventoryTransfer) (*TransferDTO, error) {
	n, err := s.lookupNames(ctx, businessID, *t)
	if err != nil {
		return nil, err
	}
	dto := toDTO(t, n)
	return &dto, nil
}
