package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supawave/supawave-backend/pkg/db/models"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
)

// Ledger operation names, used in error details and metrics.
const (
	OpAdjust      = "adjust_quantity"
	OpReserve     = "reserve"
	OpRelease     = "release_reservation"
	OpCommitOut   = "commit_transfer_out"
	OpCommitIn    = "commit_transfer_in"
	OpGetOrCreate = "get_or_create_line"
)

// MaxQuantity is the largest stock count a line or transfer item can hold;
// both columns are Postgres integers.
const MaxQuantity = math.MaxInt32

// Shortage is attached to INSUFFICIENT_STOCK errors.
type Shortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	StoreID     uuid.UUID `json:"store_id"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// Violation is attached to INVARIANT_VIOLATION errors.
type Violation struct {
	Operation        string    `json:"operation"`
	StoreID          uuid.UUID `json:"store_id"`
	ProductID        uuid.UUID `json:"product_id"`
	Requested        int       `json:"requested"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reserved_quantity"`
	LineExists       bool      `json:"line_exists"`
}

// Ledger is the only writer of store_inventory. Every mutation is a single
// UPDATE whose WHERE clause restates the invariant, so the row lock taken by
// the statement is held until the surrounding transaction ends and a
// rejected change leaves the row untouched. Several calls are made atomic by
// binding the ledger to one transaction with WithTx.
type Ledger struct {
	db *gorm.DB
}

// NewLedger binds a GORM DB to ledger operations.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a ledger that runs every statement on tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	if tx == nil {
		return l
	}
	return &Ledger{db: tx}
}

// GetOrCreateLine returns the (store, product) line, inserting an empty one
// when none exists. Concurrent creators converge on the same row.
func (l *Ledger) GetOrCreateLine(ctx context.Context, storeID, productID uuid.UUID) (*models.StoreInventory, error) {
	line := models.StoreInventory{StoreID: storeID, ProductID: productID}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&line).Error
	if err != nil {
		return nil, pkgerrors.Storage(err, "create inventory line")
	}
	found, err := l.find(ctx, storeID, productID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "load inventory line")
	}
	return found, nil
}

// AdjustQuantity applies delta to quantity. A decrease may not take quantity
// below zero nor below the units already reserved for outbound transfers.
func (l *Ledger) AdjustQuantity(ctx context.Context, storeID, productID uuid.UUID, delta int) (*models.StoreInventory, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity delta must be non-zero")
	}
	if delta > MaxQuantity || delta < -MaxQuantity {
		return nil, tooLarge(delta)
	}
	if delta > 0 {
		if _, err := l.GetOrCreateLine(ctx, storeID, productID); err != nil {
			return nil, err
		}
		ok, err := l.apply(ctx, storeID, productID,
			map[string]any{"quantity": gorm.Expr("quantity + ?", delta)},
			"quantity <= ?", MaxQuantity-delta)
		if err != nil {
			return nil, pkgerrors.Storage(err, "adjust inventory quantity")
		}
		if !ok {
			return nil, l.overflow(ctx, OpAdjust, storeID, productID, delta)
		}
		return l.reload(ctx, storeID, productID)
	}
	ok, err := l.apply(ctx, storeID, productID,
		map[string]any{"quantity": gorm.Expr("quantity + ?", delta)},
		"quantity + ? >= reserved_quantity", delta)
	if err != nil {
		return nil, pkgerrors.Storage(err, "adjust inventory quantity")
	}
	if !ok {
		return nil, l.shortage(ctx, storeID, productID, -delta)
	}
	return l.reload(ctx, storeID, productID)
}

// Reserve earmarks qty units of available stock.
func (l *Ledger) Reserve(ctx context.Context, storeID, productID uuid.UUID, qty int) (*models.StoreInventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	ok, err := l.apply(ctx, storeID, productID,
		map[string]any{"reserved_quantity": gorm.Expr("reserved_quantity + ?", qty)},
		"quantity - reserved_quantity >= ?", qty)
	if err != nil {
		return nil, pkgerrors.Storage(err, "reserve inventory")
	}
	if !ok {
		return nil, l.shortage(ctx, storeID, productID, qty)
	}
	return l.reload(ctx, storeID, productID)
}

// ReleaseReservation returns qty reserved units to available stock. Releasing
// more than is reserved means the books are already wrong and is reported,
// never clamped.
func (l *Ledger) ReleaseReservation(ctx context.Context, storeID, productID uuid.UUID, qty int) (*models.StoreInventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	ok, err := l.apply(ctx, storeID, productID,
		map[string]any{"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty)},
		"reserved_quantity >= ?", qty)
	if err != nil {
		return nil, pkgerrors.Storage(err, "release reservation")
	}
	if !ok {
		return nil, l.violation(ctx, OpRelease, storeID, productID, qty)
	}
	return l.reload(ctx, storeID, productID)
}

// CommitTransferOut removes qty units that were reserved for a transfer.
func (l *Ledger) CommitTransferOut(ctx context.Context, storeID, productID uuid.UUID, qty int) (*models.StoreInventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	ok, err := l.apply(ctx, storeID, productID,
		map[string]any{
			"quantity":          gorm.Expr("quantity - ?", qty),
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", qty),
		},
		"reserved_quantity >= ? AND quantity >= ?", qty, qty)
	if err != nil {
		return nil, pkgerrors.Storage(err, "commit transfer out")
	}
	if !ok {
		return nil, l.violation(ctx, OpCommitOut, storeID, productID, qty)
	}
	return l.reload(ctx, storeID, productID)
}

// CommitTransferIn adds qty units at the destination, creating the line if absent.
func (l *Ledger) CommitTransferIn(ctx context.Context, storeID, productID uuid.UUID, qty int) (*models.StoreInventory, error) {
	if err := requirePositive(qty); err != nil {
		return nil, err
	}
	if _, err := l.GetOrCreateLine(ctx, storeID, productID); err != nil {
		return nil, err
	}
	ok, err := l.apply(ctx, storeID, productID,
		map[string]any{"quantity": gorm.Expr("quantity + ?", qty)},
		"quantity <= ?", MaxQuantity-qty)
	if err != nil {
		return nil, pkgerrors.Storage(err, "commit transfer in")
	}
	if !ok {
		return nil, l.overflow(ctx, OpCommitIn, storeID, productID, qty)
	}
	return l.reload(ctx, storeID, productID)
}

// Line reads a line without locking it. A missing line is returned as nil.
func (l *Ledger) Line(ctx context.Context, storeID, productID uuid.UUID) (*models.StoreInventory, error) {
	line, err := l.find(ctx, storeID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Storage(err, "load inventory line")
	}
	return line, nil
}

func (l *Ledger) apply(ctx context.Context, storeID, productID uuid.UUID, set map[string]any, guard string, args ...any) (bool, error) {
	set["updated_at"] = time.Now().UTC()
	stmt := l.db.WithContext(ctx).
		Model(&models.StoreInventory{}).
		Where("store_id = ? AND product_id = ?", storeID, productID)
	if guard != "" {
		stmt = stmt.Where(guard, args...)
	}
	res := stmt.Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (l *Ledger) find(ctx context.Context, storeID, productID uuid.UUID) (*models.StoreInventory, error) {
	var line models.StoreInventory
	if err := l.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (l *Ledger) reload(ctx context.Context, storeID, productID uuid.UUID) (*models.StoreInventory, error) {
	line, err := l.find(ctx, storeID, productID)
	if err != nil {
		return nil, pkgerrors.Storage(err, "reload inventory line")
	}
	return line, nil
}

// shortage classifies a rejected decrease or reservation. A missing line has
// nothing available.
func (l *Ledger) shortage(ctx context.Context, storeID, productID uuid.UUID, requested int) error {
	available := 0
	line, err := l.find(ctx, storeID, productID)
	switch {
	case err == nil:
		available = line.Available()
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Storage(err, "load inventory line")
	}

	var name string
	if err := l.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("name").
		Where("id = ?", productID).
		Scan(&name).Error; err != nil {
		return pkgerrors.Storage(err, "load product name")
	}
	if name == "" {
		name = productID.String()
	}

	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("Insufficient stock for %s", name)).
		WithDetails(Shortage{
			ProductID:   productID,
			ProductName: name,
			StoreID:     storeID,
			Requested:   requested,
			Available:   available,
		})
}

func (l *Ledger) violation(ctx context.Context, op string, storeID, productID uuid.UUID, requested int) error {
	details := Violation{Operation: op, StoreID: storeID, ProductID: productID, Requested: requested}
	line, err := l.find(ctx, storeID, productID)
	switch {
	case err == nil:
		details.LineExists = true
		details.Quantity = line.Quantity
		details.ReservedQuantity = line.ReservedQuantity
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.Storage(err, "load inventory line")
	}
	return pkgerrors.New(pkgerrors.CodeInvariantViolation, fmt.Sprintf("inventory invariant violated during %s", op)).
		WithDetails(details)
}

// overflow reports an increase that would push quantity past MaxQuantity. A
// line that vanished between the insert and the update is a violation.
func (l *Ledger) overflow(ctx context.Context, op string, storeID, productID uuid.UUID, added int) error {
	line, err := l.find(ctx, storeID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return l.violation(ctx, op, storeID, productID, added)
	}
	if err != nil {
		return pkgerrors.Storage(err, "load inventory line")
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity cannot exceed %d", MaxQuantity)).
		WithDetails(map[string]any{"store_id": storeID, "product_id": productID, "quantity": line.Quantity, "requested": added})
}

func tooLarge(qty int) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be at most %d", MaxQuantity)).
		WithDetails(map[string]any{"requested": qty})
}

func requirePositive(qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if qty > MaxQuantity {
		return tooLarge(qty)
	}
	return nil
}
