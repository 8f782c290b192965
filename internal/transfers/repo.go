package transfers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/pagination"
)

// Repository persists transfers and their items.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to transfer persistence.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the transfer with its items.
func (r *Repository) Create(ctx context.Context, transfer *models.InventoryTransfer) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

func itemsInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindInBusiness loads a transfer and its items scoped to a business.
func (r *Repository) FindInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.InventoryTransfer, error) {
	var transfer models.InventoryTransfer
	if err := r.db.WithContext(ctx).
		Preload("Items", itemsInOrder).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

// LockInBusiness is FindInBusiness holding the transfer row lock on Postgres.
func (r *Repository) LockInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.InventoryTransfer, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}})
	}
	var transfer models.InventoryTransfer
	if err := q.
		Preload("Items", itemsInOrder).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&transfer).Error; err != nil {
		return nil, err
	}
	return &transfer, nil
}

// CompareAndSetStatus moves the transfer from one status to another and
// reports false when the row was no longer in from.
func (r *Repository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.TransferStatus, completedAt *time.Time) (bool, error) {
	fields := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	if completedAt != nil {
		fields["completed_at"] = *completedAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.InventoryTransfer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// List pages the transfers of a business, newest first.
func (r *Repository) List(ctx context.Context, businessID uuid.UUID, status *enums.TransferStatus, params pagination.Params) ([]models.InventoryTransfer, int64, error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.InventoryTransfer{}).Where("business_id = ?", businessID)
		if status != nil {
			q = q.Where("status = ?", *status)
		}
		return q
	}
	var count int64
	if err := base().Count(&count).Error; err != nil {
		return nil, 0, err
	}
	rows := []models.InventoryTransfer{}
	if count == 0 {
		return rows, 0, nil
	}
	if err := base().
		Preload("Items", itemsInOrder).
		Order("created_at DESC, id DESC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

// ListStale returns open transfers last touched before cutoff, across
// businesses, that have no flag event recorded yet. Excluding flagged rows
// keeps a full batch of old transfers from hiding newer ones.
func (r *Repository) ListStale(ctx context.Context, status enums.TransferStatus, cutoff time.Time, flag enums.OutboxEventType, limit int) ([]models.InventoryTransfer, error) {
	var rows []models.InventoryTransfer
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff.UTC()).
		Where("NOT EXISTS (SELECT 1 FROM outbox_events o WHERE o.aggregate_id = inventory_transfers.id AND o.event_type = ?)", flag).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ProductNames resolves product names through the repository's handle, so
// it can run inside a workflow transaction.
func (r *Repository) ProductNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   uuid.UUID
		Name string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select("id, name").
		Where("id IN ?", ids).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Name
	}
	return out, nil
}
