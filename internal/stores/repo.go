package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
)

// Repository handles store persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to store operations.
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

// Create persists a new store row.
func (r *Repository) Create(ctx context.Context, store *models.Store) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	return r.db.WithContext(ctx).Create(store).Error
}

// FindInBusiness loads a store scoped to its business.
func (r *Repository) FindInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", id, businessID).
		First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// LockInBusiness loads a store and, on Postgres, locks the row until the
// transaction ends.
func (r *Repository) LockInBusiness(ctx context.Context, businessID, id uuid.UUID) (*models.Store, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var store models.Store
	if err := q.Where("id = ? AND business_id = ?", id, businessID).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindManyInBusiness returns the stores of businessID among ids, keyed by id.
func (r *Repository) FindManyInBusiness(ctx context.Context, businessID uuid.UUID, ids ...uuid.UUID) (map[uuid.UUID]models.Store, error) {
	found := make(map[uuid.UUID]models.Store, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var rows []models.Store
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND id IN ?", businessID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		found[row.ID] = row
	}
	return found, nil
}

// ListByBusiness returns every store of a business, newest first.
func (r *Repository) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC, id DESC").
		Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// FindManagedBy returns the store managed by userID, if any.
func (r *Repository) FindManagedBy(ctx context.Context, businessID, userID uuid.UUID) ([]models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND manager_user_id = ?", businessID, userID).
		Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

// CountByBusiness counts every store of a business, active or not.
func (r *Repository) CountByBusiness(ctx context.Context, businessID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Store{}).Where("business_id = ?", businessID).Count(&n).Error
	return n, err
}

// ActiveNameTaken reports whether another active store of the business uses
// name, ignoring case and surrounding spaces.
func (r *Repository) ActiveNameTaken(ctx context.Context, businessID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("business_id = ? AND is_active = ? AND LOWER(name) = ?", businessID, true, strings.ToLower(strings.TrimSpace(name)))
	if exclude != nil {
		q = q.Where("id <> ?", *exclude)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// MainStore returns the current main store of a business, or nil.
func (r *Repository) MainStore(ctx context.Context, businessID uuid.UUID) (*models.Store, error) {
	var stores []models.Store
	if err := r.db.WithContext(ctx).
		Where("business_id = ? AND is_main_store = ?", businessID, true).
		Limit(1).
		Find(&stores).Error; err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, nil
	}
	return &stores[0], nil
}

// ClearMainExcept unsets is_main_store on every other store of the business.
func (r *Repository) ClearMainExcept(ctx context.Context, businessID, keep uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("business_id = ? AND id <> ? AND is_main_store = ?", businessID, keep, true).
		Update("is_main_store", false).Error
}

// DetachManager clears userID from any store other than keep.
func (r *Repository) DetachManager(ctx context.Context, userID, keep uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("manager_user_id = ? AND id <> ?", userID, keep).
		Updates(map[string]any{"manager_user_id": nil, "manager_name": nil}).Error
}

// UpdateFields applies a column map to one store.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Store{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// Delete hard-deletes a store row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Store{}, "id = ?", id).Error
}

// HasOpenTransfers reports pending or in-transit transfers touching the store.
func (r *Repository) HasOpenTransfers(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransfer{}).
		Where("(from_store_id = ? OR to_store_id = ?) AND status IN ?", storeID, storeID,
			[]enums.TransferStatus{enums.TransferStatusPending, enums.TransferStatusInTransit}).
		Count(&n).Error
	return n > 0, err
}

// HasHistory reports whether the store ever held inventory or took part in a transfer.
func (r *Repository) HasHistory(ctx context.Context, storeID uuid.UUID) (bool, error) {
	var lines int64
	if err := r.db.WithContext(ctx).
		Model(&models.StoreInventory{}).
		Where("store_id = ?", storeID).
		Count(&lines).Error; err != nil {
		return false, err
	}
	if lines > 0 {
		return true, nil
	}
	var transfers int64
	if err := r.db.WithContext(ctx).
		Model(&models.InventoryTransfer{}).
		Where("from_store_id = ? OR to_store_id = ?", storeID, storeID).
		Count(&transfers).Error; err != nil {
		return false, err
	}
	return transfers > 0, nil
}
