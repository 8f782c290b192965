package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/models"
)

// Repository is a read-only view of the product catalog. Products are
// written by the catalog service.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to product lookups.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository that reads through tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindInBusiness loads a product only when it belongs to businessID.
func (r *Repository) FindInBusiness(ctx context.Context, businessID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND business_id = ?", productID, businessID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindManyInBusiness returns the products of businessID among ids, keyed by id.
// Ids that are unknown or owned by another business are absent from the map.
func (r *Repository) FindManyInBusiness(ctx context.Context, businessID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	found := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	var rows []models.Product
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

// NamesByID resolves display names for a set of products.
func (r *Repository) NamesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
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
		names[row.ID] = row.Name
	}
	return names, nil
}
