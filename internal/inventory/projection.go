package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/pagination"
)

// LineDTO is the read model of a stocked line.
type LineDTO struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Quantity          int             `json:"quantity"`
	ReservedQuantity  int             `json:"reserved_quantity"`
	AvailableQuantity int             `json:"available_quantity"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// SummaryDTO backs the store performance cards.
type SummaryDTO struct {
	StoreID           uuid.UUID `json:"store_id"`
	InventoryCount    int64     `json:"inventory_count"`
	LowStockCount     int64     `json:"low_stock_count"`
	LowStockThreshold int       `json:"low_stock_threshold"`
}

// Projection reads store_inventory joined with the catalog. It never writes.
type Projection struct {
	db *gorm.DB
}

func NewProjection(db *gorm.DB) *Projection {
	return &Projection{db: db}
}

func (p *Projection) stocked(ctx context.Context, storeID uuid.UUID, search string) *gorm.DB {
	q := p.db.WithContext(ctx).
		Table("store_inventory AS si").
		Joins("JOIN products p ON p.id = si.product_id").
		Where("si.store_id = ? AND si.quantity > 0", storeID)
	if term := strings.TrimSpace(search); term != "" {
		q = q.Where(`LOWER(p.name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(term))+"%")
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListStocked pages the lines of storeID holding stock, ordered by product name.
func (p *Projection) ListStocked(ctx context.Context, storeID uuid.UUID, params pagination.Params, search string) ([]LineDTO, int64, error) {
	var count int64
	if err := p.stocked(ctx, storeID, search).Count(&count).Error; err != nil {
		return nil, 0, err
	}
	rows := make([]LineDTO, 0, params.PageSize)
	if count == 0 {
		return rows, 0, nil
	}
	err := p.stocked(ctx, storeID, search).
		Select(`si.id AS id,
			si.product_id AS product_id,
			p.name AS product_name,
			si.quantity AS quantity,
			si.reserved_quantity AS reserved_quantity,
			si.quantity - si.reserved_quantity AS available_quantity,
			p.selling_price AS selling_price,
			si.updated_at AS updated_at`).
		Order("p.name ASC, si.id ASC").
		Limit(params.PageSize).
		Offset(params.Offset()).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

// Summary counts stocked lines and those at or below threshold.
func (p *Projection) Summary(ctx context.Context, storeID uuid.UUID, threshold int) (*SummaryDTO, error) {
	var row struct {
		InventoryCount int64
		LowStockCount  int64
	}
	err := p.db.WithContext(ctx).
		Raw(`SELECT COUNT(*) AS inventory_count,
			COALESCE(SUM(CASE WHEN quantity <= ? THEN 1 ELSE 0 END), 0) AS low_stock_count
			FROM store_inventory
			WHERE store_id = ? AND quantity > 0`, threshold, storeID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &SummaryDTO{
		StoreID:           storeID,
		InventoryCount:    row.InventoryCount,
		LowStockCount:     row.LowStockCount,
		LowStockThreshold: threshold,
	}, nil
}
