package transfers

import (
	"time"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/pagination"
)

// ItemDTO is one line of a transfer response.
type ItemDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
}

// TransferDTO is the API projection of a transfer.
type TransferDTO struct {
	ID            uuid.UUID            `json:"id"`
	FromStore     uuid.UUID            `json:"from_store"`
	ToStore       uuid.UUID            `json:"to_store"`
	FromStoreName string               `json:"from_store_name"`
	ToStoreName   string               `json:"to_store_name"`
	Status        enums.TransferStatus `json:"status"`
	Notes         string               `json:"notes"`
	CreatedBy     uuid.UUID            `json:"created_by"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at"`
	Items         []ItemDTO            `json:"items"`
	TotalItems    int                  `json:"total_items"`
}

// LineInput is a requested (product, quantity) pair.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// BuildInput is the raw transfer request.
type BuildInput struct {
	FromStoreID uuid.UUID
	ToStoreID   uuid.UUID
	Notes       string
	Lines       []LineInput
}

// ListParams filters the transfer list.
type ListParams struct {
	Status     *enums.TransferStatus
	Pagination pagination.Params
}

type names struct {
	stores   map[uuid.UUID]string
	products map[uuid.UUID]string
}

func toDTO(t *models.InventoryTransfer, n names) TransferDTO {
	dto := TransferDTO{
		ID:            t.ID,
		FromStore:     t.FromStoreID,
		ToStore:       t.ToStoreID,
		FromStoreName: n.stores[t.FromStoreID],
		ToStoreName:   n.stores[t.ToStoreID],
		Status:        t.Status,
		Notes:         t.Notes,
		CreatedBy:     t.CreatedBy,
		CreatedAt:     t.CreatedAt,
		CompletedAt:   t.CompletedAt,
		Items:         make([]ItemDTO, 0, len(t.Items)),
	}
	for _, item := range t.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: n.products[item.ProductID],
			Quantity:    item.Quantity,
		})
		dto.TotalItems += item.Quantity
	}
	return dto
}
