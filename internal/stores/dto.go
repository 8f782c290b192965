package stores

import (
	"time"

	"github.com/google/uuid"

	"github.com/supawave/supawave-backend/pkg/db/models"
)

// StoreDTO exposes store data in API responses.
type StoreDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	Phone         *string    `json:"phone,omitempty"`
	ManagerUserID *uuid.UUID `json:"manager_user_id,omitempty"`
	ManagerName   *string    `json:"manager_name,omitempty"`
	IsMainStore   bool       `json:"is_main_store"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// FromModel maps the persisted store into a DTO.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:            m.ID,
		Name:          m.Name,
		Address:       m.Address,
		Phone:         m.Phone,
		ManagerUserID: m.ManagerUserID,
		ManagerName:   m.ManagerName,
		IsMainStore:   m.IsMainStore,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// CreateStoreInput holds creation-time data for a new store.
type CreateStoreInput struct {
	Name    string
	Address string
	Phone   *string
}

// UpdateStoreInput captures the mutable store fields. Nil leaves a field as is.
type UpdateStoreInput struct {
	Name    *string
	Address *string
	Phone   *string
}

// RemoveResult reports how a store was removed.
type RemoveResult struct {
	StoreID     uuid.UUID `json:"store_id"`
	Deactivated bool      `json:"deactivated"`
	Deleted     bool      `json:"deleted"`
}
