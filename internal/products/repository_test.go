package products

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
)

func seedProduct(t *testing.T, db *gorm.DB, businessID uuid.UUID, name string) models.Product {
	t.Helper()
	product := models.Product{
		BusinessID:   businessID,
		Name:         name,
		CostPrice:    decimal.RequireFromString("4.50"),
		SellingPrice: decimal.RequireFromString("7.25"),
		IsActive:     true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestFindInBusinessScopesTenant(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	ours := uuid.New()
	theirs := uuid.New()
	rice := seedProduct(t, conn, ours, "Rice 5kg")

	got, err := repo.FindInBusiness(context.Background(), ours, rice.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Rice 5kg" || !got.SellingPrice.Equal(decimal.RequireFromString("7.25")) {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.FindInBusiness(context.Background(), theirs, rice.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}
}

func TestFindManyInBusinessDropsForeignIDs(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	ours := uuid.New()
	rice := seedProduct(t, conn, ours, "Rice")
	oil := seedProduct(t, conn, ours, "Oil")
	foreign := seedProduct(t, conn, uuid.New(), "Soap")

	found, err := repo.FindManyInBusiness(context.Background(), ours, []uuid.UUID{rice.ID, oil.ID, foreign.ID, uuid.New()})
	if err != nil {
		t.Fatalf("find many: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 products, got %d", len(found))
	}
	if _, ok := found[foreign.ID]; ok {
		t.Fatalf("foreign product leaked into result")
	}

	names, err := repo.NamesByID(context.Background(), []uuid.UUID{rice.ID, foreign.ID})
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if names[rice.ID] != "Rice" || names[foreign.ID] != "Soap" {
		t.Fatalf("unexpected names %v", names)
	}
}
