package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
)

func TestFindManagerRequiresRoleAndTenant(t *testing.T) {
	conn := dbtest.Open(t).DB()
	repo := NewRepository(conn)
	businessID := uuid.New()

	manager := models.User{BusinessID: businessID, Username: "amina", FullName: "Amina Yusuf", Role: enums.UserRoleManager, IsActive: true}
	staff := models.User{BusinessID: businessID, Username: "kofi", Role: enums.UserRoleStaff, IsActive: true}
	for _, u := range []*models.User{&manager, &staff} {
		if err := conn.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	got, err := repo.FindManager(context.Background(), businessID, manager.ID)
	if err != nil {
		t.Fatalf("find manager: %v", err)
	}
	if got.DisplayName() != "Amina Yusuf" {
		t.Fatalf("unexpected display name %q", got.DisplayName())
	}

	if _, err := repo.FindManager(context.Background(), businessID, staff.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("staff must not resolve as manager, got %v", err)
	}
	if _, err := repo.FindManager(context.Background(), uuid.New(), manager.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("manager of another business must not resolve, got %v", err)
	}
}
