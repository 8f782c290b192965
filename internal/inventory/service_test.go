package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/internal/notifications"
	"github.com/supawave/supawave-backend/internal/products"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db"
	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	pkgerrors "github.com/supawave/supawave-backend/pkg/errors"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/pagination"
)

type stubStoreAccess struct {
	stores map[uuid.UUID]*models.Store
}

func (s stubStoreAccess) Accessible(_ context.Context, actor auth.Actor, storeID uuid.UUID) (*models.Store, error) {
	store, ok := s.stores[storeID]
	if !ok || store.BusinessID != actor.BusinessID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return store, nil
}

type recordingNotifier struct {
	calls [][]notifications.StockChange
}

func (r *recordingNotifier) StockChanged(_ context.Context, _ uuid.UUID, changes []notifications.StockChange) {
	r.calls = append(r.calls, changes)
}

type serviceFixture struct {
	client   *db.Client
	svc      Service
	notifier *recordingNotifier
	actor    auth.Actor
	store    *models.Store
	inactive *models.Store
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	actor := auth.Actor{UserID: uuid.New(), BusinessID: uuid.New(), Role: enums.UserRoleOwner}
	store := &models.Store{ID: uuid.New(), BusinessID: actor.BusinessID, Name: "Kumasi Central", IsActive: true}
	inactive := &models.Store{ID: uuid.New(), BusinessID: actor.BusinessID, Name: "Old Depot", IsActive: false}
	notifier := &recordingNotifier{}
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())

	svc, err := NewService(Deps{
		Tx:         client,
		Ledger:     NewLedger(conn),
		Projection: NewProjection(conn),
		Stores:     stubStoreAccess{stores: map[uuid.UUID]*models.Store{store.ID: store, inactive.ID: inactive}},
		Products:   products.NewRepository(conn),
		Events:     NewStockEvents(emitter, 10),
		Notifier:   notifier,
		Config:     config.InventoryConfig{LowStockThreshold: 10, DefaultPageSize: 2, MaxPageSize: 5},
	})
	require.NoError(t, err)
	return serviceFixture{client: client, svc: svc, notifier: notifier, actor: actor, store: store, inactive: inactive}
}

func (f serviceFixture) product(t *testing.T, name, price string) models.Product {
	t.Helper()
	p := models.Product{
		BusinessID:   f.actor.BusinessID,
		Name:         name,
		CostPrice:    decimal.RequireFromString("1.00"),
		SellingPrice: decimal.RequireFromString(price),
		IsActive:     true,
	}
	require.NoError(t, f.client.DB().Create(&p).Error)
	return p
}

func (f serviceFixture) eventCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(Deps{})
	require.Error(t, err)
}

func TestAdjustRestockEmitsAndNotifies(t *testing.T) {
	f := newServiceFixture(t)
	sugar := f.product(t, "Sugar 1kg", "2.40")

	line, err := f.svc.Adjust(context.Background(), f.actor, f.store.ID, AdjustInput{ProductID: sugar.ID, Delta: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, line.Quantity)
	assert.Equal(t, 40, line.AvailableQuantity)
	assert.Equal(t, "Sugar 1kg", line.ProductName)

	assert.EqualValues(t, 1, f.eventCount(t, enums.EventStockChanged))
	assert.EqualValues(t, 0, f.eventCount(t, enums.EventStockLow))
	require.Len(t, f.notifier.calls, 1)
	assert.Equal(t, ReasonRestock, f.notifier.calls[0][0].Reason)

	_, err = f.svc.Adjust(context.Background(), f.actor, f.store.ID, AdjustInput{ProductID: sugar.ID, Delta: -35})
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.eventCount(t, enums.EventStockLow))
}

func TestAdjustRejectsShortageWithoutSideEffects(t *testing.T) {
	f := newServiceFixture(t)
	oil := f.product(t, "Palm Oil", "5.00")

	_, err := f.svc.Adjust(context.Background(), f.actor, f.store.ID, AdjustInput{ProductID: oil.ID, Delta: -1})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)
	assert.EqualValues(t, 0, f.eventCount(t, enums.EventStockChanged))
	assert.Empty(t, f.notifier.calls)
}

func TestAdjustValidation(t *testing.T) {
	f := newServiceFixture(t)
	oil := f.product(t, "Palm Oil", "5.00")
	ctx := context.Background()

	_, err := f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: oil.ID, Delta: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: uuid.New(), Delta: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Adjust(ctx, f.actor, f.inactive.ID, AdjustInput{ProductID: oil.ID, Delta: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	outsider := auth.Actor{UserID: uuid.New(), BusinessID: uuid.New(), Role: enums.UserRoleOwner}
	_, err = f.svc.Adjust(ctx, outsider, f.store.ID, AdjustInput{ProductID: oil.ID, Delta: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListPagesStockedLinesWithSearch(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	names := []string{"Bread", "Beans", "Butter", "Rice"}
	for i, name := range names {
		p := f.product(t, name, "3.10")
		_, err := f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: p.ID, Delta: 5 + i})
		require.NoError(t, err)
	}
	empty := f.product(t, "Biscuits", "0.90")
	_, err := f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: empty.ID, Delta: 2})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: empty.ID, Delta: -2})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.actor, f.store.ID, pagination.Params{}, "")
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Count)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "Beans", page.Results[0].ProductName)
	assert.Equal(t, "Bread", page.Results[1].ProductName)
	assert.True(t, page.Results[0].SellingPrice.Equal(decimal.RequireFromString("3.10")))

	page, err = f.svc.List(ctx, f.actor, f.store.ID, pagination.Params{Page: 1, PageSize: 10}, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Count)
	for _, line := range page.Results {
		assert.Greater(t, line.Quantity, 0)
		assert.Equal(t, line.Quantity-line.ReservedQuantity, line.AvailableQuantity)
	}
}

func TestSearchMatchesWildcardCharactersLiterally(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for _, name := range []string{"50% Off Voucher", "500g Sugar", "Big_Bag Rice", "BigXBag Rice"} {
		p := f.product(t, name, "2.00")
		_, err := f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: p.ID, Delta: 4})
		require.NoError(t, err)
	}

	cases := map[string][]string{
		"50%":   {"50% Off Voucher"},
		"g_b":   {"Big_Bag Rice"},
		`big\x`: nil,
		"rice":  {"Big_Bag Rice", "BigXBag Rice"},
	}
	for term, want := range cases {
		page, err := f.svc.List(ctx, f.actor, f.store.ID, pagination.Params{Page: 1, PageSize: 10}, term)
		require.NoError(t, err)
		got := make([]string, 0, len(page.Results))
		for _, line := range page.Results {
			got = append(got, line.ProductName)
		}
		assert.ElementsMatch(t, want, got, "search %q", term)
	}
}

func TestSummaryCountsLowStock(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	for i, qty := range []int{3, 10, 11, 50} {
		p := f.product(t, "Item "+string(rune('A'+i)), "1.00")
		_, err := f.svc.Adjust(ctx, f.actor, f.store.ID, AdjustInput{ProductID: p.ID, Delta: qty})
		require.NoError(t, err)
	}

	summary, err := f.svc.Summary(ctx, f.actor, f.store.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, summary.InventoryCount)
	assert.EqualValues(t, 2, summary.LowStockCount)
	assert.Equal(t, 10, summary.LowStockThreshold)
}
