package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promdto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/supawave/supawave-backend/internal/inventory"
	"github.com/supawave/supawave-backend/internal/notifications"
	"github.com/supawave/supawave-backend/internal/products"
	"github.com/supawave/supawave-backend/internal/stores"
	"github.com/supawave/supawave-backend/pkg/auth"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db"
	"github.com/supawave/supawave-backend/pkg/db/dbtest"
	"github.com/supawave/supawave-backend/pkg/db/models"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/metrics"
	"github.com/supawave/supawave-backend/pkg/outbox"
)

type recordingNotifier struct {
	batches [][]notifications.StockChange
}

func (r *recordingNotifier) StockChanged(_ context.Context, _ uuid.UUID, changes []notifications.StockChange) {
	r.batches = append(r.batches, changes)
}

type fixture struct {
	client   *db.Client
	svc      Service
	ledger   *inventory.Ledger
	notifier *recordingNotifier
	registry *prometheus.Registry
	owner    auth.Actor
	storeA   models.Store
	storeB   models.Store
	product  models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	owner := auth.Actor{UserID: uuid.New(), BusinessID: uuid.New(), Role: enums.UserRoleOwner}

	f := &fixture{
		client:   client,
		ledger:   inventory.NewLedger(conn),
		notifier: &recordingNotifier{},
		registry: prometheus.NewRegistry(),
		owner:    owner,
	}
	f.storeA = f.store(t, owner.BusinessID, "Store A")
	f.storeB = f.store(t, owner.BusinessID, "Store B")
	f.product = f.productIn(t, owner.BusinessID, "Product P")

	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	repo := NewRepository(conn)
	storeRepo := stores.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	builder, err := NewBuilder(client, repo, storeRepo, productRepo, emitter)
	require.NoError(t, err)

	svc, err := NewService(Deps{
		Tx:       client,
		Repo:     repo,
		Builder:  builder,
		Ledger:   f.ledger,
		Events:   inventory.NewStockEvents(emitter, 10),
		Stores:   storeRepo,
		Products: productRepo,
		Outbox:   emitter,
		Notifier: f.notifier,
		Metrics:  metrics.NewInventoryMetrics(f.registry),
		Paging:   config.InventoryConfig{DefaultPageSize: 20, MaxPageSize: 100},
		Now:      func() time.Time { return time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) store(t *testing.T, businessID uuid.UUID, name string) models.Store {
	t.Helper()
	s := models.Store{BusinessID: businessID, Name: name, IsActive: true}
	require.NoError(t, f.client.DB().Create(&s).Error)
	return s
}

func (f *fixture) productIn(t *testing.T, businessID uuid.UUID, name string) models.Product {
	t.Helper()
	p := models.Product{
		BusinessID:   businessID,
		Name:         name,
		CostPrice:    decimal.RequireFromString("3.00"),
		SellingPrice: decimal.RequireFromString("4.50"),
		IsActive:     true,
	}
	require.NoError(t, f.client.DB().Create(&p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, store models.Store, product models.Product, qty int) {
	t.Helper()
	_, err := f.ledger.AdjustQuantity(context.Background(), store.ID, product.ID, qty)
	require.NoError(t, err)
}

func (f *fixture) line(t *testing.T, store models.Store, product models.Product) (quantity, reserved int) {
	t.Helper()
	line, err := f.ledger.Line(context.Background(), store.ID, product.ID)
	require.NoError(t, err)
	if line == nil {
		return 0, 0
	}
	return line.Quantity, line.ReservedQuantity
}

func (f *fixture) transfer(t *testing.T, lines ...LineInput) *TransferDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), f.owner, BuildInput{
		FromStoreID: f.storeA.ID,
		ToStoreID:   f.storeB.ID,
		Notes:       "weekly restock",
		Lines:       lines,
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&n).Error)
	return n
}

func (f *fixture) totalQuantity(t *testing.T, product models.Product) int {
	t.Helper()
	var total int
	require.NoError(t, f.client.DB().
		Model(&models.StoreInventory{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", product.ID).
		Scan(&total).Error)
	return total
}

// metric reads one counter sample from the fixture registry; absent series read as zero.
func (f *fixture) metric(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *promdto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, pair := range m.GetLabel() {
		got[pair.GetName()] = pair.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
