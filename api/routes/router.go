package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/supawave/supawave-backend/api/controllers"
	"github.com/supawave/supawave-backend/api/middleware"
	"github.com/supawave/supawave-backend/internal/inventory"
	"github.com/supawave/supawave-backend/internal/stores"
	"github.com/supawave/supawave-backend/internal/transfers"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/enums"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/metrics"
	pkgredis "github.com/supawave/supawave-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idemStore pkgredis.IdempotencyStore,
	gatherer prometheus.Gatherer,
	storeService stores.Service,
	inventoryService inventory.Service,
	transferService transfers.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: dbP},
			controllers.ReadinessCheck{Name: "redis", Pinger: redisP},
		))
	})

	if gatherer != nil {
		r.Handle("/metrics", metrics.Handler(gatherer))
	}

	idem := middleware.Idempotency(idemStore, cfg.FeatureFlags.IdempotencyKeyTTL, logg)
	ownerOnly := middleware.RequireRole(logg, enums.UserRoleOwner)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleOwner, enums.UserRoleManager))

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", controllers.StoreList(storeService, logg))
			r.With(ownerOnly, idem).Post("/", controllers.StoreCreate(storeService, logg))

			r.Route("/{storeId}", func(r chi.Router) {
				r.Get("/", controllers.StoreGet(storeService, logg))
				r.With(ownerOnly, idem).Patch("/", controllers.StoreUpdate(storeService, logg))
				r.With(ownerOnly, idem).Delete("/", controllers.StoreDelete(storeService, logg))
				r.With(ownerOnly, idem).Post("/set-main", controllers.StoreSetMain(storeService, logg))
				r.With(ownerOnly, idem).Post("/assign-manager", controllers.StoreAssignManager(storeService, logg))

				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", controllers.InventoryList(inventoryService, logg))
					r.Get("/summary", controllers.InventorySummary(inventoryService, logg))
					r.With(idem).Post("/adjust", controllers.InventoryAdjust(inventoryService, logg))
				})
			})
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Get("/", controllers.TransferList(transferService, logg))
			r.With(ownerOnly, idem).Post("/", controllers.TransferCreate(transferService, logg))

			r.Route("/{transferId}", func(r chi.Router) {
				r.Get("/", controllers.TransferGet(transferService, logg))
				r.With(idem).Post("/approve", controllers.TransferApprove(transferService, logg))
				r.With(idem).Post("/complete", controllers.TransferComplete(transferService, logg))
				r.With(idem).Post("/cancel", controllers.TransferCancel(transferService, logg))
			})
		})
	})

	return r
}
