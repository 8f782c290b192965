package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/supawave/supawave-backend/api/routes"
	"github.com/supawave/supawave-backend/internal/inventory"
	"github.com/supawave/supawave-backend/internal/notifications"
	"github.com/supawave/supawave-backend/internal/products"
	"github.com/supawave/supawave-backend/internal/stores"
	"github.com/supawave/supawave-backend/internal/transfers"
	"github.com/supawave/supawave-backend/internal/users"
	"github.com/supawave/supawave-backend/pkg/config"
	"github.com/supawave/supawave-backend/pkg/db"
	"github.com/supawave/supawave-backend/pkg/logger"
	"github.com/supawave/supawave-backend/pkg/metrics"
	"github.com/supawave/supawave-backend/pkg/migrate"
	"github.com/supawave/supawave-backend/pkg/outbox"
	"github.com/supawave/supawave-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	var notifier notifications.StockNotifier = notifications.Noop{}
	if cfg.FeatureFlags.RealtimeStockFeed {
		notifier = notifications.NewRedisNotifier(redisClient, logg)
	}

	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	storeRepo := stores.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	stockEvents := inventory.NewStockEvents(emitter, cfg.Inventory.LowStockThreshold)
	ledger := inventory.NewLedger(conn)

	storeService, err := stores.NewService(storeRepo, dbClient, users.NewRepository(conn), emitter, logg)
	if err != nil {
		logg.Error(ctx, "failed to create store service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.Deps{
		Tx:         dbClient,
		Ledger:     ledger,
		Projection: inventory.NewProjection(conn),
		Stores:     storeService,
		Products:   productRepo,
		Events:     stockEvents,
		Notifier:   notifier,
		Config:     cfg.Inventory,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create inventory service", err)
		os.Exit(1)
	}

	transferRepo := transfers.NewRepository(conn)
	builder, err := transfers.NewBuilder(dbClient, transferRepo, storeRepo, productRepo, emitter)
	if err != nil {
		logg.Error(ctx, "failed to create transfer builder", err)
		os.Exit(1)
	}
	transferService, err := transfers.NewService(transfers.Deps{
		Tx:       dbClient,
		Repo:     transferRepo,
		Builder:  builder,
		Ledger:   ledger,
		Events:   stockEvents,
		Stores:   storeRepo,
		Products: productRepo,
		Outbox:   emitter,
		Notifier: notifier,
		Metrics:  inventoryMetrics,
		Paging:   cfg.Inventory,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create transfer service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			registry,
			storeService,
			inventoryService,
			transferService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}
