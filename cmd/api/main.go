package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/omarserrano/dishpatch-backend/api/controllers"
	"github.com/omarserrano/dishpatch-backend/api/routes"
	"github.com/omarserrano/dishpatch-backend/internal/cart"
	"github.com/omarserrano/dishpatch-backend/internal/menu"
	"github.com/omarserrano/dishpatch-backend/internal/notifications"
	"github.com/omarserrano/dishpatch-backend/internal/orders"
	"github.com/omarserrano/dishpatch-backend/internal/placement"
	"github.com/omarserrano/dishpatch-backend/pkg/config"
	"github.com/omarserrano/dishpatch-backend/pkg/db"
	"github.com/omarserrano/dishpatch-backend/pkg/logger"
	"github.com/omarserrano/dishpatch-backend/pkg/metrics"
	"github.com/omarserrano/dishpatch-backend/pkg/migrate"
	"github.com/omarserrano/dishpatch-backend/pkg/outbox"
	"github.com/omarserrano/dishpatch-backend/pkg/pricing"
	"github.com/omarserrano/dishpatch-backend/pkg/pubsub"
	"github.com/omarserrano/dishpatch-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	// Pub/Sub is only needed by the outbox publisher worker, but the API
	// still probes it for readiness when configured.
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
		readiness["pubsub"] = pubsubClient
	}

	registry := prometheus.NewRegistry()
	stats := metrics.NewPipelineMetrics(registry)

	cartMirror := cart.NewMirror(redisClient, cfg.Cache, logg, stats)
	cartRepo := cart.NewRepository(dbClient.DB())
	cartService, err := cart.NewService(
		cartRepo,
		cartMirror,
		menu.NewRepository(dbClient.DB()),
		pricing.NewFlatRatePolicy(cfg.Pricing),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	orderRepo := orders.NewRepository(dbClient.DB())
	orderService, err := orders.NewService(orderRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	placementService, err := placement.NewService(
		cartRepo,
		cartMirror,
		orderRepo,
		placement.NewLedger(dbClient.DB()),
		dbClient,
		outboxService,
		redisClient,
		cfg.Ledger,
		logg,
		stats,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create placement service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, registry, cartService, orderService, placementService, notificationService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
