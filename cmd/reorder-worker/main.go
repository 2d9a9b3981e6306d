package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stocklinehq/stockline-backend/internal/reorder"
	"github.com/stocklinehq/stockline-backend/pkg/config"
	"github.com/stocklinehq/stockline-backend/pkg/db"
	"github.com/stocklinehq/stockline-backend/pkg/logger"
	"github.com/stocklinehq/stockline-backend/pkg/metrics"
	"github.com/stocklinehq/stockline-backend/pkg/migrate"
	"github.com/stocklinehq/stockline-backend/pkg/outbox"
	"github.com/stocklinehq/stockline-backend/pkg/outbox/idempotency"
	"github.com/stocklinehq/stockline-backend/pkg/procurement"
	"github.com/stocklinehq/stockline-backend/pkg/pubsub"
	"github.com/stocklinehq/stockline-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "reorder-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "reorder-worker"

	logg = logger.New(logger.Options{
		ServiceName: "reorder-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient))

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	procurementClient, err := procurement.NewClient(context.Background(), cfg.Procurement, logg)
	requireResource(ctx, logg, "procurement client", err)

	repo := reorder.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	reorderService, err := reorder.NewService(reorder.ServiceParams{
		Repo:        repo,
		DB:          dbClient,
		Procurement: procurementClient,
		Outbox:      outboxService,
		Logger:      logg,
		Metrics:     metrics.NewReorderMetrics(prometheus.DefaultRegisterer),
		Planning:    cfg.Planning,
	})
	requireResource(ctx, logg, "reorder service", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	reactor, err := reorder.NewReactor(reorder.ReactorParams{
		Repo:        repo,
		Enqueuer:    reorderService,
		Idempotency: manager,
		Logger:      logg,
	})
	requireResource(ctx, logg, "inventory reactor", err)

	subscription := pubsubClient.InventorySubscription()
	if subscription == nil {
		requireResource(ctx, logg, "inventory subscription", errors.New("subscription not configured"))
	}

	service, err := NewService(subscription, reactor, logg)
	requireResource(ctx, logg, "reorder worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "reorder worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "reorder worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
