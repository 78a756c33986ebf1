package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/quotemarket-backend/internal/notifications"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/instance"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/registry"
	"github.com/angelmondragon/quotemarket-backend/pkg/pubsub"
	"github.com/angelmondragon/quotemarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	consumers, err := buildConsumers(cfg, logg, dbClient, redisClient, pubsubClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build notification consumers", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		PubSub:    pubsubClient,
		Consumers: consumers,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.FeatureFlags.ServeMetrics {
		go metrics.Serve(ctx, logg, ":"+cfg.App.Port)
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "worker shutting down gracefully")
}

func buildConsumers(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, pubsubClient *pubsub.Client) ([]Runner, error) {
	notifier, err := notifications.NewNotifier(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, err
	}
	decoder, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return nil, err
	}
	guard, err := idempotency.NewGuard(redisClient, cfg.Eventing.OutboxIdempotencyTTL, cfg.Eventing.ClaimLease)
	if err != nil {
		return nil, err
	}

	quoteConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Name:         "notifications-quotes",
		Subscription: pubsubClient.QuotesSubscription(),
		Sender:       notifier,
		Decoder:      decoder,
		Idempotency:  guard,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}
	orderConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Name:         "notifications-orders",
		Subscription: pubsubClient.OrdersSubscription(),
		Sender:       notifier,
		Decoder:      decoder,
		Idempotency:  guard,
		Logger:       logg,
	})
	if err != nil {
		return nil, err
	}
	return []Runner{quoteConsumer, orderConsumer}, nil
}
