package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotemarket-backend/internal/cron"
	"github.com/angelmondragon/quotemarket-backend/internal/notifications"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/lock"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/migrate"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run every job a single time and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logg, *once); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, bootLogger *logger.Logger, once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			bootLogger.Error(context.Background(), "error closing database", err)
		}
	}()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			bootLogger.Error(context.Background(), "error closing redis", err)
		}
	}()

	// one lock per environment so staging and prod workers never block each other
	cronLock, err := lock.NewRedisLock(redisClient, redisClient.LockKey("cron", cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("create cron lock: %w", err)
	}
	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     cronLock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return fmt.Errorf("create cron service: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"tick":        service.Tick().String(),
		"jobs":        registry.Names(),
	})
	if once {
		logg.Info(ctx, "running cron jobs once")
		return service.RunOnce(ctx)
	}
	if cfg.FeatureFlags.ServeMetrics {
		go metrics.Serve(ctx, logg, ":"+cfg.App.Port)
	}
	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	outboxService := outbox.NewService(outboxRepo, logg)
	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	requestRepo := quoterequests.NewRepository(conn)

	quoteService, err := quotes.NewService(quotes.ServiceParams{
		Repo:      quotes.NewRepository(conn),
		Requests:  requestRepo,
		Providers: quotes.NewProviderDirectory(conn),
		Tx:        dbClient,
		Outbox:    outboxService,
	})
	if err != nil {
		return nil, err
	}
	sweeper, err := quoterequests.NewSweeper(quoterequests.SweeperParams{
		Repo:      requestRepo,
		Tx:        dbClient,
		Outbox:    outboxService,
		Quotes:    quoteService,
		Metrics:   marketMetrics,
		Logger:    logg,
		BatchSize: cfg.Marketplace.SweepBatchSize,
	})
	if err != nil {
		return nil, err
	}

	expiryJob, err := cron.NewQuoteExpiryJob(cron.QuoteExpiryJobParams{
		Logger:   logg,
		Sweeper:  sweeper,
		Interval: cfg.Marketplace.SweepInterval,
	})
	if err != nil {
		return nil, err
	}
	outboxJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		Retention:   cfg.Cron.OutboxRetentionDays,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	notificationJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(conn),
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	dlqJob, err := cron.NewDLQRetentionJob(cron.DLQRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewDLQRepository(conn),
		Retention:  cfg.Cron.DLQRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(expiryJob, outboxJob, notificationJob, dlqJob)
}
