package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/quotemarket-backend/api/routes"
	"github.com/angelmondragon/quotemarket-backend/internal/acceptance"
	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/internal/catalog"
	"github.com/angelmondragon/quotemarket-backend/internal/notifications"
	"github.com/angelmondragon/quotemarket-backend/internal/orders"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/auth/session"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/migrate"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	deps, err := buildDependencies(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Sessions = sessionManager

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildDependencies(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	conn := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(conn), logg)
	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)

	catalogRepo, err := catalog.NewRepository(conn)
	if err != nil {
		return routes.Dependencies{}, err
	}
	cartRepo, err := cart.NewRepository(conn)
	if err != nil {
		return routes.Dependencies{}, err
	}
	cartService, err := cart.NewService(cartRepo, catalogRepo)
	if err != nil {
		return routes.Dependencies{}, err
	}

	requestRepo := quoterequests.NewRepository(conn)
	requestService, err := quoterequests.NewService(quoterequests.ServiceParams{
		Repo:          requestRepo,
		Tx:            dbClient,
		Outbox:        outboxService,
		Cart:          cartService,
		DefaultExpiry: cfg.Marketplace.DefaultQuotesExpireAfter,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	quoteRepo := quotes.NewRepository(conn)
	quoteService, err := quotes.NewService(quotes.ServiceParams{
		Repo:      quoteRepo,
		Requests:  requestRepo,
		Providers: quotes.NewProviderDirectory(conn),
		Tx:        dbClient,
		Outbox:    outboxService,
		Metrics:   marketMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderRepo := orders.NewRepository(conn)
	acceptParams := acceptance.ServiceParams{
		Requests: requestRepo,
		Quotes:   quoteRepo,
		Orders:   orderRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		LockTTL:  cfg.Marketplace.AcceptLockTTL,
		Metrics:  marketMetrics,
		Logger:   logg,
	}
	if cfg.FeatureFlags.AcceptMutex {
		acceptParams.Locks = redisClient
	}
	acceptService, err := acceptance.NewService(acceptParams)
	if err != nil {
		return routes.Dependencies{}, err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:    orderRepo,
		Tx:      dbClient,
		Outbox:  outboxService,
		Metrics: marketMetrics,
	})
	if err != nil {
		return routes.Dependencies{}, err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Dependencies{}, err
	}

	return routes.Dependencies{
		DB:            dbClient,
		Redis:         redisClient,
		Cart:          cartService,
		QuoteRequests: requestService,
		Quotes:        quoteService,
		Acceptance:    acceptService,
		Orders:        orderService,
		Notifications: notificationService,
		HTTPMetrics:   metrics.NewHTTPMetrics(prometheus.DefaultRegisterer),
	}, nil
}
