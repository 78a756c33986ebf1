package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quotemarket-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/quotemarket-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/quotemarket-backend/api/controllers/orders"
	requestcontrollers "github.com/angelmondragon/quotemarket-backend/api/controllers/quoterequests"
	quotecontrollers "github.com/angelmondragon/quotemarket-backend/api/controllers/quotes"
	"github.com/angelmondragon/quotemarket-backend/api/middleware"
	"github.com/angelmondragon/quotemarket-backend/internal/acceptance"
	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/internal/notifications"
	"github.com/angelmondragon/quotemarket-backend/internal/orders"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/auth/session"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is built from.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         *redis.Client
	Sessions      session.AccessSessionChecker
	Cart          cart.Service
	QuoteRequests quoterequests.Service
	Quotes        quotes.Service
	Acceptance    acceptance.Service
	Orders        orders.Service
	Notifications notifications.Service
	HTTPMetrics   *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	submitPolicy := middleware.NewRateLimitPolicy("quote-submit", cfg.RateLimit.QuoteSubmitWindow, cfg.RateLimit.QuoteSubmitLimit)
	acceptPolicy := middleware.NewRateLimitPolicy("quote-accept", cfg.RateLimit.AcceptWindow, cfg.RateLimit.AcceptLimit)

	// Writes accept an Idempotency-Key; decisions that move money or end an order keep replays for a week.
	idem := middleware.Idempotency(idempotencyStore(deps.Redis), middleware.IdempotencyTTL, logg)
	critical := middleware.Idempotency(idempotencyStore(deps.Redis), middleware.CriticalIdempotencyTTL, logg)

	readiness := map[string]controllers.Pinger{"postgres": deps.DB}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if cfg.FeatureFlags.ServeMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleBuyer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
				r.With(idem).Put("/items", cartcontrollers.CartUpsertLine(deps.Cart, logg))
				r.Delete("/items/{productId}", cartcontrollers.CartRemoveLine(deps.Cart, logg))
			})
			r.Route("/quote-requests", func(r chi.Router) {
				r.With(idem).Post("/", requestcontrollers.Create(deps.QuoteRequests, logg))
				r.Get("/", requestcontrollers.ListMine(deps.QuoteRequests, logg))
				r.Get("/{requestId}", requestcontrollers.Detail(deps.QuoteRequests, logg))
				r.Get("/{requestId}/quotes", quotecontrollers.ListForRequest(deps.Quotes, logg))
			})
			r.With(middleware.RateLimit(acceptPolicy, rateLimitStore(deps.Redis), logg), critical).
				Post("/quotes/{quoteId}/accept", ordercontrollers.AcceptQuote(deps.Acceptance, logg))
			r.With(critical).Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
		})

		r.Route("/provider", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleProvider))
			r.Get("/quote-requests", requestcontrollers.ProviderOpen(deps.QuoteRequests, logg))
			r.With(middleware.RateLimit(submitPolicy, rateLimitStore(deps.Redis), logg), idem).
				Post("/quote-requests/{requestId}/quotes", quotecontrollers.Submit(deps.Quotes, logg))
			r.Get("/quotes", quotecontrollers.ListMine(deps.Quotes, logg))
			r.With(idem).Post("/orders/{orderId}/advance", ordercontrollers.Advance(deps.Orders, logg))
			r.With(critical).Post("/orders/{orderId}/confirm-delivery", ordercontrollers.ConfirmDelivery(deps.Orders, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleSeller))
			r.With(idem).Post("/orders/{orderId}/advance", ordercontrollers.Advance(deps.Orders, logg))
			r.With(critical).Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleBuyer, enums.ActorRoleSeller, enums.ActorRoleProvider))
			r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.With(idem).Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})
	})

	return r
}

// A nil *redis.Client must reach the middleware as a nil interface.
func idempotencyStore(client *redis.Client) redis.IdempotencyStore {
	if client == nil {
		return nil
	}
	return client
}

func rateLimitStore(client *redis.Client) middleware.RateLimitStore {
	if client == nil {
		return nil
	}
	return client
}
