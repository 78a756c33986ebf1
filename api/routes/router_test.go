package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/quotemarket-backend/pkg/auth"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type stubOrdersService struct {
	lastActor orders.Actor
}

func (s *stubOrdersService) Advance(context.Context, orders.AdvanceInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusProcessing}, nil
}

func (s *stubOrdersService) ConfirmDelivery(context.Context, orders.ConfirmDeliveryInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusDelivered}, nil
}

func (s *stubOrdersService) Cancel(context.Context, orders.CancelInput) (*models.Order, error) {
	return &models.Order{ID: uuid.New(), Status: enums.OrderStatusCancelled}, nil
}

func (s *stubOrdersService) Get(context.Context, uuid.UUID, orders.Actor) (*orders.OrderDetail, error) {
	return &orders.OrderDetail{Order: &models.Order{ID: uuid.New()}}, nil
}

func (s *stubOrdersService) List(_ context.Context, actor orders.Actor, _ orders.ListParams) (*orders.OrderList, error) {
	s.lastActor = actor
	return &orders.OrderList{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{
			QuoteSubmitWindow: time.Minute,
			QuoteSubmitLimit:  30,
			AcceptWindow:      time.Minute,
			AcceptLimit:       10,
		},
	}
}

func newTestRouter(cfg *config.Config, ordersSvc orders.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(cfg, logg, Dependencies{
		DB:       stubPinger{},
		Sessions: stubSessions{},
		Orders:   ordersSvc,
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	return buildTokenWithUserID(t, cfg, role, uuid.New())
}

func buildTokenWithUserID(t *testing.T, cfg *config.Config, role enums.ActorRole, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, target, token string) *httptest.ResponseRecorder {
	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader(`{}`)
	}
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	resp := serve(router, http.MethodGet, "/health/live", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	resp := serve(router, http.MethodGet, "/health/ready", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &stubOrdersService{})
	resp := serve(router, http.MethodGet, "/api/v1/orders", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestSharedOrdersListUsesTokenIdentity(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(cfg, svc)
	userID := uuid.New()

	resp := serve(router, http.MethodGet, "/api/v1/orders", buildTokenWithUserID(t, cfg, enums.ActorRoleSeller, userID))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.lastActor.UserID != userID || svc.lastActor.Role != enums.ActorRoleSeller {
		t.Fatalf("unexpected actor %+v", svc.lastActor)
	}
}

func TestRoleGroups(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &stubOrdersService{})
	orderID := uuid.NewString()

	cases := []struct {
		name   string
		method string
		path   string
		role   enums.ActorRole
		want   int
	}{
		{"provider cannot use cart", http.MethodGet, "/api/v1/cart", enums.ActorRoleProvider, http.StatusForbidden},
		{"buyer cannot list open requests", http.MethodGet, "/api/v1/provider/quote-requests", enums.ActorRoleBuyer, http.StatusForbidden},
		{"buyer cannot advance", http.MethodPost, "/api/v1/provider/orders/" + orderID + "/advance", enums.ActorRoleBuyer, http.StatusForbidden},
		{"provider cannot seller-cancel", http.MethodPost, "/api/v1/seller/orders/" + orderID + "/cancel", enums.ActorRoleProvider, http.StatusForbidden},
		{"seller cannot accept quotes", http.MethodPost, "/api/v1/quotes/" + orderID + "/accept", enums.ActorRoleSeller, http.StatusForbidden},
		{"seller reads order detail", http.MethodGet, "/api/v1/orders/" + orderID, enums.ActorRoleSeller, http.StatusOK},
		{"provider reads order detail", http.MethodGet, "/api/v1/orders/" + orderID, enums.ActorRoleProvider, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(router, tc.method, tc.path, buildToken(t, cfg, tc.role))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestMetricsRouteFollowsFlag(t *testing.T) {
	cfg := testConfig()
	resp := serve(newTestRouter(cfg, &stubOrdersService{}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled got %d", resp.Code)
	}

	cfg.FeatureFlags.ServeMetrics = true
	resp = serve(newTestRouter(cfg, &stubOrdersService{}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with metrics enabled got %d", resp.Code)
	}
}
