package quoterequests

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	conn   *gorm.DB
	client *db.Client
	repo   Repository
	outbox *outbox.Service
	clock  *testClock
	svc    Service
}

func newFixture(t *testing.T, cartReader cartReader) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{
		conn:   conn,
		client: db.NewFromConn(conn),
		repo:   NewRepository(conn),
		outbox: outbox.NewService(outbox.NewRepository(conn), nil),
		clock:  &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
	}
	svc, err := NewService(ServiceParams{
		Repo:          f.repo,
		Tx:            f.client,
		Outbox:        f.outbox,
		Cart:          cartReader,
		DefaultExpiry: 24 * time.Hour,
		Clock:         f.clock.Now,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func newDraft(buyer, seller uuid.UUID) cart.QuoteRequestDraft {
	lines := types.LineItemSnapshots{{
		ProductID:         uuid.New(),
		SellerID:          seller,
		ProductKind:       enums.ProductKindStandard,
		Title:             "Crate",
		UnitPriceCents:    1500,
		Quantity:          2,
		LineSubtotalCents: 3000,
	}}
	return cart.QuoteRequestDraft{
		BuyerID:       buyer,
		SellerID:      seller,
		LineItems:     lines,
		SubtotalCents: lines.SubtotalCents(),
		PaymentMethod: enums.PaymentMethodCashOnDelivery,
	}
}

func insertPendingQuote(t *testing.T, conn *gorm.DB, requestID uuid.UUID, validUntil time.Time) models.Quote {
	t.Helper()
	quote := models.Quote{
		ID:                    uuid.New(),
		RequestID:             requestID,
		ProviderID:            uuid.New(),
		DeliveryFeeCents:      500,
		EstimatedDeliveryDate: validUntil.Add(24 * time.Hour),
		State:                 enums.QuoteStatePending,
		ValidUntil:            validUntil,
		CreatedAt:             validUntil.Add(-time.Hour),
		UpdatedAt:             validUntil.Add(-time.Hour),
	}
	require.NoError(t, conn.Create(&quote).Error)
	return quote
}

func countOutbox(t *testing.T, conn *gorm.DB, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

type stubCart struct {
	group   *cart.SellerGroup
	err     error
	cleared []uuid.UUID
}

func (s *stubCart) Group(_ context.Context, _, _ uuid.UUID) (*cart.SellerGroup, error) {
	return s.group, s.err
}

func (s *stubCart) ClearSeller(_ context.Context, _ *gorm.DB, _, sellerID uuid.UUID) error {
	s.cleared = append(s.cleared, sellerID)
	return nil
}
