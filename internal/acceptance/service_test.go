package acceptance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/orders"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *outcomeRecorder) IncAccept(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}

type memLocks struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memLocks) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]string{}
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	return true, nil
}

func (m *memLocks) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *memLocks) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memLocks) LockKey(scope, id string) string {
	return "qm:lock:" + scope + ":" + id
}

type fixture struct {
	conn    *gorm.DB
	now     time.Time
	metrics *outcomeRecorder
	buyer   uuid.UUID
	seller  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		conn:    dbtest.Open(t),
		now:     time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
		metrics: &outcomeRecorder{},
		buyer:   uuid.New(),
		seller:  uuid.New(),
	}
}

func (f *fixture) service(t *testing.T, locks LockStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Requests: quoterequests.NewRepository(f.conn),
		Quotes:   quotes.NewRepository(f.conn),
		Orders:   orders.NewRepository(f.conn),
		Tx:       db.NewFromConn(f.conn),
		Outbox:   outbox.NewService(outbox.NewRepository(f.conn), nil),
		Locks:    locks,
		Metrics:  f.metrics,
		Clock:    func() time.Time { return f.now },
	})
	require.NoError(t, err)
	return svc
}

func (f *fixture) openRequest(t *testing.T) models.QuoteRequest {
	t.Helper()
	notes := "leave at the loading dock"
	request := models.QuoteRequest{
		ID:       uuid.New(),
		BuyerID:  f.buyer,
		SellerID: f.seller,
		LineItems: types.LineItemSnapshots{
			{ProductID: uuid.New(), SellerID: f.seller, ProductKind: enums.ProductKindStandard, Title: "Lamp", UnitPriceCents: 2500, Quantity: 2, LineSubtotalCents: 5000},
			{ProductID: uuid.New(), SellerID: f.seller, ProductKind: enums.ProductKindStandard, Title: "Shade", UnitPriceCents: 500, Quantity: 1, LineSubtotalCents: 500},
		},
		SubtotalCents:   5500,
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		DeliveryNotes:   &notes,
		ExpireAfterMins: 24 * 60,
		State:           enums.QuoteRequestStateOpen,
		ExpiresAt:       f.now.Add(24 * time.Hour),
		CreatedAt:       f.now,
		UpdatedAt:       f.now,
	}
	require.NoError(t, f.conn.Create(&request).Error)
	return request
}

func (f *fixture) pendingQuote(t *testing.T, requestID uuid.UUID, fee int64, validUntil time.Time) models.Quote {
	t.Helper()
	quote := models.Quote{
		ID:                    uuid.New(),
		RequestID:             requestID,
		ProviderID:            uuid.New(),
		DeliveryFeeCents:      fee,
		EstimatedDeliveryDate: f.now.Add(48 * time.Hour),
		State:                 enums.QuoteStatePending,
		ValidUntil:            validUntil,
		CreatedAt:             f.now,
		UpdatedAt:             f.now,
	}
	require.NoError(t, f.conn.Create(&quote).Error)
	return quote
}

func (f *fixture) quoteState(t *testing.T, id uuid.UUID) enums.QuoteState {
	t.Helper()
	var quote models.Quote
	require.NoError(t, f.conn.First(&quote, "id = ?", id).Error)
	return quote.State
}

func (f *fixture) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.conn.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

func TestAcceptCreatesOrderAndRejectsSiblings(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)
	losing := f.pendingQuote(t, request.ID, 1200, request.ExpiresAt)
	winning := f.pendingQuote(t, request.ID, 1000, request.ExpiresAt)

	f.now = f.now.Add(time.Hour)
	order, err := svc.Accept(context.Background(), winning.ID, f.buyer)
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusConfirmed, order.Status)
	assert.Equal(t, winning.ProviderID, order.ProviderID)
	assert.Equal(t, f.seller, order.SellerID)
	assert.Equal(t, int64(5500), order.SubtotalCents)
	assert.Equal(t, int64(1000), order.DeliveryFeeCents)
	assert.Equal(t, int64(6500), order.TotalCents)
	assert.Equal(t, request.DeliveryNotes, order.Notes)
	require.Len(t, order.Items, 2)

	assert.Equal(t, enums.QuoteStateAccepted, f.quoteState(t, winning.ID))
	assert.Equal(t, enums.QuoteStateRejected, f.quoteState(t, losing.ID))

	var closed models.QuoteRequest
	require.NoError(t, f.conn.First(&closed, "id = ?", request.ID).Error)
	assert.Equal(t, enums.QuoteRequestStateClosed, closed.State)
	require.NotNil(t, closed.CloseReason)
	assert.Equal(t, enums.CloseReasonAccepted, *closed.CloseReason)

	assert.EqualValues(t, 2, f.count(t, &models.OrderLineItem{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventQuoteAccepted))
	assert.EqualValues(t, 1, f.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderCreated))
	assert.Equal(t, 1, f.metrics.outcomes[metrics.AcceptOutcomeWon])
}

func TestAcceptRejectsLapsedQuote(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)
	quote := f.pendingQuote(t, request.ID, 900, f.now.Add(2*time.Hour))

	f.now = f.now.Add(3 * time.Hour)
	_, err := svc.Accept(context.Background(), quote.ID, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid))
	assert.EqualValues(t, 0, f.count(t, &models.Order{}, "request_id = ?", request.ID))
	assert.Equal(t, 1, f.metrics.outcomes[metrics.AcceptOutcomeLostRace])
}

func TestAcceptRejectsExpiredRequest(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)
	quote := f.pendingQuote(t, request.ID, 900, request.ExpiresAt)

	f.now = request.ExpiresAt.Add(time.Minute)
	_, err := svc.Accept(context.Background(), quote.ID, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid))
	assert.Equal(t, enums.QuoteStatePending, f.quoteState(t, quote.ID))
}

func TestAcceptForbiddenForOtherBuyer(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)
	quote := f.pendingQuote(t, request.ID, 900, request.ExpiresAt)

	_, err := svc.Accept(context.Background(), quote.ID, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, enums.QuoteStatePending, f.quoteState(t, quote.ID))
}

func TestAcceptUnknownQuote(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)

	_, err := svc.Accept(context.Background(), uuid.New(), f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAcceptTwiceFailsSecondTime(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)
	quote := f.pendingQuote(t, request.ID, 700, request.ExpiresAt)

	_, err := svc.Accept(context.Background(), quote.ID, f.buyer)
	require.NoError(t, err)
	_, err = svc.Accept(context.Background(), quote.ID, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid))
	assert.EqualValues(t, 1, f.count(t, &models.Order{}, "request_id = ?", request.ID))
}

func TestConcurrentAcceptsProduceOneOrder(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, &memLocks{})
	request := f.openRequest(t)
	first := f.pendingQuote(t, request.ID, 1100, request.ExpiresAt)
	second := f.pendingQuote(t, request.ID, 1000, request.ExpiresAt)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), id, f.buyer)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.EqualValues(t, 1, f.count(t, &models.Order{}, "request_id = ?", request.ID))
	assert.EqualValues(t, 1, f.count(t, &models.Quote{}, "request_id = ? AND state = ?", request.ID, enums.QuoteStateAccepted))
}

func TestConcurrentAcceptsWithoutMutexProduceOneOrder(t *testing.T) {
	f := newFixture(t)
	svc := f.service(t, nil)
	request := f.openRequest(t)

	ids := make([]uuid.UUID, 0, 6)
	for i := range 6 {
		ids = append(ids, f.pendingQuote(t, request.ID, int64(900+i*50), request.ExpiresAt).ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), id, f.buyer)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Zero(t, f.metrics.outcomes[metrics.AcceptOutcomeLocked])
	assert.Equal(t, len(ids)-1, f.metrics.outcomes[metrics.AcceptOutcomeLostRace])
	assert.EqualValues(t, 1, f.count(t, &models.Order{}, "request_id = ?", request.ID))
	assert.EqualValues(t, 1, f.count(t, &models.Quote{}, "request_id = ? AND state = ?", request.ID, enums.QuoteStateAccepted))
	assert.EqualValues(t, len(ids)-1, f.count(t, &models.Quote{}, "request_id = ? AND state = ?", request.ID, enums.QuoteStateRejected))
}

func TestAcceptReportsHeldMutex(t *testing.T) {
	f := newFixture(t)
	locks := &memLocks{}
	svc := f.service(t, locks)
	request := f.openRequest(t)
	quote := f.pendingQuote(t, request.ID, 800, request.ExpiresAt)

	held, err := locks.SetNX(context.Background(), locks.LockKey(lockScope, request.ID.String()), "other", time.Second)
	require.NoError(t, err)
	require.True(t, held)

	_, err = svc.Accept(context.Background(), quote.ID, f.buyer)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid))
	assert.Equal(t, 1, f.metrics.outcomes[metrics.AcceptOutcomeLocked])
	assert.Equal(t, enums.QuoteStatePending, f.quoteState(t, quote.ID))
}
