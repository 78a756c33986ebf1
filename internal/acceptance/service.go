// Package acceptance turns a buyer's choice of quote into an order. Accept is
// the only operation that changes several rows atomically: the request, the
// winning quote, its pending siblings and the new order.
package acceptance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/orders"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/lock"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/metrics"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	lockScope      = "accept"
	defaultLockTTL = 5 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type acceptRecorder interface {
	IncAccept(outcome string)
}

// LockStore is the Redis surface needed for the per-request accept mutex.
type LockStore interface {
	lock.Store
	LockKey(scope, id string) string
}

// Service accepts quotes.
type Service interface {
	Accept(ctx context.Context, quoteID, buyerID uuid.UUID) (*models.Order, error)
}

// ServiceParams groups the coordinator dependencies. Locks is optional.
type ServiceParams struct {
	Requests quoterequests.Repository
	Quotes   quotes.Repository
	Orders   orders.Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Locks    LockStore
	LockTTL  time.Duration
	Metrics  acceptRecorder
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	requests quoterequests.Repository
	quotes   quotes.Repository
	orders   orders.Repository
	tx       txRunner
	outbox   outboxPublisher
	locks    LockStore
	lockTTL  time.Duration
	metrics  acceptRecorder
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService validates dependencies and returns the coordinator.
func NewService(params ServiceParams) (Service, error) {
	if params.Requests == nil {
		return nil, fmt.Errorf("quote request repository required")
	}
	if params.Quotes == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.LockTTL <= 0 {
		params.LockTTL = defaultLockTTL
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		requests: params.Requests,
		quotes:   params.Quotes,
		orders:   params.Orders,
		tx:       params.Tx,
		outbox:   params.Outbox,
		locks:    params.Locks,
		lockTTL:  params.LockTTL,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    params.Clock,
	}, nil
}

func errNoLongerValid() error {
	return pkgerrors.New(pkgerrors.CodeQuoteNoLongerValid, pkgerrors.RefreshMessage)
}

// Accept closes the quote's request, accepts the quote, rejects its pending
// siblings and creates the order in one transaction. Concurrent calls on the
// same request race on the request's OPEN state; exactly one wins and the
// rest fail with QUOTE_NO_LONGER_VALID.
func (s *service) Accept(ctx context.Context, quoteID, buyerID uuid.UUID) (*models.Order, error) {
	if quoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	quote, err := s.quotes.FindByID(ctx, quoteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		s.record(metrics.AcceptOutcomeError)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	if s.logg != nil {
		ctx = s.logg.WithQuoteID(s.logg.WithQuoteRequestID(ctx, quote.RequestID.String()), quoteID.String())
	}

	release, acquired := s.acquire(ctx, quote.RequestID)
	if !acquired {
		s.record(metrics.AcceptOutcomeLocked)
		return nil, errNoLongerValid()
	}
	defer release()

	order, err := s.acceptTx(ctx, quoteID, buyerID)
	switch {
	case err == nil:
		s.record(metrics.AcceptOutcomeWon)
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "quote accepted")
		}
		return order, nil
	case pkgerrors.IsCode(err, pkgerrors.CodeQuoteNoLongerValid):
		s.record(metrics.AcceptOutcomeLostRace)
	case pkgerrors.IsCode(err, pkgerrors.CodeForbidden), pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
	default:
		s.record(metrics.AcceptOutcomeError)
		if s.logg != nil {
			s.logg.Error(ctx, "quote accept failed", err)
		}
	}
	return nil, err
}

func (s *service) acceptTx(ctx context.Context, quoteID, buyerID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.clock().UTC()
		quoteRepo := s.quotes.WithTx(tx)
		requestRepo := s.requests.WithTx(tx)

		quote, err := quoteRepo.FindByID(ctx, quoteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
		}
		request, err := requestRepo.FindByIDForUpdate(ctx, quote.RequestID)
		if err != nil {
			if quoterequests.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote request")
		}

		if !quote.IsActiveAt(now) || !request.IsOpenAt(now) {
			return errNoLongerValid()
		}
		if request.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "quote request belongs to another buyer")
		}

		closed, err := requestRepo.CloseIfOpen(ctx, request.ID, enums.CloseReasonAccepted, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close quote request")
		}
		if !closed {
			return errNoLongerValid()
		}
		accepted, err := quoteRepo.AcceptIfPending(ctx, quote.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept quote")
		}
		if !accepted {
			return errNoLongerValid()
		}
		rejected, err := quoteRepo.RejectPendingSiblings(ctx, request.ID, quote.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject sibling quotes")
		}

		order = newOrder(request, quote, now)
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return errNoLongerValid()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.emit(ctx, tx, request, quote, order, rejected, now)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, request *models.QuoteRequest, quote *models.Quote, order *models.Order, rejected []models.Quote, now time.Time) error {
	actor := &outbox.ActorRef{UserID: request.BuyerID, Role: string(enums.ActorRoleBuyer)}
	events := []outbox.DomainEvent{
		{
			EventType:     enums.EventQuoteAccepted,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   request.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.QuoteAcceptedEvent{
				RequestID:  request.ID,
				OrderID:    order.ID,
				BuyerID:    request.BuyerID,
				SellerID:   request.SellerID,
				Accepted:   payloads.QuoteRef{QuoteID: quote.ID, ProviderID: quote.ProviderID},
				Rejected:   quotes.QuoteRefs(rejected),
				AcceptedAt: now,
			},
		},
		{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:          order.ID,
				RequestID:        request.ID,
				BuyerID:          order.BuyerID,
				SellerID:         order.SellerID,
				ProviderID:       order.ProviderID,
				SubtotalCents:    order.SubtotalCents,
				DeliveryFeeCents: order.DeliveryFeeCents,
				TotalCents:       order.TotalCents,
			},
		},
	}
	if err := s.outbox.Emit(ctx, tx, events...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit acceptance events")
	}
	return nil
}

// newOrder snapshots the request's line items and the winning fee.
func newOrder(request *models.QuoteRequest, quote *models.Quote, now time.Time) *models.Order {
	items := make([]models.OrderLineItem, 0, len(request.LineItems))
	var subtotal int64
	for _, line := range request.LineItems {
		subtotal += line.LineSubtotalCents
		items = append(items, models.OrderLineItem{
			ID:             uuid.New(),
			ProductID:      line.ProductID,
			ProductKind:    line.ProductKind,
			Title:          line.Title,
			UnitPriceCents: line.UnitPriceCents,
			Qty:            line.Quantity,
			TotalCents:     line.LineSubtotalCents,
			CreatedAt:      now,
		})
	}
	return &models.Order{
		ID:               uuid.New(),
		RequestID:        request.ID,
		AcceptedQuoteID:  quote.ID,
		BuyerID:          request.BuyerID,
		SellerID:         request.SellerID,
		ProviderID:       quote.ProviderID,
		SubtotalCents:    subtotal,
		DeliveryFeeCents: quote.DeliveryFeeCents,
		TotalCents:       subtotal + quote.DeliveryFeeCents,
		PaymentMethod:    request.PaymentMethod,
		Status:           enums.OrderStatusConfirmed,
		Notes:            request.DeliveryNotes,
		Items:            items,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// acquire takes the per-request mutex when one is configured. A Redis
// failure degrades to running without the mutex.
func (s *service) acquire(ctx context.Context, requestID uuid.UUID) (func(), bool) {
	noop := func() {}
	if s.locks == nil {
		return noop, true
	}
	mutex, err := lock.NewRedisLock(s.locks, s.locks.LockKey(lockScope, requestID.String()), s.lockTTL)
	if err != nil {
		return noop, true
	}
	ok, err := mutex.Acquire(ctx)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "accept mutex unavailable")
		}
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := mutex.Release(context.WithoutCancel(ctx)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "release accept mutex")
		}
	}, true
}

func (s *service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.IncAccept(outcome)
	}
}
