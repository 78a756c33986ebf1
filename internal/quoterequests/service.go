package quoterequests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/pkg/config"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type cartReader interface {
	Group(ctx context.Context, buyerID, sellerID uuid.UUID) (*cart.SellerGroup, error)
	ClearSeller(ctx context.Context, tx *gorm.DB, buyerID, sellerID uuid.UUID) error
}

// Service is the quote request registry.
type Service interface {
	Create(ctx context.Context, draft cart.QuoteRequestDraft) (*models.QuoteRequest, error)
	CreateFromCart(ctx context.Context, buyerID, sellerID uuid.UUID, prefs cart.Preferences) (*models.QuoteRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error)
	GetForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.QuoteRequest, error)
	Close(ctx context.Context, id uuid.UUID, reason enums.CloseReason) (bool, error)
	ListOpenForProvider(ctx context.Context, providerID uuid.UUID, params pagination.Params) (*RequestList, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID, params BuyerListParams) (*RequestList, error)
}

// RequestList is one page of quote requests.
type RequestList struct {
	Requests   []models.QuoteRequest
	NextCursor string
}

// BuyerListParams filters a buyer's own requests.
type BuyerListParams struct {
	pagination.Params
	State *enums.QuoteRequestState
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Cart          cartReader
	DefaultExpiry time.Duration
	Clock         func() time.Time
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	cart          cartReader
	defaultExpiry time.Duration
	clock         func() time.Time
}

// NewService builds the registry service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quote request repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.DefaultExpiry == 0 {
		params.DefaultExpiry = 24 * time.Hour
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		cart:          params.Cart,
		defaultExpiry: params.DefaultExpiry,
		clock:         params.Clock,
	}, nil
}

// Create opens a request for the draft. A buyer may hold only one OPEN
// request per seller group. A zero QuotesExpireAfter means the configured
// default window; any other value outside [1h, 72h] is a validation error.
func (s *service) Create(ctx context.Context, draft cart.QuoteRequestDraft) (*models.QuoteRequest, error) {
	return s.create(ctx, draft, false)
}

// CreateFromCart snapshots the buyer's lines for sellerID into a new request
// and removes them from the cart in the same transaction.
func (s *service) CreateFromCart(ctx context.Context, buyerID, sellerID uuid.UUID, prefs cart.Preferences) (*models.QuoteRequest, error) {
	if s.cart == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart not configured")
	}
	group, err := s.cart.Group(ctx, buyerID, sellerID)
	if err != nil {
		return nil, err
	}
	draft, err := cart.BuildRequestDraft(buyerID, *group, prefs)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, draft, true)
}

func (s *service) create(ctx context.Context, draft cart.QuoteRequestDraft, clearCart bool) (*models.QuoteRequest, error) {
	if err := s.validateDraft(&draft); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	request := &models.QuoteRequest{
		ID:              uuid.New(),
		BuyerID:         draft.BuyerID,
		SellerID:        draft.SellerID,
		LineItems:       draft.LineItems,
		SubtotalCents:   draft.LineItems.SubtotalCents(),
		PaymentMethod:   draft.PaymentMethod,
		DeliveryNotes:   draft.DeliveryNotes,
		ExpireAfterMins: int(draft.QuotesExpireAfter / time.Minute),
		State:           enums.QuoteRequestStateOpen,
		ExpiresAt:       now.Add(draft.QuotesExpireAfter),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, request); err != nil {
			if db.IsUniqueViolation(err, "uq_quote_requests_open_group") {
				return pkgerrors.New(pkgerrors.CodeConflict, "an open quote request already exists for this seller")
			}
			if db.IsCheckViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "quote request violates a table constraint")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote request")
		}
		if clearCart {
			if err := s.cart.ClearSeller(ctx, tx, draft.BuyerID, draft.SellerID); err != nil {
				return err
			}
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventQuoteRequestCreated,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: request.BuyerID, Role: string(enums.ActorRoleBuyer)},
			OccurredAt:    now,
			Data: payloads.QuoteRequestCreatedEvent{
				RequestID:     request.ID,
				BuyerID:       request.BuyerID,
				SellerID:      request.SellerID,
				SubtotalCents: request.SubtotalCents,
				ExpiresAt:     request.ExpiresAt,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit quote request created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) validateDraft(draft *cart.QuoteRequestDraft) error {
	if draft.BuyerID == uuid.Nil || draft.SellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer and seller are required")
	}
	if draft.BuyerID == draft.SellerID {
		return pkgerrors.New(pkgerrors.CodeInvalidGroup, "cannot request quotes for your own listings")
	}
	if len(draft.LineItems) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "line items are required")
	}
	if draft.QuotesExpireAfter == 0 {
		draft.QuotesExpireAfter = s.defaultExpiry
	}
	if draft.QuotesExpireAfter < config.MinQuotesExpireAfter || draft.QuotesExpireAfter > config.MaxQuotesExpireAfter {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "quotes expire after must be between %s and %s", config.MinQuotesExpireAfter, config.MaxQuotesExpireAfter).
			WithDetails(map[string]any{"field": "quotesExpireAfter"})
	}
	if draft.PaymentMethod == "" || !draft.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if draft.DeliveryNotes != nil && strings.TrimSpace(*draft.DeliveryNotes) == "" {
		draft.DeliveryNotes = nil
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.QuoteRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote request")
	}
	return request, nil
}

func (s *service) GetForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.QuoteRequest, error) {
	request, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote request belongs to another buyer")
	}
	return request, nil
}

// Close is a compare-and-swap on the OPEN state. A caller that loses the race
// gets false and must skip its side effects.
func (s *service) Close(ctx context.Context, id uuid.UUID, reason enums.CloseReason) (bool, error) {
	if _, err := reason.TerminalState(); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid close reason")
	}
	closed, err := s.repo.CloseIfOpen(ctx, id, reason, s.clock().UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close quote request")
	}
	if closed {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *service) ListOpenForProvider(ctx context.Context, providerID uuid.UUID, params pagination.Params) (*RequestList, error) {
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListOpenForProvider(ctx, providerID, s.clock().UTC(), listParams{Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open quote requests")
	}
	return newRequestList(rows, next), nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID, params BuyerListParams) (*RequestList, error) {
	if params.State != nil && !params.State.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid state filter")
	}
	cursor, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListForBuyer(ctx, buyerID, listParams{Limit: params.Limit, Cursor: cursor, State: params.State})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quote requests")
	}
	return newRequestList(rows, next), nil
}

func parseCursor(value string) (*pagination.Cursor, error) {
	cursor, err := pagination.ParseCursor(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return cursor, nil
}

func newRequestList(rows []models.QuoteRequest, next *pagination.Cursor) *RequestList {
	list := &RequestList{Requests: rows}
	if list.Requests == nil {
		list.Requests = []models.QuoteRequest{}
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}
