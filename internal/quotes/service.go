package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/pkg/db"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxNotesLength bounds provider notes on a quote.
const MaxNotesLength = 1000

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type submitRecorder interface {
	IncQuoteSubmitted()
}

// Service is the quote ledger.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error)
	ListActive(ctx context.Context, requestID, buyerID uuid.UUID, order SortOrder) ([]ActiveQuote, error)
	ListMine(ctx context.Context, providerID uuid.UUID, params ListMineParams) (*QuoteList, error)
	ExpirePendingForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, now time.Time) ([]payloads.QuoteRef, error)
	ExpireElapsed(ctx context.Context, now time.Time, limit int) (int, error)
}

// SubmitInput is a provider bid. ValidFor optionally shortens the quote's
// validity below the request window.
type SubmitInput struct {
	RequestID             uuid.UUID
	ProviderID            uuid.UUID
	DeliveryFeeCents      int64
	EstimatedDeliveryDate time.Time
	Notes                 *string
	ValidFor              *time.Duration
}

// SubmitResult reports the stored quote and whether it replaced an earlier bid.
type SubmitResult struct {
	Quote    *models.Quote
	Replaced bool
}

// ActiveQuote is a pending quote joined with its provider profile.
type ActiveQuote struct {
	models.Quote
	ProviderName   string
	ProviderRating decimal.Decimal
}

// ListMineParams filters a provider's own quotes.
type ListMineParams struct {
	pagination.Params
	State *enums.QuoteState
}

// QuoteList is one page of quotes.
type QuoteList struct {
	Quotes     []models.Quote
	NextCursor string
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo      Repository
	Requests  quoterequests.Repository
	Providers ProviderDirectory
	Tx        txRunner
	Outbox    outboxPublisher
	Metrics   submitRecorder
	Clock     func() time.Time
}

type service struct {
	repo      Repository
	requests  quoterequests.Repository
	providers ProviderDirectory
	tx        txRunner
	outbox    outboxPublisher
	metrics   submitRecorder
	clock     func() time.Time
}

// NewService builds the quote ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("quote request repository required")
	}
	if params.Providers == nil {
		return nil, fmt.Errorf("provider directory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		repo:      params.Repo,
		requests:  params.Requests,
		providers: params.Providers,
		tx:        params.Tx,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		clock:     params.Clock,
	}, nil
}

// Submit records a provider's bid, replacing the provider's existing PENDING
// quote on the same request. The request is row-locked and re-checked inside
// the transaction so a bid can never land on a request that was just closed.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*SubmitResult, error) {
	now := s.clock().UTC()
	notes, err := validateSubmit(input, now)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		request, err := s.requests.WithTx(tx).FindByIDForUpdate(ctx, input.RequestID)
		if err != nil {
			if quoterequests.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "quote request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote request")
		}
		if request.SellerID == input.ProviderID || request.BuyerID == input.ProviderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "providers cannot quote their own orders")
		}
		if !request.IsOpenAt(now) {
			return pkgerrors.New(pkgerrors.CodeRequestNotOpen, "quote request is no longer open")
		}

		validUntil := request.ExpiresAt
		if input.ValidFor != nil {
			if candidate := now.Add(*input.ValidFor); candidate.Before(validUntil) {
				validUntil = candidate
			}
		}

		repo := s.repo.WithTx(tx)
		quote, replaced, err := s.upsert(ctx, repo, input, notes, validUntil, now)
		if err != nil {
			return err
		}
		result = SubmitResult{Quote: quote, Replaced: replaced}

		event := outbox.DomainEvent{
			EventType:     enums.EventQuoteSubmitted,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Actor:         &outbox.ActorRef{UserID: input.ProviderID, Role: string(enums.ActorRoleProvider)},
			OccurredAt:    now,
			Data: payloads.QuoteSubmittedEvent{
				QuoteID:          quote.ID,
				RequestID:        request.ID,
				BuyerID:          request.BuyerID,
				ProviderID:       input.ProviderID,
				DeliveryFeeCents: quote.DeliveryFeeCents,
				Replaced:         replaced,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit quote submitted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncQuoteSubmitted()
	}
	return &result, nil
}

func (s *service) upsert(ctx context.Context, repo Repository, input SubmitInput, notes *string, validUntil, now time.Time) (*models.Quote, bool, error) {
	existing, err := repo.FindPendingByProvider(ctx, input.RequestID, input.ProviderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing quote")
	}

	if existing != nil {
		existing.DeliveryFeeCents = input.DeliveryFeeCents
		existing.EstimatedDeliveryDate = input.EstimatedDeliveryDate.UTC()
		existing.Notes = notes
		existing.ValidUntil = validUntil
		existing.UpdatedAt = now
		ok, err := repo.ReplacePending(ctx, existing)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace quote")
		}
		if !ok {
			return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "quote is no longer pending")
		}
		return existing, true, nil
	}

	quote := &models.Quote{
		ID:                    uuid.New(),
		RequestID:             input.RequestID,
		ProviderID:            input.ProviderID,
		DeliveryFeeCents:      input.DeliveryFeeCents,
		EstimatedDeliveryDate: input.EstimatedDeliveryDate.UTC(),
		Notes:                 notes,
		State:                 enums.QuoteStatePending,
		ValidUntil:            validUntil,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := repo.Create(ctx, quote); err != nil {
		if db.IsUniqueViolation(err, "uq_quotes_pending_provider") {
			return nil, false, pkgerrors.New(pkgerrors.CodeConflict, "a quote from this provider is already being recorded")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
	}
	return quote, false, nil
}

func validateSubmit(input SubmitInput, now time.Time) (*string, error) {
	if input.RequestID == uuid.Nil || input.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request and provider are required")
	}
	if input.DeliveryFeeCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidBid, "delivery fee must be greater than zero")
	}
	if input.EstimatedDeliveryDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery date is required")
	}
	today := now.Truncate(24 * time.Hour)
	if input.EstimatedDeliveryDate.UTC().Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated delivery date is in the past")
	}
	if input.ValidFor != nil && *input.ValidFor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity must be positive")
	}
	if input.Notes == nil {
		return nil, nil
	}
	notes := strings.TrimSpace(*input.Notes)
	if notes == "" {
		return nil, nil
	}
	if len(notes) > MaxNotesLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "notes must be at most %d characters", MaxNotesLength)
	}
	return &notes, nil
}

// ListActive returns the request's PENDING quotes that are still valid,
// expiring elapsed ones first. Only the owning buyer may list them.
func (s *service) ListActive(ctx context.Context, requestID, buyerID uuid.UUID, order SortOrder) ([]ActiveQuote, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if quoterequests.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote request")
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "quote request belongs to another buyer")
	}

	now := s.clock().UTC()
	if _, err := s.repo.ExpireElapsedForRequest(ctx, requestID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire elapsed quotes")
	}
	pending, err := s.repo.ListPending(ctx, requestID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}

	active := make([]ActiveQuote, 0, len(pending))
	providerIDs := make([]uuid.UUID, 0, len(pending))
	for _, quote := range pending {
		if !quote.IsActiveAt(now) {
			continue
		}
		active = append(active, ActiveQuote{Quote: quote})
		providerIDs = append(providerIDs, quote.ProviderID)
	}

	profiles, err := s.providers.Lookup(ctx, providerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load providers")
	}
	for i := range active {
		if profile, ok := profiles[active[i].ProviderID]; ok {
			active[i].ProviderName = profile.DisplayName
			active[i].ProviderRating = profile.Rating
		}
	}
	applySort(active, order)
	return active, nil
}

func (s *service) ListMine(ctx context.Context, providerID uuid.UUID, params ListMineParams) (*QuoteList, error) {
	if params.State != nil && !params.State.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid state filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByProvider(ctx, providerID, listParams{Limit: params.Limit, Cursor: cursor, State: params.State})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	list := &QuoteList{Quotes: rows}
	if list.Quotes == nil {
		list.Quotes = []models.Quote{}
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// ExpirePendingForRequest expires every PENDING quote on a request inside the
// caller's transaction.
func (s *service) ExpirePendingForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, now time.Time) ([]payloads.QuoteRef, error) {
	rows, err := s.repo.WithTx(tx).ExpirePendingForRequest(ctx, requestID, now)
	if err != nil {
		return nil, err
	}
	return QuoteRefs(rows), nil
}

func (s *service) ExpireElapsed(ctx context.Context, now time.Time, limit int) (int, error) {
	n, err := s.repo.ExpireElapsedOnOpenRequests(ctx, now, limit)
	return int(n), err
}

// QuoteRefs maps quotes to event references.
func QuoteRefs(rows []models.Quote) []payloads.QuoteRef {
	refs := make([]payloads.QuoteRef, 0, len(rows))
	for _, row := range rows {
		refs = append(refs, payloads.QuoteRef{QuoteID: row.ID, ProviderID: row.ProviderID})
	}
	return refs
}
