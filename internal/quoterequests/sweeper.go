package quoterequests

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultSweepBatchSize = 200

// QuoteExpirer expires pending quotes on behalf of the sweeper.
type QuoteExpirer interface {
	ExpirePendingForRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, now time.Time) ([]payloads.QuoteRef, error)
	ExpireElapsed(ctx context.Context, now time.Time, limit int) (int, error)
}

type expiryRecorder interface {
	AddExpired(requests, quotes int)
}

// SweepResult summarises one sweep.
type SweepResult struct {
	RequestsExpired int
	QuotesExpired   int
	Skipped         int
}

// SweeperParams groups the sweeper dependencies.
type SweeperParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outboxPublisher
	Quotes    QuoteExpirer
	Metrics   expiryRecorder
	Logger    *logger.Logger
	BatchSize int
}

// Sweeper closes quote requests whose window elapsed.
type Sweeper struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	quotes    QuoteExpirer
	metrics   expiryRecorder
	logg      *logger.Logger
	batchSize int
}

// NewSweeper validates dependencies and returns a Sweeper.
func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("quote request repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Quotes == nil {
		return nil, fmt.Errorf("quote expirer required")
	}
	if params.BatchSize <= 0 {
		params.BatchSize = defaultSweepBatchSize
	}
	return &Sweeper{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		quotes:    params.Quotes,
		metrics:   params.Metrics,
		logg:      params.Logger,
		batchSize: params.BatchSize,
	}, nil
}

// ExpireDue closes every OPEN request with expiresAt <= now, expiring its
// pending quotes in the same transaction, then expires pending quotes whose
// validUntil elapsed on requests that are still open. A request already
// closed by a concurrent accept is skipped. Per-request failures are
// combined and retried on the next sweep.
func (s *Sweeper) ExpireDue(ctx context.Context, now time.Time) (SweepResult, error) {
	now = now.UTC()
	var result SweepResult

	due, err := s.repo.FindDue(ctx, now, s.batchSize)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load due quote requests")
	}

	var errs error
	for _, request := range due {
		expired, quotes, err := s.expireOne(ctx, request.ID, request.BuyerID, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire request %s: %w", request.ID, err))
			continue
		}
		if !expired {
			result.Skipped++
			continue
		}
		result.RequestsExpired++
		result.QuotesExpired += quotes
	}

	orphans, err := s.quotes.ExpireElapsed(ctx, now, s.batchSize)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("expire elapsed quotes: %w", err))
	}
	result.QuotesExpired += orphans

	if s.metrics != nil {
		s.metrics.AddExpired(result.RequestsExpired, result.QuotesExpired)
	}
	if s.logg != nil && (result.RequestsExpired > 0 || result.QuotesExpired > 0) {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"requests_expired": result.RequestsExpired,
			"quotes_expired":   result.QuotesExpired,
			"skipped":          result.Skipped,
		})
		s.logg.Info(logCtx, "quote expiry sweep completed")
	}
	return result, errs
}

func (s *Sweeper) expireOne(ctx context.Context, requestID, buyerID uuid.UUID, now time.Time) (bool, int, error) {
	var (
		closed  bool
		expired []payloads.QuoteRef
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		closed, err = s.repo.WithTx(tx).CloseIfOpen(ctx, requestID, enums.CloseReasonExpired, now)
		if err != nil {
			return err
		}
		if !closed {
			return nil
		}
		expired, err = s.quotes.ExpirePendingForRequest(ctx, tx, requestID, now)
		if err != nil {
			return err
		}
		if expired == nil {
			expired = []payloads.QuoteRef{}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteRequestExpired,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   requestID,
			Actor:         &outbox.ActorRef{Role: string(enums.ActorRoleSystem)},
			OccurredAt:    now,
			Data: payloads.QuoteRequestExpiredEvent{
				RequestID: requestID,
				BuyerID:   buyerID,
				Expired:   expired,
				ExpiredAt: now,
			},
		})
	})
	if err != nil {
		return false, 0, err
	}
	return closed, len(expired), nil
}
