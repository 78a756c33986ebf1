package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

const defaultSweepInterval = 30 * time.Second

type quoteSweeper interface {
	ExpireDue(ctx context.Context, now time.Time) (quoterequests.SweepResult, error)
}

// QuoteExpiryJobParams configures the request and quote expiry sweep.
type QuoteExpiryJobParams struct {
	Logger   *logger.Logger
	Sweeper  quoteSweeper
	Interval time.Duration
}

// NewQuoteExpiryJob wraps the quote request sweeper as a periodic job.
func NewQuoteExpiryJob(params QuoteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &quoteExpiryJob{
		logg:     params.Logger,
		sweeper:  params.Sweeper,
		interval: interval,
		now:      time.Now,
	}, nil
}

type quoteExpiryJob struct {
	logg     *logger.Logger
	sweeper  quoteSweeper
	interval time.Duration
	now      func() time.Time
}

func (j *quoteExpiryJob) Name() string { return "quote-expiry" }

func (j *quoteExpiryJob) Every() time.Duration { return j.interval }

func (j *quoteExpiryJob) Run(ctx context.Context) error {
	result, err := j.sweeper.ExpireDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("quote expiry: %w", err)
	}
	if result.RequestsExpired == 0 && result.QuotesExpired == 0 {
		return nil
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"requests_expired": result.RequestsExpired,
		"quotes_expired":   result.QuotesExpired,
		"skipped":          result.Skipped,
	})
	j.logg.Info(logCtx, "quote expiry sweep complete")
	return nil
}
