package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

type fakeSweeper struct {
	result quoterequests.SweepResult
	err    error
	calls  []time.Time
}

func (f *fakeSweeper) ExpireDue(_ context.Context, now time.Time) (quoterequests.SweepResult, error) {
	f.calls = append(f.calls, now)
	return f.result, f.err
}

func newQuoteExpiryJob(t *testing.T, sweeper *fakeSweeper) *quoteExpiryJob {
	t.Helper()
	jobIface, err := NewQuoteExpiryJob(QuoteExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewQuoteExpiryJob: %v", err)
	}
	job, ok := jobIface.(*quoteExpiryJob)
	if !ok {
		t.Fatalf("expected quoteExpiryJob, got %T", jobIface)
	}
	return job
}

func TestQuoteExpiryJobSweepsAtCurrentTime(t *testing.T) {
	now := time.Date(2026, 6, 3, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{result: quoterequests.SweepResult{RequestsExpired: 2, QuotesExpired: 5}}
	job := newQuoteExpiryJob(t, sweeper)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sweeper.calls) != 1 || !sweeper.calls[0].Equal(now) {
		t.Fatalf("expected one sweep at %s, got %v", now, sweeper.calls)
	}
	if job.Every() != defaultSweepInterval {
		t.Fatalf("expected default interval, got %s", job.Every())
	}
}

func TestQuoteExpiryJobPropagatesError(t *testing.T) {
	job := newQuoteExpiryJob(t, &fakeSweeper{err: errors.New("db down")})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewQuoteExpiryJobRequiresSweeper(t *testing.T) {
	_, err := NewQuoteExpiryJob(QuoteExpiryJobParams{Logger: logger.New(logger.Options{ServiceName: "test"})})
	if err == nil {
		t.Fatal("expected error")
	}
}
