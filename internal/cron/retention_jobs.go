package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	outboxRetentionDays       = 30
	outboxMinAttempts         = 10
	notificationRetentionDays = 30
	dlqRetentionDays          = 90
)

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type notificationsCleanupRepo interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// DLQRetentionJobParams configures deletion of old dead letters.
type DLQRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository dlqRetentionRepo
	Retention  int
}

// OutboxRetentionJobParams configures deletion of published outbox rows.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
}

// NotificationCleanupJobParams configures deletion of read notifications.
type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	Retention  int
}

// retentionJob deletes rows older than a rolling cutoff in one transaction.
type retentionJob struct {
	name      string
	logg      *logger.Logger
	db        txRunner
	retention int
	purge     func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	now       func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	minAttempts := params.MinAttempts
	if minAttempts <= 0 {
		minAttempts = outboxMinAttempts
	}
	repo := params.Repository
	return newRetentionJob("outbox-retention", params.Logger, params.DB, params.Retention, outboxRetentionDays,
		func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
			return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
		})
}

func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params.Logger, params.DB, params.Retention, notificationRetentionDays,
		params.Repository.DeleteOlderThan)
}

func NewDLQRetentionJob(params DLQRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	return newRetentionJob("outbox-dlq-retention", params.Logger, params.DB, params.Retention, dlqRetentionDays,
		params.Repository.DeleteFailedBefore)
}

func newRetentionJob(
	name string,
	logg *logger.Logger,
	db txRunner,
	retention, fallback int,
	purge func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error),
) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if retention <= 0 {
		retention = fallback
	}
	return &retentionJob{
		name:      name,
		logg:      logg,
		db:        db,
		retention: retention,
		purge:     purge,
		now:       time.Now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		if err != nil {
			return err
		}
		deleted = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, j.name+" complete")
	return nil
}
