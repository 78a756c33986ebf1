package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLoggerReportsSlowAndFailedQueries(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: &buf})
	l := newGormLogger(logg, 50*time.Millisecond)
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT * FROM quotes", 3 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	require.Contains(t, buf.String(), "slow query")
	require.Contains(t, buf.String(), "SELECT * FROM quotes")

	buf.Reset()
	l.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))
	require.Contains(t, buf.String(), "query failed")

	buf.Reset()
	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now().Add(-time.Second), sql, errors.New("ignored"))
	require.Empty(t, buf.String())
}

func TestGormLoggerWithoutServiceLoggerDiscards(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newGormLogger(nil, 0))
}
