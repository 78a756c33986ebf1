package outbox

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
)

func TestServiceEmitStoresEnvelope(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))

	requestID := uuid.New()
	buyerID := uuid.New()
	err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventQuoteRequestExpired,
		AggregateType: enums.AggregateQuoteRequest,
		AggregateID:   requestID,
		Actor:         &ActorRef{UserID: buyerID, Role: string(enums.ActorRoleSystem)},
		Data:          payloads.QuoteRequestExpiredEvent{RequestID: requestID, BuyerID: buyerID},
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, requestID, rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.NotNil(t, envelope.Actor)
	require.Equal(t, buyerID, envelope.Actor.UserID)
}

func TestServiceEmitWritesNothingWhenAnyEventIsInvalid(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	valid := DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Data:          payloads.OrderCreatedEvent{},
	}

	cases := map[string]DomainEvent{
		"unknown type":      {EventType: "driver_rated", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()},
		"unknown aggregate": {EventType: enums.EventOrderCreated, AggregateType: "shipment", AggregateID: uuid.New()},
		"no aggregate id":   {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder},
		"unencodable data":  {EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: uuid.New(), Data: make(chan int)},
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, svc.Emit(context.Background(), conn, valid, bad))
			var count int64
			require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
			require.Zero(t, count)
		})
	}

	require.ErrorIs(t, svc.Emit(context.Background(), nil, valid), ErrTxRequired)
}

func TestServiceEmitKeepsCallerOrder(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	orderID := uuid.New()

	require.NoError(t, svc.Emit(context.Background(), conn,
		DomainEvent{EventType: enums.EventQuoteAccepted, AggregateType: enums.AggregateQuoteRequest, AggregateID: uuid.New(), Data: payloads.QuoteAcceptedEvent{}},
		DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder, AggregateID: orderID, Data: payloads.OrderCreatedEvent{OrderID: orderID}},
	))

	rows, err := NewRepository(conn).FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, enums.EventQuoteAccepted, rows[0].EventType)
	require.Equal(t, "order:"+orderID.String(), rows[1].OrderingKey())
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)

	first := insertEvent(t, repo, conn, time.Now().UTC().Add(-2*time.Minute))
	second := insertEvent(t, repo, conn, time.Now().UTC().Add(-time.Minute))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, first, rows[0].ID)

	require.NoError(t, repo.MarkPublishedTx(conn, first))
	require.NoError(t, repo.MarkFailedTx(conn, second, errors.New("broker down")))

	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)
	require.Equal(t, "broker down", *rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, second, errors.New("gave up"), 3))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	old := time.Now().UTC().Add(-48 * time.Hour)

	published := insertEvent(t, repo, conn, old)
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("id = ?", published).
		Update("published_at", old.Add(time.Minute)).Error)
	dead := insertEvent(t, repo, conn, old)
	require.NoError(t, repo.MarkTerminalTx(conn, dead, errors.New("dead"), 5))
	pending := insertEvent(t, repo, conn, old)

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, time.Now().UTC().Add(-24*time.Hour), 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, pending, remaining[0].ID)
}

func TestDLQRepositoryInsertAndFind(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	eventID := uuid.New()
	msg := "bad payload"

	require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
		EventID:       eventID,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   enums.OutboxDLQReasonNonRetryable,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}))

	entry, err := dlq.LatestForEvent(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)

	missing, err := dlq.LatestForEvent(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestDLQRepositoryRejectsUnknownReason(t *testing.T) {
	conn := dbtest.Open(t)
	err := NewDLQRepository(conn).InsertTx(conn, models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		ErrorReason:   "gave_up",
	})
	require.ErrorContains(t, err, "gave_up")

	var count int64
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestDLQRepositoryDeleteFailedBefore(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	long := strings.Repeat("x", maxDLQErrorLen+50)
	now := time.Now().UTC()

	for _, failedAt := range []time.Time{now.Add(-100 * 24 * time.Hour), now} {
		require.NoError(t, dlq.InsertTx(conn, models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventQuoteRequestExpired,
			AggregateType: enums.AggregateQuoteRequest,
			AggregateID:   uuid.New(),
			Payload:       []byte(`{}`),
			ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
			ErrorMessage:  &long,
			FailedAt:      failedAt,
		}))
	}

	deleted, err := dlq.DeleteFailedBefore(context.Background(), conn, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	var rows []models.OutboxDLQ
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Len(t, *rows[0].ErrorMessage, maxDLQErrorLen)
}

func insertEvent(t *testing.T, repo *Repository, conn *gorm.DB, createdAt time.Time) uuid.UUID {
	t.Helper()
	id := uuid.New()
	row := models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1}`),
		CreatedAt:     createdAt,
	}
	require.NoError(t, repo.Insert(conn, row))
	return id
}
