package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/dbtest"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNotifierSendIsIdempotentPerEvent(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	notifier, err := NewNotifier(repo)
	require.NoError(t, err)

	userID := uuid.New()
	notice := Notice{EventID: uuid.New(), Type: enums.NotificationTypeQuoteReceived, Title: "New delivery quote", Message: "hi"}
	require.NoError(t, notifier.Send(context.Background(), userID, notice))
	require.NoError(t, notifier.Send(context.Background(), userID, notice))

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	require.Error(t, notifier.Send(context.Background(), uuid.Nil, notice))
}

func TestRepositoryListPagesAndMarksRead(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &models.Notification{
			UserID:    userID,
			Type:      enums.NotificationTypeOrderStatusChanged,
			Title:     "Order update",
			Message:   "msg",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)
	require.EqualValues(t, 3, page.Unread)

	next, err := svc.List(ctx, ListParams{UserID: userID, Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	require.Empty(t, next.Cursor)
	require.True(t, next.Items[0].CreatedAt.Before(page.Items[1].CreatedAt))

	require.NoError(t, svc.MarkRead(ctx, userID, next.Items[0].ID))
	err = svc.MarkRead(ctx, uuid.New(), next.Items[0].ID)
	require.Error(t, err)

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 2)
	require.EqualValues(t, 2, unread.Unread)
}

func TestRepositoryDeleteOlderThanKeepsUnread(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	readAt := old.Add(time.Hour)

	_, err := repo.Create(ctx, &models.Notification{UserID: uuid.New(), Type: enums.NotificationTypeOrderCreated, Title: "t", Message: "m", CreatedAt: old, ReadAt: &readAt})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.Notification{UserID: uuid.New(), Type: enums.NotificationTypeOrderCreated, Title: "t", Message: "m", CreatedAt: old})
	require.NoError(t, err)

	deleted, err := repo.DeleteOlderThan(ctx, nil, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)
}
