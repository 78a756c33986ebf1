package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
)

// stubRepository records the last call it saw and answers from canned fields.
type stubRepository struct {
	rows      []models.Notification
	next      *pagination.Cursor
	listErr   error
	lastList  listNotificationsParams
	mark      notificationMarkResult
	markErr   error
	markedAt  time.Time
	marked    int64
	unread    int64
	unreadErr error
}

func (s *stubRepository) WithTx(*gorm.DB) Repository { return s }

func (s *stubRepository) Create(context.Context, *models.Notification) (bool, error) {
	return true, nil
}

func (s *stubRepository) DeleteOlderThan(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, nil
}

func (s *stubRepository) List(_ context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	s.lastList = params
	return s.rows, s.next, s.listErr
}

func (s *stubRepository) MarkRead(_ context.Context, _, _ uuid.UUID, now time.Time) (notificationMarkResult, error) {
	s.markedAt = now
	return s.mark, s.markErr
}

func (s *stubRepository) MarkAllRead(_ context.Context, _ uuid.UUID, now time.Time) (int64, error) {
	s.markedAt = now
	return s.marked, s.markErr
}

func (s *stubRepository) CountUnread(context.Context, uuid.UUID) (int64, error) {
	return s.unread, s.unreadErr
}

func newTestService(t *testing.T, repo *stubRepository) *service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return time.Date(2026, 3, 4, 9, 30, 0, 0, time.FixedZone("EST", -5*3600)) }
	return impl
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "want %s, got %v", code, err)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	requireCode(t, err, pkgerrors.CodeDependency)
}

func TestListPagesAndCountsWholeInbox(t *testing.T) {
	userID := uuid.New()
	next := pagination.Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	repo := &stubRepository{
		rows:   []models.Notification{{ID: uuid.New()}},
		next:   &next,
		unread: 7,
	}
	svc := newTestService(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: userID, Limit: 500, UnreadOnly: true})
	require.NoError(t, err)

	assert.Equal(t, pagination.MaxLimit, repo.lastList.Limit)
	assert.True(t, repo.lastList.UnreadOnly)
	assert.Equal(t, userID, repo.lastList.UserID)
	assert.Nil(t, repo.lastList.Cursor)
	assert.Len(t, result.Items, 1)
	assert.EqualValues(t, 7, result.Unread)

	decoded, err := pagination.ParseCursor(result.Cursor)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, next.ID, decoded.ID)
}

func TestListForwardsCursorAndDefaultsLimit(t *testing.T) {
	cursor := pagination.Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	repo := &stubRepository{}
	svc := newTestService(t, repo)

	result, err := svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: pagination.EncodeCursor(cursor)})
	require.NoError(t, err)

	assert.Equal(t, pagination.DefaultLimit, repo.lastList.Limit)
	require.NotNil(t, repo.lastList.Cursor)
	assert.Equal(t, cursor.ID, repo.lastList.Cursor.ID)
	assert.NotNil(t, result.Items)
	assert.Empty(t, result.Cursor)
}

func TestListFailures(t *testing.T) {
	cases := []struct {
		name   string
		params ListParams
		repo   *stubRepository
		code   pkgerrors.Code
	}{
		{"missing user", ListParams{}, &stubRepository{}, pkgerrors.CodeValidation},
		{"bad cursor", ListParams{UserID: uuid.New(), Cursor: "bad"}, &stubRepository{}, pkgerrors.CodeValidation},
		{"list fails", ListParams{UserID: uuid.New()}, &stubRepository{listErr: errors.New("db down")}, pkgerrors.CodeDependency},
		{"count fails", ListParams{UserID: uuid.New()}, &stubRepository{unreadErr: errors.New("db down")}, pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestService(t, tc.repo).List(context.Background(), tc.params)
			requireCode(t, err, tc.code)
		})
	}
}

func TestMarkReadStampsUTC(t *testing.T) {
	repo := &stubRepository{mark: notificationMarkResult{Found: true, Updated: true}}
	svc := newTestService(t, repo)

	require.NoError(t, svc.MarkRead(context.Background(), uuid.New(), uuid.New()))
	assert.Equal(t, time.UTC, repo.markedAt.Location())
	assert.Equal(t, 14, repo.markedAt.Hour())
}

func TestMarkReadIsIdempotentForOwner(t *testing.T) {
	repo := &stubRepository{mark: notificationMarkResult{Found: true, Updated: false}}
	assert.NoError(t, newTestService(t, repo).MarkRead(context.Background(), uuid.New(), uuid.New()))
}

func TestMarkReadFailures(t *testing.T) {
	cases := []struct {
		name         string
		user, target uuid.UUID
		repo         *stubRepository
		code         pkgerrors.Code
	}{
		{"missing user", uuid.Nil, uuid.New(), &stubRepository{}, pkgerrors.CodeValidation},
		{"missing notification", uuid.New(), uuid.Nil, &stubRepository{}, pkgerrors.CodeValidation},
		{"not owned", uuid.New(), uuid.New(), &stubRepository{mark: notificationMarkResult{Found: false}}, pkgerrors.CodeNotFound},
		{"store fails", uuid.New(), uuid.New(), &stubRepository{markErr: errors.New("db down")}, pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := newTestService(t, tc.repo).MarkRead(context.Background(), tc.user, tc.target)
			requireCode(t, err, tc.code)
		})
	}
}

func TestMarkAllRead(t *testing.T) {
	repo := &stubRepository{marked: 3}
	count, err := newTestService(t, repo).MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.Equal(t, time.UTC, repo.markedAt.Location())

	_, err = newTestService(t, &stubRepository{markErr: errors.New("boom")}).MarkAllRead(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeDependency)

	_, err = newTestService(t, repo).MarkAllRead(context.Background(), uuid.Nil)
	requireCode(t, err, pkgerrors.CodeValidation)
}
