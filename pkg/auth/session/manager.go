package session

import (
	"context"
	"errors"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/quotemarket-backend/pkg/redis"
)

// ErrBlankAccessID is returned for an empty or whitespace token id.
var ErrBlankAccessID = errors.New("access id is required")

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only surface the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager tracks which access tokens (by jti) still have a live session.
// Sessions are written by the identity service at login; this side mostly
// reads and revokes.
type Manager struct {
	store store
}

var _ AccessSessionChecker = (*Manager)(nil)

func NewManager(client *redisclient.Client) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &Manager{store: client}, nil
}

func (m *Manager) key(accessID string) (string, error) {
	accessID = strings.TrimSpace(accessID)
	if accessID == "" {
		return "", ErrBlankAccessID
	}
	return m.store.AccessSessionKey(accessID), nil
}

// Register marks accessID live for ttl.
func (m *Manager) Register(ctx context.Context, accessID string, ttl time.Duration) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		return errors.New("session ttl must be positive")
	}
	return m.store.Set(ctx, key, "1", ttl)
}

// Revoke ends the session. Revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	key, err := m.key(accessID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	key, err := m.key(accessID)
	if err != nil {
		return false, err
	}
	_, err = m.store.Get(ctx, key)
	switch {
	case errors.Is(err, redisclient.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
