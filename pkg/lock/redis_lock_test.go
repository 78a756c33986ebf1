package lock

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string]string{}}
}

func (m *memStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func TestRedisLockExclusive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	first, err := NewRedisLock(store, "qm:lock:accept:r1", time.Second)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "qm:lock:accept:r1", time.Second)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, second.Release(ctx))
	_, err = store.Get(ctx, "qm:lock:accept:r1")
	require.NoError(t, err, "non-owner release must not delete the key")

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisLockReleaseSkipsForeignOwner(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l, err := NewRedisLock(store, "k", time.Second)
	require.NoError(t, err)

	ok, err := l.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// simulate expiry followed by another holder
	store.data["k"] = "someone-else"
	require.NoError(t, l.Release(ctx))
	require.Equal(t, "someone-else", store.data["k"])
}

func TestNewRedisLockValidates(t *testing.T) {
	_, err := NewRedisLock(nil, "k", time.Second)
	require.Error(t, err)
	_, err = NewRedisLock(newMemStore(), "", time.Second)
	require.Error(t, err)

	l, err := NewRedisLock(newMemStore(), "k", 0)
	require.NoError(t, err)
	require.Equal(t, defaultTTL, l.ttl)
}
