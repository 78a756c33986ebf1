package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quotemarket-backend/pkg/config"
)

type mockCmdable struct {
	data        map[string]string
	counters    map[string]int64
	ttls        map[string]time.Duration
	expireCalls int
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     map[string]string{},
		counters: map[string]int64{},
		ttls:     map[string]time.Duration{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expireCalls++
	m.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) TTL(_ context.Context, key string) *redis.DurationCmd {
	ttl, ok := m.ttls[key]
	if !ok {
		return redis.NewDurationResult(-1, nil)
	}
	return redis.NewDurationResult(ttl, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	first, err := client.FixedWindowAllow(ctx, "quote-submit:p1", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, Window{Allowed: true, Count: 1, Remaining: 1, ResetIn: time.Minute}, first)
	assert.Equal(t, 1, mock.expireCalls)

	mock.ttls["qm:rate_limit:quote-submit:p1"] = 40 * time.Second
	second, err := client.FixedWindowAllow(ctx, "quote-submit:p1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Zero(t, second.Remaining)
	assert.Equal(t, 40*time.Second, second.ResetIn)
	assert.Equal(t, 1, mock.expireCalls, "an open window keeps its expiry")

	third, err := client.FixedWindowAllow(ctx, "quote-submit:p1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.EqualValues(t, 3, third.Count)
	assert.Zero(t, third.Remaining)
}

func TestFixedWindowAllowRestoresLostExpiry(t *testing.T) {
	mock := newMockCmdable()
	client := &Client{store: mock}
	key := client.RateLimitKey("accept:b1")
	mock.counters[key] = 5

	window, err := client.FixedWindowAllow(context.Background(), "accept:b1", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, window.ResetIn)
	assert.Equal(t, time.Minute, mock.ttls[key])
}

func TestFixedWindowAllowRejectsBadPolicy(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	_, err := client.FixedWindowAllow(context.Background(), "x", 0, time.Minute)
	require.Error(t, err)
}

func TestSetNXOnlyFirstWins(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.LockKey("accept", "request-1")

	first, err := client.SetNX(ctx, key, "owner-a", time.Second)
	require.NoError(t, err)
	second, err := client.SetNX(ctx, key, "owner-b", time.Second)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, ErrKeyNotFound)
}

func TestUninitializedClientFails(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Ping(context.Background()), errNotInitialized)
	require.NoError(t, client.Close())

	_, err := (&Client{}).Get(context.Background(), "k")
	require.ErrorIs(t, err, errNotInitialized)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "qm:idempotency:evt:notifications:id", client.IdempotencyKey("evt:notifications", "id"))
	assert.Equal(t, "qm:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "qm:session:access:jti", client.AccessSessionKey("jti"))
	assert.Equal(t, "qm:lock:accept", client.LockKey("accept", " "))
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:secret@cache:6380/2",
		PoolSize:    20,
		DB:          5,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB, "url db wins")
	assert.Equal(t, 20, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)

	_, err = optionsFromConfig(config.RedisConfig{URL: "http://nope"})
	require.Error(t, err)
}
