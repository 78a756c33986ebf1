package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/redis"
)

const (
	markerPending = "pending"
	markerDone    = "done"

	// DefaultLease bounds how long a crashed consumer can hold an event.
	DefaultLease = 2 * time.Minute
)

// Status is the outcome of claiming an event for a consumer.
type Status int

const (
	// Acquired means the caller owns the event and must Complete or Release it.
	Acquired Status = iota
	// Done means another delivery already handled the event.
	Done
	// InFlight means another delivery holds the lease right now.
	InFlight
)

func (s Status) String() string {
	switch s {
	case Acquired:
		return "acquired"
	case Done:
		return "done"
	case InFlight:
		return "in_flight"
	default:
		return "unknown"
	}
}

// Guard deduplicates Pub/Sub deliveries per consumer. A claim first writes a
// short pending lease and is promoted to a long-lived done marker on success.
// Keys look like `qm:idempotency:evt:<consumer>:<event_id>`.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	lease time.Duration
}

// NewGuard keeps done markers for ttl. A zero lease uses DefaultLease.
func NewGuard(store redis.IdempotencyStore, ttl, lease time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if lease < 0 {
		return nil, errors.New("lease must be non-negative")
	}
	if lease == 0 {
		lease = DefaultLease
	}
	if lease > ttl {
		lease = ttl
	}
	return &Guard{store: store, ttl: ttl, lease: lease}, nil
}

// Claim tries to take ownership of eventID for consumer.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (Status, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return InFlight, err
	}
	set, err := g.store.SetNX(ctx, key, markerPending, g.lease)
	if err != nil {
		return InFlight, err
	}
	if set {
		return Acquired, nil
	}
	current, err := g.store.Get(ctx, key)
	if errors.Is(err, redis.ErrKeyNotFound) {
		// lease expired between the two calls; let the next delivery retry
		return InFlight, nil
	}
	if err != nil {
		return InFlight, err
	}
	if current == markerDone {
		return Done, nil
	}
	return InFlight, nil
}

// Complete records the event as handled for the full ttl.
func (g *Guard) Complete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Set(ctx, key, markerDone, g.ttl)
}

// Release drops a pending claim so the next delivery can retry immediately.
func (g *Guard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
