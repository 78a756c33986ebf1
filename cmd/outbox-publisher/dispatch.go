package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/registry"
)

type outcome int

const (
	outcomePending outcome = iota
	outcomePublished
	outcomeRetry
	outcomeDeadLetter
	// an earlier event with the same ordering key failed in this batch
	outcomeDeferred
)

// dispatch tracks one outbox row from resolution through publish acknowledgement.
type dispatch struct {
	event    models.OutboxEvent
	resolved *registry.ResolvedEvent
	topic    string
	key      string
	pub      publisher
	result   publishResult

	outcome outcome
	reason  enums.OutboxDLQErrorReason
	err     error
}

// start resolves every row and issues its publish without waiting on the ack.
func (s *Service) start(ctx context.Context, events []models.OutboxEvent) []*dispatch {
	out := make([]*dispatch, 0, len(events))
	for _, event := range events {
		d := &dispatch{event: event, key: event.OrderingKey()}
		out = append(out, d)

		resolved, err := s.registry.Resolve(event)
		if err != nil {
			d.deadLetter(enums.OutboxDLQReasonNonRetryable, err)
			continue
		}
		d.resolved = resolved
		d.topic = resolved.Descriptor.Topic

		d.pub = s.publisherFactory(d.topic)
		if d.pub == nil {
			d.deadLetter(enums.OutboxDLQReasonNonRetryable, fmt.Errorf("publisher not configured for topic %s", d.topic))
			continue
		}
		d.result = d.pub.Publish(ctx, s.message(d))
		if d.result == nil {
			d.deadLetter(enums.OutboxDLQReasonNonRetryable, fmt.Errorf("publisher returned nil for topic %s", d.topic))
		}
	}
	return out
}

// await collects acknowledgements in fetch order. Once a key fails, later
// rows with that key are left for the next batch untouched.
func (s *Service) await(ctx context.Context, dispatches []*dispatch) map[string]publisher {
	failedKeys := map[string]publisher{}
	for _, d := range dispatches {
		if d.outcome != outcomePending {
			continue
		}
		_, err := d.result.Get(ctx)
		if err == nil {
			d.outcome = outcomePublished
			continue
		}
		if _, blocked := failedKeys[d.key]; blocked {
			d.outcome = outcomeDeferred
			d.err = err
			continue
		}
		failedKeys[d.key] = d.pub

		if d.event.AttemptCount+1 >= s.maxAttempts {
			d.deadLetter(enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("max publish attempts reached: %w", err))
			continue
		}
		d.outcome = outcomeRetry
		d.err = err
	}
	return failedKeys
}

func (d *dispatch) deadLetter(reason enums.OutboxDLQErrorReason, err error) {
	d.outcome = outcomeDeadLetter
	d.reason = reason
	d.err = err
}

func (s *Service) message(d *dispatch) *gcppubsub.Message {
	envelope := d.resolved.Envelope
	attrs := map[string]string{
		"event_id":         envelope.EventID,
		"event_type":       string(d.event.EventType),
		"aggregate_type":   string(d.event.AggregateType),
		"aggregate_id":     d.event.AggregateID.String(),
		"envelope_version": strconv.Itoa(envelope.Version),
		"created_at":       d.event.CreatedAt.Format(time.RFC3339Nano),
	}
	if envelope.Actor != nil {
		attrs["actor_id"] = envelope.Actor.UserID.String()
		if envelope.Actor.Role != "" {
			attrs["actor_role"] = envelope.Actor.Role
		}
	}
	return &gcppubsub.Message{
		Data:        d.event.Payload,
		Attributes:  attrs,
		OrderingKey: d.key,
	}
}

func (d *dispatch) fields(batchSize int) map[string]any {
	fields := map[string]any{
		"outbox_id":      d.event.ID.String(),
		"event_type":     d.event.EventType,
		"aggregate_type": d.event.AggregateType,
		"aggregate_id":   d.event.AggregateID.String(),
		"ordering_key":   d.key,
		"batch_size":     batchSize,
		"attempt_count":  d.event.AttemptCount,
	}
	if d.resolved != nil && d.resolved.Envelope.EventID != "" {
		fields["event_id"] = d.resolved.Envelope.EventID
		fields["occurred_at"] = d.resolved.Envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if d.topic != "" {
		fields["topic"] = d.topic
	}
	if d.event.LastError != nil {
		fields["last_error"] = *d.event.LastError
	}
	if d.err != nil {
		fields["error"] = d.err.Error()
	}
	return fields
}
