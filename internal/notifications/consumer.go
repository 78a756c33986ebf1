package notifications

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/registry"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type sender interface {
	Send(ctx context.Context, userID uuid.UUID, notice Notice) error
}

type payloadDecoder interface {
	DecodePayload(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (interface{}, error)
}

type claimGuard interface {
	Claim(ctx context.Context, consumer string, eventID uuid.UUID) (idempotency.Status, error)
	Complete(ctx context.Context, consumer string, eventID uuid.UUID) error
	Release(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// ConsumerParams wires a notification consumer to one subscription.
type ConsumerParams struct {
	Name         string
	Subscription *pubsub.Subscriber
	Sender       sender
	Decoder      payloadDecoder
	Idempotency  *idempotency.Guard
	Logger       *logger.Logger
}

// Consumer turns marketplace domain events into Notify.Send calls.
type Consumer struct {
	name         string
	subscription *pubsub.Subscriber
	sender       sender
	decoder      payloadDecoder
	idempotency  claimGuard
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("consumer name required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("subscription required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("notification sender required")
	}
	if params.Decoder == nil {
		return nil, fmt.Errorf("payload decoder required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		name:         params.Name,
		subscription: params.Subscription,
		sender:       params.Sender,
		decoder:      params.Decoder,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, messageID, eventType string, data []byte) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
		"consumer":   c.name,
	})

	envelope, err := outbox.DecodeEnvelope(data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, _ := envelope.ID()

	payload, err := c.decoder.DecodePayload(enums.OutboxEventType(eventType), envelope)
	if err != nil {
		if registry.IsNonRetryable(err) {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "dropping undecodable event")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{nack: true}
	}

	notices := noticesFor(eventID, payload)
	if len(notices) == 0 {
		return processResult{ack: true}
	}

	status, err := c.idempotency.Claim(ctx, c.name, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	switch status {
	case idempotency.Done:
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case idempotency.InFlight:
		c.logg.Info(logCtx, "event held by another delivery")
		return processResult{nack: true}
	}

	var errs error
	for _, n := range notices {
		errs = multierr.Append(errs, c.sender.Send(ctx, n.userID, n.notice))
	}
	if errs != nil {
		c.logg.Error(logCtx, "notification delivery failed", errs)
		if err := c.idempotency.Release(ctx, c.name, eventID); err != nil {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "idempotency release failed")
		}
		return processResult{nack: true}
	}
	if err := c.idempotency.Complete(ctx, c.name, eventID); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "idempotency complete failed")
	}

	c.logg.Info(c.logg.WithField(logCtx, "recipients", len(notices)), "notifications delivered")
	return processResult{ack: true}
}
