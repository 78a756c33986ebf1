package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

var ErrTxRequired = errors.New("outbox: transaction required")

// DomainEvent is what services hand to Emit. Data is marshaled into the
// envelope; Version and OccurredAt default when zero.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          interface{}
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	switch {
	case !e.EventType.IsValid():
		return fmt.Errorf("outbox: unknown event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("outbox: unknown aggregate type %q", e.AggregateType)
	case e.AggregateID == uuid.Nil:
		return fmt.Errorf("outbox: %s event has no aggregate id", e.EventType)
	}
	return nil
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit stores events in the caller's transaction, in order, so they commit or
// roll back with the state change they describe. Nothing is written when any
// event is invalid.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, events ...DomainEvent) error {
	if tx == nil {
		return ErrTxRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	// postgres keeps microseconds; spacing the rows keeps fetch order equal to emit order
	at := time.Now().UTC().Truncate(time.Microsecond)
	rows := make([]models.OutboxEvent, 0, len(events))
	for i, event := range events {
		if err := event.validate(); err != nil {
			return err
		}
		row, err := toRow(event)
		if err != nil {
			return fmt.Errorf("outbox: encode %s: %w", event.EventType, err)
		}
		row.CreatedAt = at.Add(time.Duration(i) * time.Microsecond)
		rows = append(rows, row)
	}

	for _, row := range rows {
		if err := s.repo.Insert(tx, row); err != nil {
			return fmt.Errorf("outbox: insert %s: %w", row.EventType, err)
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"event_id":     row.ID.String(),
				"event_type":   row.EventType,
				"ordering_key": row.OrderingKey(),
			}), "outbox event queued")
		}
	}
	return nil
}

// toRow assigns the event id up front so the envelope and the row share it.
func toRow(event DomainEvent) (models.OutboxEvent, error) {
	id := uuid.New()
	envelope, err := newEnvelope(id, event)
	if err != nil {
		return models.OutboxEvent{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, err
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, nil
}
