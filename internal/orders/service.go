package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	minConfirmationCodeLength = 3
	maxTextLength             = 1000
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, events ...outbox.DomainEvent) error
}

type transitionRecorder interface {
	IncOrderTransition(to string)
}

// Service drives the order fulfillment state machine.
type Service interface {
	Advance(ctx context.Context, input AdvanceInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error)
	List(ctx context.Context, actor Actor, params ListParams) (*OrderList, error)
}

// Actor is the authenticated caller and the role it acts under.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

// AdvanceInput moves an order one step forward.
type AdvanceInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Next    enums.OrderStatus
	Notes   *string
}

// ConfirmDeliveryInput completes an ARRIVED order.
type ConfirmDeliveryInput struct {
	OrderID    uuid.UUID
	ProviderID uuid.UUID
	Code       string
	Notes      string
}

// CancelInput cancels an order before shipment.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// OrderDetail is an order with its status history and the statuses the
// caller may move it to.
type OrderDetail struct {
	Order   *models.Order
	History []models.OrderStatusEvent
	Allowed []enums.OrderStatus
}

// ListParams filters an actor's orders.
type ListParams struct {
	pagination.Params
	Status *enums.OrderStatus
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// ServiceParams groups the service dependencies.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Metrics transitionRecorder
	Clock   func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics transitionRecorder
	clock   func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Clock == nil {
		params.Clock = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		clock:   params.Clock,
	}, nil
}

type transition struct {
	orderID uuid.UUID
	actor   Actor
	to      enums.OrderStatus
	reason  *string
	// check validates the loaded order and returns extra column updates.
	check func(order *models.Order) (map[string]any, error)
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	if !input.Next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if input.Next == enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "delivery must be confirmed with a code and notes")
	}
	if input.Next == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "use cancel to cancel an order")
	}
	notes, err := optionalText(input.Notes, "notes")
	if err != nil {
		return nil, err
	}

	return s.apply(ctx, transition{
		orderID: input.OrderID,
		actor:   input.Actor,
		to:      input.Next,
		check: func(order *models.Order) (map[string]any, error) {
			if !CanAdvance(order.Status, input.Next, input.Actor.Role) {
				return nil, invalidTransition(order.Status, input.Next)
			}
			updates := map[string]any{}
			if notes != nil {
				updates["notes"] = *notes
			}
			return updates, nil
		},
	})
}

// ConfirmDelivery moves an ARRIVED order to DELIVERED once the provider
// supplies the recipient's code and completion notes.
func (s *service) ConfirmDelivery(ctx context.Context, input ConfirmDeliveryInput) (*models.Order, error) {
	actor := Actor{UserID: input.ProviderID, Role: enums.ActorRoleProvider}
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(input.Code)
	notes := strings.TrimSpace(input.Notes)

	return s.apply(ctx, transition{
		orderID: input.OrderID,
		actor:   actor,
		to:      enums.OrderStatusDelivered,
		check: func(order *models.Order) (map[string]any, error) {
			if !CanAdvance(order.Status, enums.OrderStatusDelivered, enums.ActorRoleProvider) {
				return nil, invalidTransition(order.Status, enums.OrderStatusDelivered)
			}
			if len(code) < minConfirmationCodeLength || notes == "" {
				return nil, pkgerrors.New(pkgerrors.CodeIncompleteConfirmation, "a confirmation code of at least 3 characters and delivery notes are required").
					WithDetails(map[string]any{"status": order.Status})
			}
			if len(code) > maxTextLength || len(notes) > maxTextLength {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation fields are too long")
			}
			return map[string]any{
				"delivery_code":  code,
				"delivery_notes": notes,
				"delivered_at":   s.clock().UTC(),
			}, nil
		},
	})
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if err := validateActor(input.Actor); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required")
	}
	if len(reason) > maxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is too long")
	}

	return s.apply(ctx, transition{
		orderID: input.OrderID,
		actor:   input.Actor,
		to:      enums.OrderStatusCancelled,
		reason:  &reason,
		check: func(order *models.Order) (map[string]any, error) {
			if !CanCancel(order.Status, input.Actor.Role) {
				return nil, invalidTransition(order.Status, enums.OrderStatusCancelled)
			}
			return map[string]any{
				"cancel_reason": reason,
				"cancelled_at":  s.clock().UTC(),
			}, nil
		},
	})
}

// apply runs one status change: row lock, participant and rule checks, a
// conditional update on the current status, a history row and an outbox
// event, all in one transaction.
func (s *service) apply(ctx context.Context, t transition) (*models.Order, error) {
	if t.orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, t.orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !isParticipant(current, t.actor.UserID, t.actor.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
		}
		if current.Status.IsTerminal() {
			return invalidTransition(current.Status, t.to)
		}

		updates, err := t.check(current)
		if err != nil {
			return err
		}
		now := s.clock().UTC()
		updates["status"] = t.to
		updates["updated_at"] = now

		from := current.Status
		ok, err := repo.UpdateStatusIfCurrent(ctx, current.ID, from, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently, please refresh")
		}

		if err := repo.InsertStatusEvent(ctx, &models.OrderStatusEvent{
			ID:         uuid.New(),
			OrderID:    current.ID,
			FromStatus: from,
			ToStatus:   t.to,
			ActorID:    t.actor.UserID,
			ActorRole:  t.actor.Role,
			Reason:     t.reason,
			CreatedAt:  now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status event")
		}

		payload := payloads.OrderStatusChangedEvent{
			OrderID:    current.ID,
			BuyerID:    current.BuyerID,
			SellerID:   current.SellerID,
			ProviderID: current.ProviderID,
			From:       from,
			To:         t.to,
			ActorID:    t.actor.UserID,
			ActorRole:  t.actor.Role,
			ChangedAt:  now,
		}
		if t.reason != nil {
			payload.Reason = *t.reason
		}
		event := outbox.DomainEvent{
			EventType:     eventTypeFor(t.to),
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         &outbox.ActorRef{UserID: t.actor.UserID, Role: string(t.actor.Role)},
			OccurredAt:    now,
			Data:          payload,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order status event")
		}

		order, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncOrderTransition(string(t.to))
	}
	return order, nil
}

func eventTypeFor(to enums.OrderStatus) enums.OutboxEventType {
	switch to {
	case enums.OrderStatusCancelled:
		return enums.EventOrderCancelled
	case enums.OrderStatusDelivered:
		return enums.EventOrderDelivered
	}
	return enums.EventOrderStatusChanged
}

// Get returns the order for one of its participants.
func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderDetail, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !isParticipant(order, actor.UserID, actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to actor")
	}
	history, err := s.repo.ListStatusEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order history")
	}
	return &OrderDetail{
		Order:   order,
		History: history,
		Allowed: NextStatuses(order.Status, actor.Role),
	}, nil
}

func (s *service) List(ctx context.Context, actor Actor, params ListParams) (*OrderList, error) {
	if err := validateActor(actor); err != nil {
		return nil, err
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForActor(ctx, actor.UserID, actor.Role, listParams{Limit: params.Limit, Cursor: cursor, Status: params.Status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: rows}
	if list.Orders == nil {
		list.Orders = []models.Order{}
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func validateActor(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, ok := participantColumn(actor.Role); !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot act on orders")
	}
	return nil
}

func invalidTransition(from, to enums.OrderStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidTransition, "cannot move order from %s to %s", from, to).
		WithDetails(map[string]any{"from": from, "to": to})
}

func optionalText(value *string, field string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > maxTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is too long")
	}
	return &trimmed, nil
}
