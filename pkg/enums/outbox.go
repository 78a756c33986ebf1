package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateQuoteRequest OutboxAggregateType = "quote_request"
	AggregateQuote        OutboxAggregateType = "quote"
	AggregateOrder        OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateQuoteRequest,
	AggregateQuote,
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", validAggregateTypes, value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventQuoteRequestCreated OutboxEventType = "quote_request_created"
	EventQuoteRequestExpired OutboxEventType = "quote_request_expired"
	EventQuoteSubmitted      OutboxEventType = "quote_submitted"
	EventQuoteAccepted       OutboxEventType = "quote_accepted"
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStatusChanged  OutboxEventType = "order_status_changed"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventOrderDelivered      OutboxEventType = "order_delivered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventQuoteRequestCreated,
	EventQuoteRequestExpired,
	EventQuoteSubmitted,
	EventQuoteAccepted,
	EventOrderCreated,
	EventOrderStatusChanged,
	EventOrderCancelled,
	EventOrderDelivered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", validOutboxEventTypes, value)
}
