package payloads

import (
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/google/uuid"
)

// QuoteRequestCreatedEvent announces a new request open for bidding.
type QuoteRequestCreatedEvent struct {
	RequestID     uuid.UUID `json:"requestId"`
	BuyerID       uuid.UUID `json:"buyerId"`
	SellerID      uuid.UUID `json:"sellerId"`
	SubtotalCents int64     `json:"subtotalCents"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// QuoteSubmittedEvent is emitted when a provider submits or replaces a quote.
type QuoteSubmittedEvent struct {
	QuoteID          uuid.UUID `json:"quoteId"`
	RequestID        uuid.UUID `json:"requestId"`
	BuyerID          uuid.UUID `json:"buyerId"`
	ProviderID       uuid.UUID `json:"providerId"`
	DeliveryFeeCents int64     `json:"deliveryFeeCents"`
	Replaced         bool      `json:"replaced"`
}

// QuoteRef names a quote and the provider who owns it.
type QuoteRef struct {
	QuoteID    uuid.UUID `json:"quoteId"`
	ProviderID uuid.UUID `json:"providerId"`
}

// QuoteAcceptedEvent records the winning quote and the siblings it rejected.
type QuoteAcceptedEvent struct {
	RequestID  uuid.UUID  `json:"requestId"`
	OrderID    uuid.UUID  `json:"orderId"`
	BuyerID    uuid.UUID  `json:"buyerId"`
	SellerID   uuid.UUID  `json:"sellerId"`
	Accepted   QuoteRef   `json:"accepted"`
	Rejected   []QuoteRef `json:"rejected"`
	AcceptedAt time.Time  `json:"acceptedAt"`
}

// QuoteRequestExpiredEvent is emitted by the sweeper when a request times out.
type QuoteRequestExpiredEvent struct {
	RequestID uuid.UUID  `json:"requestId"`
	BuyerID   uuid.UUID  `json:"buyerId"`
	Expired   []QuoteRef `json:"expired"`
	ExpiredAt time.Time  `json:"expiredAt"`
}

// OrderCreatedEvent is emitted alongside acceptance for the new order.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID `json:"orderId"`
	RequestID        uuid.UUID `json:"requestId"`
	BuyerID          uuid.UUID `json:"buyerId"`
	SellerID         uuid.UUID `json:"sellerId"`
	ProviderID       uuid.UUID `json:"providerId"`
	SubtotalCents    int64     `json:"subtotalCents"`
	DeliveryFeeCents int64     `json:"deliveryFeeCents"`
	TotalCents       int64     `json:"totalCents"`
}

// OrderStatusChangedEvent covers every order status change, including
// cancellation and delivery.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"orderId"`
	BuyerID    uuid.UUID         `json:"buyerId"`
	SellerID   uuid.UUID         `json:"sellerId"`
	ProviderID uuid.UUID         `json:"providerId"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	ActorID    uuid.UUID         `json:"actorId"`
	ActorRole  enums.ActorRole   `json:"actorRole"`
	Reason     string            `json:"reason,omitempty"`
	ChangedAt  time.Time         `json:"changedAt"`
}
