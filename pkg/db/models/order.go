package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// Order is produced by accepting a quote. Financial columns never change after insert.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	RequestID        uuid.UUID           `gorm:"column:request_id;type:uuid;not null"`
	AcceptedQuoteID  uuid.UUID           `gorm:"column:accepted_quote_id;type:uuid;not null"`
	BuyerID          uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID         uuid.UUID           `gorm:"column:seller_id;type:uuid;not null"`
	ProviderID       uuid.UUID           `gorm:"column:provider_id;type:uuid;not null"`
	SubtotalCents    int64               `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents int64               `gorm:"column:delivery_fee_cents;not null"`
	TotalCents       int64               `gorm:"column:total_cents;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'confirmed'"`
	Notes            *string             `gorm:"column:notes"`
	CancelReason     *string             `gorm:"column:cancel_reason"`
	DeliveryCode     *string             `gorm:"column:delivery_code"`
	DeliveryNotes    *string             `gorm:"column:delivery_notes"`
	DeliveredAt      *time.Time          `gorm:"column:delivered_at"`
	CancelledAt      *time.Time          `gorm:"column:cancelled_at"`
	Items            []OrderLineItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
