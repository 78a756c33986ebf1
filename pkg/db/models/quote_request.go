package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
)

// QuoteRequest is a buyer's time-boxed invitation for providers to quote
// delivery of one seller group. SellerID identifies the seller group.
type QuoteRequest struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID         uuid.UUID               `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID        uuid.UUID               `gorm:"column:seller_id;type:uuid;not null"`
	LineItems       types.LineItemSnapshots `gorm:"column:line_items;type:jsonb;serializer:json;not null"`
	SubtotalCents   int64                   `gorm:"column:subtotal_cents;not null"`
	PaymentMethod   enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null"`
	DeliveryNotes   *string                 `gorm:"column:delivery_notes"`
	ExpireAfterMins int                     `gorm:"column:expire_after_minutes;not null"`
	State           enums.QuoteRequestState `gorm:"column:state;type:quote_request_state;not null;default:'open'"`
	CloseReason     *enums.CloseReason      `gorm:"column:close_reason;type:quote_request_close_reason"`
	ClosedAt        *time.Time              `gorm:"column:closed_at"`
	ExpiresAt       time.Time               `gorm:"column:expires_at;not null"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// IsOpenAt reports whether the request still accepts quotes at now.
func (r QuoteRequest) IsOpenAt(now time.Time) bool {
	return r.State == enums.QuoteRequestStateOpen && now.Before(r.ExpiresAt)
}
