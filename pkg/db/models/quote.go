package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// Quote is a provider's delivery bid against a quote request.
type Quote struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	RequestID             uuid.UUID        `gorm:"column:request_id;type:uuid;not null"`
	ProviderID            uuid.UUID        `gorm:"column:provider_id;type:uuid;not null"`
	DeliveryFeeCents      int64            `gorm:"column:delivery_fee_cents;not null"`
	EstimatedDeliveryDate time.Time        `gorm:"column:estimated_delivery_date;not null"`
	Notes                 *string          `gorm:"column:notes"`
	State                 enums.QuoteState `gorm:"column:state;type:quote_state;not null;default:'pending'"`
	ValidUntil            time.Time        `gorm:"column:valid_until;not null"`
	DecidedAt             *time.Time       `gorm:"column:decided_at"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// IsActiveAt reports whether the quote can still be accepted at now.
func (q Quote) IsActiveAt(now time.Time) bool {
	return q.State == enums.QuoteStatePending && now.Before(q.ValidUntil)
}
