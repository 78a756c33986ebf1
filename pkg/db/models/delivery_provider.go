package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryProvider is the provider directory entry used for rating sorts.
type DeliveryProvider struct {
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	DisplayName string          `gorm:"column:display_name;not null"`
	Rating      decimal.Decimal `gorm:"column:rating;type:numeric(3,2);not null;default:0"`
	RatingCount int             `gorm:"column:rating_count;not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
