package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// Listing is the read-only catalog view the cart prices lines from.
type Listing struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	Title          string            `gorm:"column:title;not null"`
	Kind           enums.ProductKind `gorm:"column:kind;type:product_kind;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	IsActive       bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
