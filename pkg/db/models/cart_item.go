package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// CartItem is one buyer cart line priced from the catalog at the time it was added.
type CartItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID        uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	SellerID       uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	ProductKind    enums.ProductKind `gorm:"column:product_kind;type:product_kind;not null"`
	Title          string            `gorm:"column:title;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	Quantity       int               `gorm:"column:quantity;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
