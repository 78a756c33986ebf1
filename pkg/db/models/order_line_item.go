package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// OrderLineItem captures the snapshot of each item within an order.
type OrderLineItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ProductKind    enums.ProductKind `gorm:"column:product_kind;type:product_kind;not null"`
	Title          string            `gorm:"column:title;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	Qty            int               `gorm:"column:qty;not null"`
	TotalCents     int64             `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
