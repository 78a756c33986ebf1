package types

import (
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

var errSubCentAmount = errors.New("amount has more than two decimal places")

// LineItemSnapshot freezes a cart line at the moment a quote request is created.
type LineItemSnapshot struct {
	ProductID         uuid.UUID         `json:"product_id"`
	SellerID          uuid.UUID         `json:"seller_id"`
	ProductKind       enums.ProductKind `json:"product_kind"`
	Title             string            `json:"title"`
	UnitPriceCents    int64             `json:"unit_price_cents"`
	Quantity          int               `json:"quantity"`
	LineSubtotalCents int64             `json:"line_subtotal_cents"`
}

// LineItemSnapshots is persisted as a JSONB array.
type LineItemSnapshots []LineItemSnapshot

// SubtotalCents sums the line subtotals.
func (s LineItemSnapshots) SubtotalCents() int64 {
	var total int64
	for _, line := range s {
		total += line.LineSubtotalCents
	}
	return total
}
