package cartdto

import "github.com/google/uuid"

// UpsertLineRequest sets the quantity of one product in the buyer's cart.
type UpsertLineRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=999"`
}

// CartLine is one cart line as shown to the buyer.
type CartLine struct {
	ProductID         uuid.UUID `json:"productId"`
	ProductKind       string    `json:"productKind"`
	Title             string    `json:"title"`
	UnitPriceCents    int64     `json:"unitPriceCents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int64     `json:"lineSubtotalCents"`
	LineSubtotal      string    `json:"lineSubtotal"`
}

// SellerGroup is the set of cart lines one seller fulfils. A group can be
// sent out for delivery quotes unless the buyer is also its seller.
type SellerGroup struct {
	SellerID      uuid.UUID  `json:"sellerId"`
	Lines         []CartLine `json:"lines"`
	SubtotalCents int64      `json:"subtotalCents"`
	Subtotal      string     `json:"subtotal"`
	Quotable      bool       `json:"quotable"`
}

// Cart is the buyer's cart grouped by seller.
type Cart struct {
	Groups []SellerGroup `json:"groups"`
}
