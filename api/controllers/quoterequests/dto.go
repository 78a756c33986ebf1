package quoterequests

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
)

type createRequest struct {
	SellerID               uuid.UUID `json:"sellerId" validate:"required"`
	PaymentMethod          string    `json:"paymentMethod"`
	DeliveryNotes          *string   `json:"deliveryNotes" validate:"omitempty,max=1000"`
	QuotesExpireAfterHours *int      `json:"quotesExpireAfterHours" validate:"omitempty,min=1,max=72"`
}

func (c createRequest) preferences() (cart.Preferences, error) {
	prefs := cart.Preferences{DeliveryNotes: c.DeliveryNotes}
	if c.PaymentMethod != "" {
		method, err := enums.ParsePaymentMethod(c.PaymentMethod)
		if err != nil {
			return cart.Preferences{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		prefs.PaymentMethod = method
	}
	if c.QuotesExpireAfterHours != nil {
		prefs.QuotesExpireAfter = time.Duration(*c.QuotesExpireAfterHours) * time.Hour
	}
	return prefs, nil
}

// LineItem is the frozen snapshot of one requested product.
type LineItem struct {
	ProductID         uuid.UUID `json:"productId"`
	ProductKind       string    `json:"productKind"`
	Title             string    `json:"title"`
	UnitPriceCents    int64     `json:"unitPriceCents"`
	Quantity          int       `json:"quantity"`
	LineSubtotalCents int64     `json:"lineSubtotalCents"`
}

// QuoteRequest is the wire shape of a quote request.
type QuoteRequest struct {
	ID                     uuid.UUID  `json:"id"`
	BuyerID                uuid.UUID  `json:"buyerId"`
	SellerID               uuid.UUID  `json:"sellerId"`
	LineItems              []LineItem `json:"lineItems"`
	SubtotalCents          int64      `json:"subtotalCents"`
	Subtotal               string     `json:"subtotal"`
	PaymentMethod          string     `json:"paymentMethod"`
	DeliveryNotes          *string    `json:"deliveryNotes,omitempty"`
	QuotesExpireAfterHours int        `json:"quotesExpireAfterHours"`
	State                  string     `json:"state"`
	CloseReason            *string    `json:"closeReason,omitempty"`
	ExpiresAt              time.Time  `json:"expiresAt"`
	ClosedAt               *time.Time `json:"closedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

// RequestPage is one page of quote requests.
type RequestPage struct {
	Items      []QuoteRequest `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

func newQuoteRequest(request *models.QuoteRequest) QuoteRequest {
	lines := make([]LineItem, 0, len(request.LineItems))
	for _, line := range request.LineItems {
		lines = append(lines, LineItem{
			ProductID:         line.ProductID,
			ProductKind:       string(line.ProductKind),
			Title:             line.Title,
			UnitPriceCents:    line.UnitPriceCents,
			Quantity:          line.Quantity,
			LineSubtotalCents: line.LineSubtotalCents,
		})
	}
	out := QuoteRequest{
		ID:                     request.ID,
		BuyerID:                request.BuyerID,
		SellerID:               request.SellerID,
		LineItems:              lines,
		SubtotalCents:          request.SubtotalCents,
		Subtotal:               types.FormatCents(request.SubtotalCents),
		PaymentMethod:          string(request.PaymentMethod),
		DeliveryNotes:          request.DeliveryNotes,
		QuotesExpireAfterHours: request.ExpireAfterMins / 60,
		State:                  string(request.State),
		ExpiresAt:              request.ExpiresAt,
		ClosedAt:               request.ClosedAt,
		CreatedAt:              request.CreatedAt,
	}
	if request.CloseReason != nil {
		reason := string(*request.CloseReason)
		out.CloseReason = &reason
	}
	return out
}

func newRequestPage(requests []models.QuoteRequest, next string) RequestPage {
	items := make([]QuoteRequest, 0, len(requests))
	for i := range requests {
		items = append(items, newQuoteRequest(&requests[i]))
	}
	return RequestPage{Items: items, NextCursor: next}
}
