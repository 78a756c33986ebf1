package quotes

import (
	"time"

	"github.com/google/uuid"

	internalquotes "github.com/angelmondragon/quotemarket-backend/internal/quotes"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
)

const dateLayout = "2006-01-02"

type submitRequest struct {
	DeliveryFeeCents int64 `json:"deliveryFeeCents"`
	// DeliveryFee is the same bid as a decimal amount ("12.50"); when both are
	// sent they must agree.
	DeliveryFee           *string `json:"deliveryFee"`
	EstimatedDeliveryDate string  `json:"estimatedDeliveryDate" validate:"required,datetime=2006-01-02"`
	Notes                 *string `json:"notes" validate:"omitempty,max=1000"`
	ValidForHours         *int    `json:"validForHours" validate:"omitempty,min=1,max=72"`
}

func (s submitRequest) toInput(requestID, providerID uuid.UUID) (internalquotes.SubmitInput, error) {
	date, err := time.ParseInLocation(dateLayout, s.EstimatedDeliveryDate, time.UTC)
	if err != nil {
		return internalquotes.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "estimated delivery date must be YYYY-MM-DD").
			WithDetails(map[string]any{"field": "estimatedDeliveryDate"})
	}
	fee, err := s.feeCents()
	if err != nil {
		return internalquotes.SubmitInput{}, err
	}
	input := internalquotes.SubmitInput{
		RequestID:             requestID,
		ProviderID:            providerID,
		DeliveryFeeCents:      fee,
		EstimatedDeliveryDate: date,
		Notes:                 s.Notes,
	}
	if s.ValidForHours != nil {
		validFor := time.Duration(*s.ValidForHours) * time.Hour
		input.ValidFor = &validFor
	}
	return input, nil
}

func (s submitRequest) feeCents() (int64, error) {
	if s.DeliveryFee == nil {
		return s.DeliveryFeeCents, nil
	}
	cents, err := types.ParseAmount(*s.DeliveryFee)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInvalidBid, err, "delivery fee must be an amount with at most two decimals").
			WithDetails(map[string]any{"field": "deliveryFee"})
	}
	if s.DeliveryFeeCents != 0 && s.DeliveryFeeCents != cents {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidBid, "deliveryFee and deliveryFeeCents disagree").
			WithDetails(map[string]any{"field": "deliveryFee"})
	}
	return cents, nil
}

// Quote is the wire shape of a provider's bid.
type Quote struct {
	ID                    uuid.UUID  `json:"id"`
	RequestID             uuid.UUID  `json:"requestId"`
	ProviderID            uuid.UUID  `json:"providerId"`
	ProviderName          string     `json:"providerName,omitempty"`
	ProviderRating        string     `json:"providerRating,omitempty"`
	DeliveryFeeCents      int64      `json:"deliveryFeeCents"`
	DeliveryFee           string     `json:"deliveryFee"`
	EstimatedDeliveryDate string     `json:"estimatedDeliveryDate"`
	Notes                 *string    `json:"notes,omitempty"`
	State                 string     `json:"state"`
	ValidUntil            time.Time  `json:"validUntil"`
	DecidedAt             *time.Time `json:"decidedAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

// SubmitResponse reports the stored quote and whether it replaced an earlier one.
type SubmitResponse struct {
	Quote    Quote `json:"quote"`
	Replaced bool  `json:"replaced"`
}

// QuotePage is one page of a provider's quotes.
type QuotePage struct {
	Items      []Quote `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

func newQuote(quote *models.Quote) Quote {
	return Quote{
		ID:                    quote.ID,
		RequestID:             quote.RequestID,
		ProviderID:            quote.ProviderID,
		DeliveryFeeCents:      quote.DeliveryFeeCents,
		DeliveryFee:           types.FormatCents(quote.DeliveryFeeCents),
		EstimatedDeliveryDate: quote.EstimatedDeliveryDate.UTC().Format(dateLayout),
		Notes:                 quote.Notes,
		State:                 string(quote.State),
		ValidUntil:            quote.ValidUntil,
		DecidedAt:             quote.DecidedAt,
		CreatedAt:             quote.CreatedAt,
	}
}

func newActiveQuotes(rows []internalquotes.ActiveQuote) []Quote {
	out := make([]Quote, 0, len(rows))
	for i := range rows {
		quote := newQuote(&rows[i].Quote)
		quote.ProviderName = rows[i].ProviderName
		quote.ProviderRating = rows[i].ProviderRating.StringFixed(2)
		out = append(out, quote)
	}
	return out
}

func newQuotePage(rows []models.Quote, next string) QuotePage {
	items := make([]Quote, 0, len(rows))
	for i := range rows {
		items = append(items, newQuote(&rows[i]))
	}
	return QuotePage{Items: items, NextCursor: next}
}
