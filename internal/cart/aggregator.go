package cart

import (
	"strings"
	"time"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
	"github.com/google/uuid"
)

// Line is a single product in a buyer's cart.
type Line struct {
	SellerID       uuid.UUID
	ProductID      uuid.UUID
	ProductKind    enums.ProductKind
	Title          string
	UnitPriceCents int64
	Quantity       int
}

// SubtotalCents returns unit price times quantity.
func (l Line) SubtotalCents() int64 {
	return types.LineTotalCents(l.UnitPriceCents, l.Quantity)
}

// LineFromItem converts a persisted cart row into a Line.
func LineFromItem(item models.CartItem) Line {
	return Line{
		SellerID:       item.SellerID,
		ProductID:      item.ProductID,
		ProductKind:    item.ProductKind,
		Title:          item.Title,
		UnitPriceCents: item.UnitPriceCents,
		Quantity:       item.Quantity,
	}
}

// SellerGroup is every line in a cart that shares a seller.
type SellerGroup struct {
	SellerID      uuid.UUID
	Lines         []Line
	SubtotalCents int64
	IsOwnGroup    bool
}

// Preferences are the buyer choices attached to a quote request.
type Preferences struct {
	PaymentMethod     enums.PaymentMethod
	DeliveryNotes     *string
	QuotesExpireAfter time.Duration
}

// QuoteRequestDraft is the immutable input for creating a quote request.
type QuoteRequestDraft struct {
	BuyerID           uuid.UUID
	SellerID          uuid.UUID
	LineItems         types.LineItemSnapshots
	SubtotalCents     int64
	PaymentMethod     enums.PaymentMethod
	DeliveryNotes     *string
	QuotesExpireAfter time.Duration
}

// GroupBySeller partitions lines by seller in order of first appearance.
func GroupBySeller(buyerID uuid.UUID, lines []Line) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := map[uuid.UUID]int{}
	for _, line := range lines {
		pos, ok := index[line.SellerID]
		if !ok {
			pos = len(groups)
			index[line.SellerID] = pos
			groups = append(groups, SellerGroup{
				SellerID:   line.SellerID,
				IsOwnGroup: line.SellerID == buyerID,
			})
		}
		groups[pos].Lines = append(groups[pos].Lines, line)
		groups[pos].SubtotalCents += line.SubtotalCents()
	}
	return groups
}

// BuildRequestDraft snapshots a seller group for a quote request.
func BuildRequestDraft(buyerID uuid.UUID, group SellerGroup, prefs Preferences) (QuoteRequestDraft, error) {
	if group.IsOwnGroup || group.SellerID == buyerID {
		return QuoteRequestDraft{}, pkgerrors.New(pkgerrors.CodeInvalidGroup, "cannot request quotes for your own listings")
	}
	if len(group.Lines) == 0 {
		return QuoteRequestDraft{}, pkgerrors.New(pkgerrors.CodeInvalidGroup, "seller group has no items")
	}

	method := prefs.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCashOnDelivery
	}
	if !method.IsValid() {
		return QuoteRequestDraft{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	snapshots := make(types.LineItemSnapshots, 0, len(group.Lines))
	for _, line := range group.Lines {
		if line.Quantity <= 0 {
			return QuoteRequestDraft{}, pkgerrors.New(pkgerrors.CodeInvalidGroup, "line quantity must be positive")
		}
		snapshots = append(snapshots, types.LineItemSnapshot{
			ProductID:         line.ProductID,
			SellerID:          line.SellerID,
			ProductKind:       line.ProductKind,
			Title:             line.Title,
			UnitPriceCents:    line.UnitPriceCents,
			Quantity:          line.Quantity,
			LineSubtotalCents: line.SubtotalCents(),
		})
	}

	return QuoteRequestDraft{
		BuyerID:           buyerID,
		SellerID:          group.SellerID,
		LineItems:         snapshots,
		SubtotalCents:     snapshots.SubtotalCents(),
		PaymentMethod:     method,
		DeliveryNotes:     trimmedOrNil(prefs.DeliveryNotes),
		QuotesExpireAfter: prefs.QuotesExpireAfter,
	}, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
