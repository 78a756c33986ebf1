package cart

import (
	cartdto "github.com/angelmondragon/quotemarket-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/quotemarket-backend/internal/cart"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
)

func newCart(groups []cart.SellerGroup) cartdto.Cart {
	out := make([]cartdto.SellerGroup, 0, len(groups))
	for _, group := range groups {
		lines := make([]cartdto.CartLine, 0, len(group.Lines))
		for _, line := range group.Lines {
			subtotal := line.SubtotalCents()
			lines = append(lines, cartdto.CartLine{
				ProductID:         line.ProductID,
				ProductKind:       string(line.ProductKind),
				Title:             line.Title,
				UnitPriceCents:    line.UnitPriceCents,
				Quantity:          line.Quantity,
				LineSubtotalCents: subtotal,
				LineSubtotal:      types.FormatCents(subtotal),
			})
		}
		out = append(out, cartdto.SellerGroup{
			SellerID:      group.SellerID,
			Lines:         lines,
			SubtotalCents: group.SubtotalCents,
			Subtotal:      types.FormatCents(group.SubtotalCents),
			Quotable:      !group.IsOwnGroup,
		})
	}
	return cartdto.Cart{Groups: out}
}
