package cart

import (
	cartdto "github.com/angelmondragon/quotemarket-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/quotemarket-backend/internal/cart"
)

func toUpsertLineInput(payload cartdto.UpsertLineRequest) cart.UpsertLineInput {
	return cart.UpsertLineInput{
		ProductID: payload.ProductID,
		Quantity:  payload.Quantity,
	}
}
