package quoterequests

import (
	"net/http"

	"github.com/angelmondragon/quotemarket-backend/api/responses"
	"github.com/angelmondragon/quotemarket-backend/api/validators"
	"github.com/angelmondragon/quotemarket-backend/internal/quoterequests"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/logger"
)

// Create broadcasts one seller group of the buyer's cart for delivery quotes.
func Create(svc quoterequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote request service unavailable"))
			return
		}

		buyerID, err := validators.UserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefs, err := payload.preferences()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.CreateFromCart(r.Context(), buyerID, payload.SellerID, prefs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newQuoteRequest(request))
	}
}

// ListMine pages the buyer's own requests, optionally filtered by state.
func ListMine(svc quoterequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote request service unavailable"))
			return
		}

		buyerID, err := validators.UserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := quoterequests.BuyerListParams{Params: page}
		params.State, err = validators.ParseQueryEnum(r, "state", enums.ParseQuoteRequestState)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListForBuyer(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRequestPage(list.Requests, list.NextCursor))
	}
}

// Detail returns one of the buyer's requests.
func Detail(svc quoterequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote request service unavailable"))
			return
		}

		buyerID, err := validators.UserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.PathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.GetForBuyer(r.Context(), requestID, buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newQuoteRequest(request))
	}
}

// ProviderOpen lists the open requests a provider may bid on.
func ProviderOpen(svc quoterequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote request service unavailable"))
			return
		}

		providerID, err := validators.UserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.PageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOpenForProvider(r.Context(), providerID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRequestPage(list.Requests, list.NextCursor))
	}
}
