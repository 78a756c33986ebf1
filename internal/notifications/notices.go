package notifications

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
	"github.com/google/uuid"
)

type addressedNotice struct {
	userID uuid.UUID
	notice Notice
}

// noticesFor maps a decoded event to the users who should hear about it.
func noticesFor(eventID uuid.UUID, payload interface{}) []addressedNotice {
	switch p := payload.(type) {
	case *payloads.QuoteSubmittedEvent:
		title := "New delivery quote"
		if p.Replaced {
			title = "Delivery quote updated"
		}
		return []addressedNotice{{
			userID: p.BuyerID,
			notice: Notice{
				EventID: eventID,
				Type:    enums.NotificationTypeQuoteReceived,
				Title:   title,
				Message: fmt.Sprintf("A provider offered delivery for %s.", types.FormatCents(p.DeliveryFeeCents)),
				Link:    requestLink(p.RequestID),
			},
		}}
	case *payloads.QuoteAcceptedEvent:
		out := []addressedNotice{{
			userID: p.Accepted.ProviderID,
			notice: Notice{
				EventID: eventID,
				Type:    enums.NotificationTypeQuoteAccepted,
				Title:   "Quote accepted",
				Message: "Your delivery quote was accepted and an order was created.",
				Link:    orderLink(p.OrderID),
			},
		}}
		for _, rejected := range p.Rejected {
			out = append(out, addressedNotice{
				userID: rejected.ProviderID,
				notice: Notice{
					EventID: eventID,
					Type:    enums.NotificationTypeQuoteRejected,
					Title:   "Quote not selected",
					Message: "The buyer chose another delivery option.",
				},
			})
		}
		return out
	case *payloads.QuoteRequestExpiredEvent:
		return []addressedNotice{{
			userID: p.BuyerID,
			notice: Notice{
				EventID: eventID,
				Type:    enums.NotificationTypeRequestExpired,
				Title:   "Quote request expired",
				Message: "No quote was accepted before the request expired.",
				Link:    requestLink(p.RequestID),
			},
		}}
	case *payloads.OrderCreatedEvent:
		notice := Notice{
			EventID: eventID,
			Type:    enums.NotificationTypeOrderCreated,
			Title:   "New order",
			Message: fmt.Sprintf("Order total %s.", types.FormatCents(p.TotalCents)),
			Link:    orderLink(p.OrderID),
		}
		return []addressedNotice{{userID: p.SellerID, notice: notice}}
	case *payloads.OrderStatusChangedEvent:
		message := fmt.Sprintf("Order is now %s.", strings.ReplaceAll(string(p.To), "_", " "))
		if p.To == enums.OrderStatusCancelled && p.Reason != "" {
			message = fmt.Sprintf("Order was cancelled: %s", p.Reason)
		}
		notice := Notice{
			EventID: eventID,
			Type:    enums.NotificationTypeOrderStatusChanged,
			Title:   "Order update",
			Message: message,
			Link:    orderLink(p.OrderID),
		}
		var out []addressedNotice
		for _, userID := range []uuid.UUID{p.BuyerID, p.SellerID, p.ProviderID} {
			if userID == uuid.Nil || userID == p.ActorID || containsUser(out, userID) {
				continue
			}
			out = append(out, addressedNotice{userID: userID, notice: notice})
		}
		return out
	default:
		return nil
	}
}

func containsUser(list []addressedNotice, userID uuid.UUID) bool {
	for _, n := range list {
		if n.userID == userID {
			return true
		}
	}
	return false
}

func requestLink(id uuid.UUID) string {
	return fmt.Sprintf("/quote-requests/%s", id)
}

func orderLink(id uuid.UUID) string {
	return fmt.Sprintf("/orders/%s", id)
}
