package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/angelmondragon/quotemarket-backend/internal/orders"
	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quotemarket-backend/pkg/errors"
	"github.com/angelmondragon/quotemarket-backend/pkg/types"
)

type advanceRequest struct {
	Status string  `json:"status" validate:"required"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

func (a advanceRequest) nextStatus() (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(a.Status)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").WithDetails(map[string]any{"field": "status"})
	}
	return status, nil
}

type confirmDeliveryRequest struct {
	Code  string `json:"code"`
	Notes string `json:"notes" validate:"max=1000"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}

// LineItem is an order line snapshot.
type LineItem struct {
	ProductID      uuid.UUID `json:"productId"`
	ProductKind    string    `json:"productKind"`
	Title          string    `json:"title"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Quantity       int       `json:"quantity"`
	TotalCents     int64     `json:"totalCents"`
}

// Order is the wire shape of an order.
type Order struct {
	ID               uuid.UUID  `json:"id"`
	RequestID        uuid.UUID  `json:"requestId"`
	AcceptedQuoteID  uuid.UUID  `json:"acceptedQuoteId"`
	BuyerID          uuid.UUID  `json:"buyerId"`
	SellerID         uuid.UUID  `json:"sellerId"`
	ProviderID       uuid.UUID  `json:"providerId"`
	Status           string     `json:"status"`
	SubtotalCents    int64      `json:"subtotalCents"`
	DeliveryFeeCents int64      `json:"deliveryFeeCents"`
	TotalCents       int64      `json:"totalCents"`
	Total            string     `json:"total"`
	PaymentMethod    string     `json:"paymentMethod"`
	Notes            *string    `json:"notes,omitempty"`
	CancelReason     *string    `json:"cancelReason,omitempty"`
	DeliveryNotes    *string    `json:"deliveryNotes,omitempty"`
	DeliveredAt      *time.Time `json:"deliveredAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	Items            []LineItem `json:"items,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// StatusEvent is one entry of an order's status history.
type StatusEvent struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   uuid.UUID `json:"actorId"`
	ActorRole string    `json:"actorRole"`
	Reason    *string   `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// OrderDetail adds the history and the caller's next allowed statuses.
type OrderDetail struct {
	Order
	History []StatusEvent `json:"history"`
	Allowed []string      `json:"allowedTransitions"`
}

// OrderPage is one page of orders.
type OrderPage struct {
	Items      []Order `json:"items"`
	NextCursor string  `json:"nextCursor,omitempty"`
}

func newOrder(order *models.Order) Order {
	items := make([]LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItem{
			ProductID:      item.ProductID,
			ProductKind:    string(item.ProductKind),
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	return Order{
		ID:               order.ID,
		RequestID:        order.RequestID,
		AcceptedQuoteID:  order.AcceptedQuoteID,
		BuyerID:          order.BuyerID,
		SellerID:         order.SellerID,
		ProviderID:       order.ProviderID,
		Status:           string(order.Status),
		SubtotalCents:    order.SubtotalCents,
		DeliveryFeeCents: order.DeliveryFeeCents,
		TotalCents:       order.TotalCents,
		Total:            types.FormatCents(order.TotalCents),
		PaymentMethod:    string(order.PaymentMethod),
		Notes:            order.Notes,
		CancelReason:     order.CancelReason,
		DeliveryNotes:    order.DeliveryNotes,
		DeliveredAt:      order.DeliveredAt,
		CancelledAt:      order.CancelledAt,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

func newOrderDetail(detail *internalorders.OrderDetail) OrderDetail {
	history := make([]StatusEvent, 0, len(detail.History))
	for _, event := range detail.History {
		history = append(history, StatusEvent{
			From:      string(event.FromStatus),
			To:        string(event.ToStatus),
			ActorID:   event.ActorID,
			ActorRole: string(event.ActorRole),
			Reason:    event.Reason,
			At:        event.CreatedAt,
		})
	}
	allowed := make([]string, 0, len(detail.Allowed))
	for _, status := range detail.Allowed {
		allowed = append(allowed, string(status))
	}
	return OrderDetail{Order: newOrder(detail.Order), History: history, Allowed: allowed}
}

func newOrderPage(list *internalorders.OrderList) OrderPage {
	items := make([]Order, 0, len(list.Orders))
	for i := range list.Orders {
		items = append(items, newOrder(&list.Orders[i]))
	}
	return OrderPage{Items: items, NextCursor: list.NextCursor}
}
