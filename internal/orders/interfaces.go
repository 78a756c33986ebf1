package orders

import (
	"context"

	"github.com/angelmondragon/quotemarket-backend/pkg/db/models"
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
	"github.com/angelmondragon/quotemarket-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	InsertStatusEvent(ctx context.Context, event *models.OrderStatusEvent) error
	ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error)
	ListForActor(ctx context.Context, actorID uuid.UUID, role enums.ActorRole, params listParams) ([]models.Order, *pagination.Cursor, error)
}

type listParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}

// participantColumn maps an actor role to the order column that names it.
func participantColumn(role enums.ActorRole) (string, bool) {
	switch role {
	case enums.ActorRoleBuyer:
		return "buyer_id", true
	case enums.ActorRoleSeller:
		return "seller_id", true
	case enums.ActorRoleProvider:
		return "provider_id", true
	}
	return "", false
}

// isParticipant reports whether actor holds role on the order.
func isParticipant(order *models.Order, actorID uuid.UUID, role enums.ActorRole) bool {
	switch role {
	case enums.ActorRoleBuyer:
		return order.BuyerID == actorID
	case enums.ActorRoleSeller:
		return order.SellerID == actorID
	case enums.ActorRoleProvider:
		return order.ProviderID == actorID
	}
	return false
}

