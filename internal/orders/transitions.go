package orders

import (
	"github.com/angelmondragon/quotemarket-backend/pkg/enums"
)

// forward lists the single-step advances and the roles allowed to make them.
// DELIVERED is reachable only through ConfirmDelivery and CANCELLED only
// through Cancel.
var forward = map[enums.OrderStatus]map[enums.OrderStatus][]enums.ActorRole{
	enums.OrderStatusConfirmed: {
		enums.OrderStatusProcessing: {enums.ActorRoleSeller},
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusShipped:  {enums.ActorRoleSeller, enums.ActorRoleProvider},
		enums.OrderStatusPickedUp: {enums.ActorRoleSeller, enums.ActorRoleProvider},
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusInTransit: {enums.ActorRoleProvider},
	},
	enums.OrderStatusPickedUp: {
		enums.OrderStatusInTransit: {enums.ActorRoleProvider},
	},
	enums.OrderStatusInTransit: {
		enums.OrderStatusArrived: {enums.ActorRoleProvider},
	},
	enums.OrderStatusArrived: {
		enums.OrderStatusDelivered: {enums.ActorRoleProvider},
	},
}

var cancellable = map[enums.OrderStatus]bool{
	enums.OrderStatusConfirmed:  true,
	enums.OrderStatusProcessing: true,
}

var cancelRoles = []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleSeller}

// CanAdvance reports whether role may move an order from one status to the next.
func CanAdvance(from, to enums.OrderStatus, role enums.ActorRole) bool {
	roles, ok := forward[from][to]
	if !ok {
		return false
	}
	return hasRole(roles, role)
}

// CanCancel reports whether role may cancel an order in status from.
func CanCancel(from enums.OrderStatus, role enums.ActorRole) bool {
	return cancellable[from] && hasRole(cancelRoles, role)
}

// NextStatuses lists the statuses role may advance to from the current one.
func NextStatuses(from enums.OrderStatus, role enums.ActorRole) []enums.OrderStatus {
	var out []enums.OrderStatus
	for _, to := range []enums.OrderStatus{
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusPickedUp,
		enums.OrderStatusInTransit,
		enums.OrderStatusArrived,
		enums.OrderStatusDelivered,
	} {
		if CanAdvance(from, to, role) {
			out = append(out, to)
		}
	}
	if CanCancel(from, role) {
		out = append(out, enums.OrderStatusCancelled)
	}
	return out
}

func hasRole(roles []enums.ActorRole, role enums.ActorRole) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}
