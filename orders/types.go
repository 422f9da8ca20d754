package orders

import "gasflow/store"

// validTransitions defines which status transitions are allowed.
var validTransitions = map[string][]string{
	store.OrderPending:    {store.OrderConfirmed, store.OrderCancelled},
	store.OrderConfirmed:  {store.OrderPending, store.OrderInDelivery, store.OrderDelivered, store.OrderCancelled},
	store.OrderInDelivery: {store.OrderConfirmed, store.OrderDelivered, store.OrderCancelled},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to string) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func IsTerminal(status string) bool {
	return status == store.OrderDelivered || status == store.OrderCancelled
}
