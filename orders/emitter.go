package orders

// EventEmitter is the interface the orders package uses to emit events.
type EventEmitter interface {
	EmitOrderCreated(orderID int64, orderNumber string, customerID int64, total string, actor string)
	EmitOrderStatusChanged(orderID int64, orderNumber, oldStatus, newStatus, actor string)
}
