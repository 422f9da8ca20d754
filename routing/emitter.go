package routing

// Emitter is the interface adapters must satisfy to bridge route events to the engine.
type Emitter interface {
	EmitRouteSaved(routeID int64, routeNumber, status, actor string)
	EmitRouteDeleted(routeID int64, routeNumber, actor string)
	EmitStopUpdated(routeID, stopID, orderID int64, status, actor string)
	EmitOrderStatusChanged(orderID int64, orderNumber, oldStatus, newStatus, actor string)
}
