package engine

import (
	"gasflow/billing"
	"gasflow/lifecycle"
	"gasflow/orders"
	"gasflow/routing"
	"gasflow/stock"
)

var (
	_ lifecycle.Emitter    = (*lifecycleEmitter)(nil)
	_ routing.Emitter      = (*routeEmitter)(nil)
	_ orders.EventEmitter  = (*orderEmitter)(nil)
	_ stock.EventEmitter   = (*stockEmitter)(nil)
	_ billing.EventEmitter = (*billingEmitter)(nil)
)

// lifecycleEmitter bridges the lifecycle package's emitter interface to the EventBus.
type lifecycleEmitter struct {
	bus *EventBus
}

func (e *lifecycleEmitter) EmitMovementRecorded(movementID, instanceID int64, movementType, status, destination, actor string) {
	e.bus.Emit(Event{Type: EventMovementRecorded, Payload: MovementRecordedEvent{
		MovementID:   movementID,
		InstanceID:   instanceID,
		MovementType: movementType,
		Status:       status,
		Destination:  destination,
		Actor:        actor,
	}})
}

func (e *lifecycleEmitter) EmitMovementUpdated(movementID, instanceID int64, oldStatus, newStatus, actor string) {
	e.bus.Emit(Event{Type: EventMovementUpdated, Payload: MovementUpdatedEvent{
		MovementID: movementID,
		InstanceID: instanceID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Actor:      actor,
	}})
}

func (e *lifecycleEmitter) EmitMovementDeleted(movementID, instanceID int64, actor string) {
	e.bus.Emit(Event{Type: EventMovementDeleted, Payload: MovementDeletedEvent{
		MovementID: movementID,
		InstanceID: instanceID,
		Actor:      actor,
	}})
}

func (e *lifecycleEmitter) EmitMaintenanceCreated(maintenanceID, instanceID int64, maintenanceType, status, actor string) {
	e.bus.Emit(Event{Type: EventMaintenanceCreated, Payload: MaintenanceCreatedEvent{
		MaintenanceID:   maintenanceID,
		InstanceID:      instanceID,
		MaintenanceType: maintenanceType,
		Status:          status,
		Actor:           actor,
	}})
}

func (e *lifecycleEmitter) EmitMaintenanceTransitioned(maintenanceID, instanceID int64, from, to, result, actor string) {
	e.bus.Emit(Event{Type: EventMaintenanceTransitioned, Payload: MaintenanceTransitionedEvent{
		MaintenanceID: maintenanceID,
		InstanceID:    instanceID,
		From:          from,
		To:            to,
		Result:        result,
		Actor:         actor,
	}})
}

func (e *lifecycleEmitter) EmitMaintenanceDeleted(maintenanceID, instanceID int64, actor string) {
	e.bus.Emit(Event{Type: EventMaintenanceDeleted, Payload: MaintenanceDeletedEvent{
		MaintenanceID: maintenanceID,
		InstanceID:    instanceID,
		Actor:         actor,
	}})
}

func (e *lifecycleEmitter) EmitInstanceStatusChanged(instanceID int64, serial, oldStatus, newStatus, actor string) {
	e.bus.Emit(Event{Type: EventInstanceStatusChanged, Payload: InstanceStatusChangedEvent{
		InstanceID: instanceID,
		Serial:     serial,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
		Actor:      actor,
	}})
}

// orderEmitter serves both the orders manager and the route service, which
// cascade order status changes of their own.
type orderEmitter struct {
	bus *EventBus
}

func (e *orderEmitter) EmitOrderCreated(orderID int64, orderNumber string, customerID int64, total string, actor string) {
	e.bus.Emit(Event{Type: EventOrderCreated, Payload: OrderCreatedEvent{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		CustomerID:  customerID,
		Total:       total,
		Actor:       actor,
	}})
}

func (e *orderEmitter) EmitOrderStatusChanged(orderID int64, orderNumber, oldStatus, newStatus, actor string) {
	e.bus.Emit(Event{Type: EventOrderStatusChanged, Payload: OrderStatusChangedEvent{
		OrderID:     orderID,
		OrderNumber: orderNumber,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		Actor:       actor,
	}})
}

type routeEmitter struct {
	orderEmitter
}

func (e *routeEmitter) EmitRouteSaved(routeID int64, routeNumber, status, actor string) {
	e.bus.Emit(Event{Type: EventRouteSaved, Payload: RouteSavedEvent{
		RouteID:     routeID,
		RouteNumber: routeNumber,
		Status:      status,
		Actor:       actor,
	}})
}

func (e *routeEmitter) EmitRouteDeleted(routeID int64, routeNumber, actor string) {
	e.bus.Emit(Event{Type: EventRouteDeleted, Payload: RouteDeletedEvent{
		RouteID:     routeID,
		RouteNumber: routeNumber,
		Actor:       actor,
	}})
}

func (e *routeEmitter) EmitStopUpdated(routeID, stopID, orderID int64, status, actor string) {
	e.bus.Emit(Event{Type: EventStopUpdated, Payload: StopUpdatedEvent{
		RouteID: routeID,
		StopID:  stopID,
		OrderID: orderID,
		Status:  status,
		Actor:   actor,
	}})
}

type stockEmitter struct {
	bus *EventBus
}

func (e *stockEmitter) EmitStockAdjusted(depotID, productID int64, oldQty, newQty int, reason, actor string) {
	e.bus.Emit(Event{Type: EventStockAdjusted, Payload: StockAdjustedEvent{
		DepotID:     depotID,
		ProductID:   productID,
		OldQuantity: oldQty,
		NewQuantity: newQty,
		Reason:      reason,
		Actor:       actor,
	}})
}

func (e *stockEmitter) EmitCountCompleted(orderID int64, reference string, depotID int64, actor string) {
	e.bus.Emit(Event{Type: EventCountCompleted, Payload: CountCompletedEvent{
		OrderID:   orderID,
		Reference: reference,
		DepotID:   depotID,
		Actor:     actor,
	}})
}

type billingEmitter struct {
	bus *EventBus
}

func (e *billingEmitter) EmitDepositCreated(depositID, customerID int64, amount string, paid bool, actor string) {
	e.bus.Emit(Event{Type: EventDepositCreated, Payload: DepositCreatedEvent{
		DepositID:  depositID,
		CustomerID: customerID,
		Amount:     amount,
		Paid:       paid,
		Actor:      actor,
	}})
}

func (e *billingEmitter) EmitDepositReturned(depositID, customerID int64, amount string, actor string) {
	e.bus.Emit(Event{Type: EventDepositReturned, Payload: DepositReturnedEvent{
		DepositID:  depositID,
		CustomerID: customerID,
		Amount:     amount,
		Actor:      actor,
	}})
}

func (e *billingEmitter) EmitDocumentCreated(documentID int64, number, docType, amount, actor string) {
	e.bus.Emit(Event{Type: EventDocumentCreated, Payload: DocumentCreatedEvent{
		DocumentID: documentID,
		Number:     number,
		DocType:    docType,
		Amount:     amount,
		Actor:      actor,
	}})
}

func (e *billingEmitter) EmitDocumentPaid(documentID int64, number, method, actor string) {
	e.bus.Emit(Event{Type: EventDocumentPaid, Payload: DocumentPaidEvent{
		DocumentID: documentID,
		Number:     number,
		Method:     method,
		Actor:      actor,
	}})
}
