package engine

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"gasflow/messaging"
)

// sideEffect is what every domain event leaves behind: one audit row and,
// when a transport is configured, one outbox envelope.
type sideEffect struct {
	entityType string
	entityID   int64
	action     string
	oldValue   string
	newValue   string
	actor      string
	msgType    string
	payload    any
}

func (e *Engine) wireEventHandlers() {
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MovementRecordedEvent)
		e.record(sideEffect{
			entityType: "movement", entityID: ev.MovementID, action: "recorded",
			newValue: fmt.Sprintf("%s %s -> %s", ev.MovementType, ev.Status, ev.Destination), actor: ev.Actor,
			msgType: messaging.TypeMovementRecorded,
			payload: messaging.MovementEvent{MovementID: ev.MovementID, InstanceID: ev.InstanceID, MovementType: ev.MovementType,
				Status: ev.Status, Destination: ev.Destination, Actor: ev.Actor},
		})
	}, EventMovementRecorded)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MovementUpdatedEvent)
		e.record(sideEffect{
			entityType: "movement", entityID: ev.MovementID, action: "updated",
			oldValue: ev.OldStatus, newValue: ev.NewStatus, actor: ev.Actor,
			msgType: messaging.TypeMovementUpdated,
			payload: messaging.MovementEvent{MovementID: ev.MovementID, InstanceID: ev.InstanceID, OldStatus: ev.OldStatus,
				Status: ev.NewStatus, Actor: ev.Actor},
		})
	}, EventMovementUpdated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MovementDeletedEvent)
		e.record(sideEffect{
			entityType: "movement", entityID: ev.MovementID, action: "deleted", actor: ev.Actor,
			msgType: messaging.TypeMovementDeleted,
			payload: messaging.MovementEvent{MovementID: ev.MovementID, InstanceID: ev.InstanceID, Actor: ev.Actor},
		})
	}, EventMovementDeleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MaintenanceCreatedEvent)
		e.record(sideEffect{
			entityType: "maintenance", entityID: ev.MaintenanceID, action: "created",
			newValue: ev.MaintenanceType + " " + ev.Status, actor: ev.Actor,
			msgType: messaging.TypeMaintenanceCreated,
			payload: messaging.MaintenanceEvent{MaintenanceID: ev.MaintenanceID, InstanceID: ev.InstanceID,
				MaintenanceType: ev.MaintenanceType, To: ev.Status, Actor: ev.Actor},
		})
	}, EventMaintenanceCreated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MaintenanceTransitionedEvent)
		newValue := ev.To
		if ev.Result != "" {
			newValue += " (" + ev.Result + ")"
		}
		e.record(sideEffect{
			entityType: "maintenance", entityID: ev.MaintenanceID, action: "transitioned",
			oldValue: ev.From, newValue: newValue, actor: ev.Actor,
			msgType: messaging.TypeMaintenanceTransitioned,
			payload: messaging.MaintenanceEvent{MaintenanceID: ev.MaintenanceID, InstanceID: ev.InstanceID,
				From: ev.From, To: ev.To, Result: ev.Result, Actor: ev.Actor},
		})
	}, EventMaintenanceTransitioned)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(MaintenanceDeletedEvent)
		e.record(sideEffect{
			entityType: "maintenance", entityID: ev.MaintenanceID, action: "deleted", actor: ev.Actor,
			msgType: messaging.TypeMaintenanceDeleted,
			payload: messaging.MaintenanceEvent{MaintenanceID: ev.MaintenanceID, InstanceID: ev.InstanceID, Actor: ev.Actor},
		})
	}, EventMaintenanceDeleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(InstanceStatusChangedEvent)
		e.record(sideEffect{
			entityType: "instance", entityID: ev.InstanceID, action: "status",
			oldValue: ev.OldStatus, newValue: ev.NewStatus, actor: ev.Actor,
			msgType: messaging.TypeInstanceStatusChanged,
			payload: messaging.InstanceEvent{InstanceID: ev.InstanceID, SerialNumber: ev.Serial,
				OldStatus: ev.OldStatus, NewStatus: ev.NewStatus, Actor: ev.Actor},
		})
	}, EventInstanceStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RouteSavedEvent)
		e.record(sideEffect{
			entityType: "route", entityID: ev.RouteID, action: "saved", newValue: ev.RouteNumber + " " + ev.Status, actor: ev.Actor,
			msgType: messaging.TypeRouteSaved,
			payload: messaging.RouteEvent{RouteID: ev.RouteID, RouteNumber: ev.RouteNumber, Status: ev.Status, Actor: ev.Actor},
		})
	}, EventRouteSaved)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(RouteDeletedEvent)
		e.record(sideEffect{
			entityType: "route", entityID: ev.RouteID, action: "deleted", oldValue: ev.RouteNumber, actor: ev.Actor,
			msgType: messaging.TypeRouteDeleted,
			payload: messaging.RouteEvent{RouteID: ev.RouteID, RouteNumber: ev.RouteNumber, Actor: ev.Actor},
		})
	}, EventRouteDeleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StopUpdatedEvent)
		e.record(sideEffect{
			entityType: "route_stop", entityID: ev.StopID, action: "status", newValue: ev.Status, actor: ev.Actor,
			msgType: messaging.TypeStopUpdated,
			payload: messaging.StopEvent{RouteID: ev.RouteID, StopID: ev.StopID, OrderID: ev.OrderID, Status: ev.Status, Actor: ev.Actor},
		})
	}, EventStopUpdated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderCreatedEvent)
		e.record(sideEffect{
			entityType: "order", entityID: ev.OrderID, action: "created", newValue: ev.OrderNumber + " " + ev.Total, actor: ev.Actor,
			msgType: messaging.TypeOrderCreated,
			payload: messaging.OrderEvent{OrderID: ev.OrderID, OrderNumber: ev.OrderNumber, CustomerID: ev.CustomerID,
				Total: ev.Total, Actor: ev.Actor},
		})
	}, EventOrderCreated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(OrderStatusChangedEvent)
		e.record(sideEffect{
			entityType: "order", entityID: ev.OrderID, action: "status", oldValue: ev.OldStatus, newValue: ev.NewStatus, actor: ev.Actor,
			msgType: messaging.TypeOrderStatusChanged,
			payload: messaging.OrderEvent{OrderID: ev.OrderID, OrderNumber: ev.OrderNumber, OldStatus: ev.OldStatus,
				NewStatus: ev.NewStatus, Actor: ev.Actor},
		})
	}, EventOrderStatusChanged)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(StockAdjustedEvent)
		e.record(sideEffect{
			entityType: "inventory", entityID: ev.DepotID, action: "adjusted",
			oldValue: strconv.Itoa(ev.OldQuantity), newValue: fmt.Sprintf("product %d: %d", ev.ProductID, ev.NewQuantity), actor: ev.Actor,
			msgType: messaging.TypeStockAdjusted,
			payload: messaging.StockEvent{DepotID: ev.DepotID, ProductID: ev.ProductID, OldQuantity: ev.OldQuantity,
				NewQuantity: ev.NewQuantity, Reason: ev.Reason, Actor: ev.Actor},
		})
	}, EventStockAdjusted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(CountCompletedEvent)
		e.record(sideEffect{
			entityType: "inventory_order", entityID: ev.OrderID, action: "completed", newValue: ev.Reference, actor: ev.Actor,
			msgType: messaging.TypeCountCompleted,
			payload: messaging.CountEvent{InventoryOrderID: ev.OrderID, Reference: ev.Reference, DepotID: ev.DepotID, Actor: ev.Actor},
		})
	}, EventCountCompleted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DepositCreatedEvent)
		e.record(sideEffect{
			entityType: "deposit", entityID: ev.DepositID, action: "created", newValue: ev.Amount, actor: ev.Actor,
			msgType: messaging.TypeDepositCreated,
			payload: messaging.DepositEvent{DepositID: ev.DepositID, CustomerID: ev.CustomerID, Amount: ev.Amount, Paid: ev.Paid, Actor: ev.Actor},
		})
	}, EventDepositCreated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DepositReturnedEvent)
		e.record(sideEffect{
			entityType: "deposit", entityID: ev.DepositID, action: "returned", oldValue: ev.Amount, actor: ev.Actor,
			msgType: messaging.TypeDepositReturned,
			payload: messaging.DepositEvent{DepositID: ev.DepositID, CustomerID: ev.CustomerID, Amount: ev.Amount, Paid: true, Actor: ev.Actor},
		})
	}, EventDepositReturned)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DocumentCreatedEvent)
		e.record(sideEffect{
			entityType: "document", entityID: ev.DocumentID, action: "created", newValue: ev.Number + " " + ev.Amount, actor: ev.Actor,
			msgType: messaging.TypeDocumentCreated,
			payload: messaging.DocumentEvent{DocumentID: ev.DocumentID, Number: ev.Number, DocType: ev.DocType, Amount: ev.Amount, Actor: ev.Actor},
		})
	}, EventDocumentCreated)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(DocumentPaidEvent)
		e.record(sideEffect{
			entityType: "document", entityID: ev.DocumentID, action: "paid", newValue: ev.Method, actor: ev.Actor,
			msgType: messaging.TypeDocumentPaid,
			payload: messaging.DocumentEvent{DocumentID: ev.DocumentID, Number: ev.Number, PaymentMethod: ev.Method, Actor: ev.Actor},
		})
	}, EventDocumentPaid)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		log.Printf("engine: %s", ev.Detail)
	}, EventMessagingConnected, EventMessagingDisconnected)
}

func (e *Engine) record(s sideEffect) {
	ctx := context.Background()
	if err := e.db.AppendAudit(ctx, s.entityType, s.entityID, s.action, s.oldValue, s.newValue, s.actor); err != nil {
		log.WithFields(log.Fields{"entity": s.entityType, "id": s.entityID}).Errorf("engine: append audit: %v", err)
	}
	if e.msgClient == nil || !e.msgClient.Enabled() {
		return
	}
	data, err := messaging.NewEnvelope(s.msgType, EventSource, s.payload).Encode()
	if err != nil {
		log.Printf("engine: encode %s: %v", s.msgType, err)
		return
	}
	if err := e.db.EnqueueOutbox(ctx, e.cfg.Messaging.EventsTopic, data, s.msgType); err != nil {
		log.Printf("engine: enqueue %s: %v", s.msgType, err)
	}
}
