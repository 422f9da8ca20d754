package www

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gasflow/engine"
)

type SSEEvent struct {
	Event string
	Data  string
}

type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
	listeners []engine.SubscriberID
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *EventHub) listen(eng *engine.Engine, fn func(engine.Event), types ...engine.EventType) {
	id := eng.Events.SubscribeTypes(fn, types...)
	h.mu.Lock()
	h.listeners = append(h.listeners, id)
	h.mu.Unlock()
}

// DetachEngineListeners undoes SetupEngineListeners so a stopped hub no
// longer receives engine events.
func (h *EventHub) DetachEngineListeners(eng *engine.Engine) {
	h.mu.Lock()
	ids := h.listeners
	h.listeners = nil
	h.mu.Unlock()
	for _, id := range ids {
		eng.Events.Unsubscribe(id)
	}
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.MovementRecordedEvent:
			h.Broadcast("movement-update", fmt.Sprintf(`{"type":"recorded","movement_id":%d,"instance_id":%d,"status":%q}`, ev.MovementID, ev.InstanceID, ev.Status))
		case engine.MovementUpdatedEvent:
			h.Broadcast("movement-update", fmt.Sprintf(`{"type":"updated","movement_id":%d,"instance_id":%d,"status":%q}`, ev.MovementID, ev.InstanceID, ev.NewStatus))
		case engine.MovementDeletedEvent:
			h.Broadcast("movement-update", fmt.Sprintf(`{"type":"deleted","movement_id":%d,"instance_id":%d}`, ev.MovementID, ev.InstanceID))
		}
	}, engine.EventMovementRecorded, engine.EventMovementUpdated, engine.EventMovementDeleted)

	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.MaintenanceCreatedEvent:
			h.Broadcast("maintenance-update", fmt.Sprintf(`{"type":"created","maintenance_id":%d,"status":%q}`, ev.MaintenanceID, ev.Status))
		case engine.MaintenanceTransitionedEvent:
			h.Broadcast("maintenance-update", fmt.Sprintf(`{"type":"transitioned","maintenance_id":%d,"status":%q,"result":%q}`, ev.MaintenanceID, ev.To, ev.Result))
		case engine.MaintenanceDeletedEvent:
			h.Broadcast("maintenance-update", fmt.Sprintf(`{"type":"deleted","maintenance_id":%d}`, ev.MaintenanceID))
		}
	}, engine.EventMaintenanceCreated, engine.EventMaintenanceTransitioned, engine.EventMaintenanceDeleted)

	h.listen(eng, func(evt engine.Event) {
		ev := evt.Payload.(engine.InstanceStatusChangedEvent)
		h.Broadcast("instance-update", fmt.Sprintf(`{"instance_id":%d,"serial":%q,"status":%q}`, ev.InstanceID, ev.Serial, ev.NewStatus))
	}, engine.EventInstanceStatusChanged)

	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.RouteSavedEvent:
			h.Broadcast("route-update", fmt.Sprintf(`{"type":"saved","route_id":%d,"status":%q}`, ev.RouteID, ev.Status))
		case engine.RouteDeletedEvent:
			h.Broadcast("route-update", fmt.Sprintf(`{"type":"deleted","route_id":%d}`, ev.RouteID))
		case engine.StopUpdatedEvent:
			h.Broadcast("route-update", fmt.Sprintf(`{"type":"stop","route_id":%d,"stop_id":%d,"status":%q}`, ev.RouteID, ev.StopID, ev.Status))
		}
	}, engine.EventRouteSaved, engine.EventRouteDeleted, engine.EventStopUpdated)

	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.OrderCreatedEvent:
			h.Broadcast("order-update", fmt.Sprintf(`{"type":"created","order_id":%d,"order_number":%q}`, ev.OrderID, ev.OrderNumber))
		case engine.OrderStatusChangedEvent:
			h.Broadcast("order-update", fmt.Sprintf(`{"type":"status_changed","order_id":%d,"new_status":%q}`, ev.OrderID, ev.NewStatus))
		}
	}, engine.EventOrderCreated, engine.EventOrderStatusChanged)

	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.StockAdjustedEvent:
			h.Broadcast("inventory-update", fmt.Sprintf(`{"depot_id":%d,"product_id":%d,"quantity":%d}`, ev.DepotID, ev.ProductID, ev.NewQuantity))
		case engine.CountCompletedEvent:
			h.Broadcast("inventory-update", fmt.Sprintf(`{"depot_id":%d,"count":%q}`, ev.DepotID, ev.Reference))
		}
	}, engine.EventStockAdjusted, engine.EventCountCompleted)

	h.listen(eng, func(evt engine.Event) {
		switch ev := evt.Payload.(type) {
		case engine.DepositCreatedEvent:
			h.Broadcast("billing-update", fmt.Sprintf(`{"type":"deposit","deposit_id":%d}`, ev.DepositID))
		case engine.DepositReturnedEvent:
			h.Broadcast("billing-update", fmt.Sprintf(`{"type":"deposit_returned","deposit_id":%d}`, ev.DepositID))
		case engine.DocumentCreatedEvent:
			h.Broadcast("billing-update", fmt.Sprintf(`{"type":"document","document_id":%d,"number":%q}`, ev.DocumentID, ev.Number))
		case engine.DocumentPaidEvent:
			h.Broadcast("billing-update", fmt.Sprintf(`{"type":"paid","document_id":%d,"number":%q}`, ev.DocumentID, ev.Number))
		}
	}, engine.EventDepositCreated, engine.EventDepositReturned, engine.EventDocumentCreated, engine.EventDocumentPaid)

	h.listen(eng, func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	h.listen(eng, func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// SSEHandler serves the SSE endpoint.
func (h *EventHub) SSEHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.AddClient()
	defer h.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
