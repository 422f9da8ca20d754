package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type EventType int

var eventNames = map[EventType]string{
	EventMovementRecorded:        "movement.recorded",
	EventMovementUpdated:         "movement.updated",
	EventMovementDeleted:         "movement.deleted",
	EventMaintenanceCreated:      "maintenance.created",
	EventMaintenanceTransitioned: "maintenance.transitioned",
	EventMaintenanceDeleted:      "maintenance.deleted",
	EventInstanceStatusChanged:   "instance.status_changed",
	EventRouteSaved:              "route.saved",
	EventRouteDeleted:            "route.deleted",
	EventStopUpdated:             "route.stop_updated",
	EventOrderCreated:            "order.created",
	EventOrderStatusChanged:      "order.status_changed",
	EventStockAdjusted:           "stock.adjusted",
	EventCountCompleted:          "stock.count_completed",
	EventDepositCreated:          "deposit.created",
	EventDepositReturned:         "deposit.returned",
	EventDocumentCreated:         "document.created",
	EventDocumentPaid:            "document.paid",
	EventMessagingConnected:      "messaging.connected",
	EventMessagingDisconnected:   "messaging.disconnected",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(t))
}

type SubscriberID int

type Event struct {
	Type      EventType
	Timestamp time.Time
	Payload   any
}

type subscriber struct {
	fn     func(Event)
	filter map[EventType]struct{}
}

func (s subscriber) wants(t EventType) bool {
	if s.filter == nil {
		return true
	}
	_, ok := s.filter[t]
	return ok
}

// EventBus fans events out synchronously, in subscription order. A panicking
// handler is logged and skipped so the emitting service call still returns.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[SubscriberID]subscriber
	nextID SubscriberID
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[SubscriberID]subscriber)}
}

func (eb *EventBus) add(s subscriber) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	eb.subs[eb.nextID] = s
	return eb.nextID
}

// Subscribe registers a handler for all event types.
func (eb *EventBus) Subscribe(fn func(Event)) SubscriberID {
	return eb.add(subscriber{fn: fn})
}

// SubscribeTypes registers a handler for specific event types.
func (eb *EventBus) SubscribeTypes(fn func(Event), types ...EventType) SubscriberID {
	filter := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		filter[t] = struct{}{}
	}
	return eb.add(subscriber{fn: fn, filter: filter})
}

func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	delete(eb.subs, id)
	eb.mu.Unlock()
}

// Emit delivers evt to every matching subscriber before returning.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	eb.mu.RLock()
	ids := make([]SubscriberID, 0, len(eb.subs))
	for id, s := range eb.subs {
		if s.wants(evt.Type) {
			ids = append(ids, id)
		}
	}
	matched := make([]subscriber, 0, len(ids))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		matched = append(matched, eb.subs[id])
	}
	eb.mu.RUnlock()

	for _, s := range matched {
		eb.deliver(s, evt)
	}
}

func (eb *EventBus) deliver(s subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("event", evt.Type.String()).Errorf("eventbus: handler panic: %v", r)
		}
	}()
	s.fn(evt)
}
