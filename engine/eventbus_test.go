package engine

import "testing"

func TestSubscribeTypesFilters(t *testing.T) {
	bus := NewEventBus()
	var all, orders int
	bus.Subscribe(func(Event) { all++ })
	id := bus.SubscribeTypes(func(Event) { orders++ }, EventOrderCreated, EventOrderStatusChanged)

	bus.Emit(Event{Type: EventOrderCreated})
	bus.Emit(Event{Type: EventStockAdjusted})
	if all != 2 || orders != 1 {
		t.Errorf("all=%d orders=%d, want 2 and 1", all, orders)
	}

	bus.Unsubscribe(id)
	bus.Emit(Event{Type: EventOrderStatusChanged})
	if orders != 1 {
		t.Errorf("orders = %d after unsubscribe, want 1", orders)
	}
}

func TestEmitStampsTimestamp(t *testing.T) {
	bus := NewEventBus()
	var got Event
	bus.Subscribe(func(evt Event) { got = evt })
	bus.Emit(Event{Type: EventDepositCreated})
	if got.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestEmitSurvivesHandlerPanic(t *testing.T) {
	bus := NewEventBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "first") })
	bus.Subscribe(func(Event) { panic("boom") })
	bus.Subscribe(func(Event) { order = append(order, "third") })

	bus.Emit(Event{Type: EventStockAdjusted})
	if len(order) != 2 || order[0] != "first" || order[1] != "third" {
		t.Errorf("delivered = %v, want [first third]", order)
	}
}

func TestEventTypeString(t *testing.T) {
	if got := EventOrderCreated.String(); got != "order.created" {
		t.Errorf("String() = %q, want %q", got, "order.created")
	}
	if got := EventType(999).String(); got != "event(999)" {
		t.Errorf("String() = %q, want %q", got, "event(999)")
	}
}
