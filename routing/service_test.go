package routing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/config"
	"gasflow/lifecycle"
	"gasflow/store"
)

type mockEmitter struct {
	saved   []string
	deleted []int64
	stops   []int64
	orders  []orderEvent
}

type orderEvent struct {
	orderID  int64
	from, to string
}

func (m *mockEmitter) EmitRouteSaved(_ int64, _, status, _ string) { m.saved = append(m.saved, status) }
func (m *mockEmitter) EmitRouteDeleted(routeID int64, _, _ string) {
	m.deleted = append(m.deleted, routeID)
}
func (m *mockEmitter) EmitStopUpdated(_, stopID, _ int64, _, _ string) { m.stops = append(m.stops, stopID) }
func (m *mockEmitter) EmitOrderStatusChanged(orderID int64, _, from, to, _ string) {
	m.orders = append(m.orders, orderEvent{orderID, from, to})
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: dbPath},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return db
}

type fixture struct {
	driver  *store.Driver
	vehicle *store.Vehicle
	orders  []*store.Order
}

func newTestService(t *testing.T, orders int) (*Service, *store.DB, *mockEmitter, fixture) {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()

	f := fixture{
		driver:  &store.Driver{Name: "Luc Moreau", Active: true},
		vehicle: &store.Vehicle{Name: "Truck 1", Plate: "AB-123-CD", Capacity: 80},
	}
	if err := db.CreateDriver(ctx, f.driver); err != nil {
		t.Fatalf("create driver: %v", err)
	}
	if err := db.CreateVehicle(ctx, f.vehicle); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	c := &store.Customer{Name: "Martin"}
	if err := db.CreateCustomer(ctx, c); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	for i := 0; i < orders; i++ {
		o := &store.Order{
			OrderNumber: store.NewNumber("CMD", testNow),
			CustomerID:  c.ID,
			OrderDate:   testNow,
			Status:      store.OrderConfirmed,
			TotalAmount: decimal.NewFromInt(30),
		}
		if err := db.CreateOrder(ctx, o); err != nil {
			t.Fatalf("create order: %v", err)
		}
		f.orders = append(f.orders, o)
	}

	em := &mockEmitter{}
	svc := NewService(db, em, nil, 0)
	svc.now = func() time.Time { return testNow }
	return svc, db, em, f
}

func routeInput(f fixture, orders ...*store.Order) RouteInput {
	in := RouteInput{
		RouteDate: testNow.AddDate(0, 0, 1),
		VehicleID: f.vehicle.ID,
		DriverID:  f.driver.ID,
		StartTime: "08:00",
		EndTime:   "12:00",
		Status:    store.RoutePlanned,
	}
	for i, o := range orders {
		in.Stops = append(in.Stops, StopInput{OrderID: o.ID, StopOrder: i + 1})
	}
	return in
}

func orderStatus(t *testing.T, db *store.DB, id int64) *store.Order {
	t.Helper()
	o, err := db.GetOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("get order %d: %v", id, err)
	}
	return o
}

func TestCreateRoutePutsOrdersInDelivery(t *testing.T) {
	svc, db, em, f := newTestService(t, 2)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders...), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(r.Stops) != 2 || r.Stops[0].StopOrder != 1 || r.Stops[0].Status != store.StopPending {
		t.Fatalf("stops = %+v, want two pending stops", r.Stops)
	}
	if r.DriverName != "Luc Moreau" {
		t.Errorf("driver name = %q, want %q", r.DriverName, "Luc Moreau")
	}
	for _, o := range f.orders {
		got := orderStatus(t, db, o.ID)
		if got.Status != store.OrderInDelivery {
			t.Errorf("order %d status = %q, want %q", o.ID, got.Status, store.OrderInDelivery)
		}
		if got.DeliveryDate == nil || !got.DeliveryDate.Equal(testNow.AddDate(0, 0, 1).Truncate(24*time.Hour)) {
			t.Errorf("order %d delivery date = %v, want route date", o.ID, got.DeliveryDate)
		}
	}
	if len(em.orders) != 2 {
		t.Errorf("order events = %d, want 2", len(em.orders))
	}
}

func TestCreateRouteValidation(t *testing.T) {
	svc, db, em, f := newTestService(t, 2)
	ctx := context.Background()

	gap := routeInput(f, f.orders...)
	gap.Stops[1].StopOrder = 3
	dup := routeInput(f, f.orders...)
	dup.Stops[1].StopOrder = 1
	late := routeInput(f, f.orders...)
	late.EndTime = "07:00"
	twice := routeInput(f, f.orders[0], f.orders[0])
	noDriver := routeInput(f, f.orders...)
	noDriver.DriverID = 999
	empty := routeInput(f)

	cases := map[string]struct {
		in    RouteInput
		field string
	}{
		"gap":           {gap, "stops"},
		"duplicate":     {dup, "stops"},
		"end before":    {late, "end_time"},
		"order twice":   {twice, "stops"},
		"unknown drive": {noDriver, "driver_id"},
		"no stops":      {empty, "stops"},
	}
	for name, tc := range cases {
		_, err := svc.Create(ctx, tc.in, "tester")
		ve, ok := lifecycle.AsValidation(err)
		if !ok {
			t.Errorf("%s: err = %v, want validation", name, err)
			continue
		}
		if _, ok := ve.Fields[tc.field]; !ok {
			t.Errorf("%s: fields = %v, want %q", name, ve.Fields, tc.field)
		}
	}

	routes, _ := db.ListRoutes(ctx, store.RouteFilter{})
	if len(routes) != 0 {
		t.Errorf("routes = %d, want 0", len(routes))
	}
	if got := orderStatus(t, db, f.orders[0].ID); got.Status != store.OrderConfirmed {
		t.Errorf("order status = %q, want %q", got.Status, store.OrderConfirmed)
	}
	if len(em.saved) != 0 {
		t.Errorf("saved events = %d, want 0", len(em.saved))
	}
}

func TestUpdateRemovesOrders(t *testing.T) {
	svc, db, _, f := newTestService(t, 4)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders...), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// The third order was delivered and the fourth cancelled out of band;
	// removing them must not touch either.
	if err := db.UpdateOrderStatus(ctx, f.orders[2].ID, store.OrderDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if err := db.UpdateOrderStatus(ctx, f.orders[3].ID, store.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := svc.Update(ctx, r.ID, routeInput(f, f.orders[0]), "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(got.Stops) != 1 || got.Stops[0].OrderID != f.orders[0].ID {
		t.Fatalf("stops = %+v, want only order %d", got.Stops, f.orders[0].ID)
	}

	removed := orderStatus(t, db, f.orders[1].ID)
	if removed.Status != store.OrderConfirmed || removed.DeliveryDate != nil {
		t.Errorf("removed order = %s/%v, want confirmed with no date", removed.Status, removed.DeliveryDate)
	}
	delivered := orderStatus(t, db, f.orders[2].ID)
	if delivered.Status != store.OrderDelivered || delivered.DeliveryDate == nil {
		t.Errorf("delivered order = %s/%v, want untouched", delivered.Status, delivered.DeliveryDate)
	}
	cancelled := orderStatus(t, db, f.orders[3].ID)
	if cancelled.Status != store.OrderCancelled || cancelled.DeliveryDate == nil {
		t.Errorf("cancelled order = %s/%v, want untouched", cancelled.Status, cancelled.DeliveryDate)
	}
	kept := orderStatus(t, db, f.orders[0].ID)
	if kept.Status != store.OrderInDelivery {
		t.Errorf("kept order = %q, want %q", kept.Status, store.OrderInDelivery)
	}
}

func TestUpdateMovesRetainedOrdersToRouteDate(t *testing.T) {
	svc, db, em, f := newTestService(t, 1)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders[0]), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	events := len(em.orders)

	in := routeInput(f, f.orders[0])
	in.RouteDate = in.RouteDate.AddDate(0, 0, 5)
	if _, err := svc.Update(ctx, r.ID, in, "tester"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got := orderStatus(t, db, f.orders[0].ID)
	if got.Status != store.OrderInDelivery {
		t.Errorf("status = %q, want %q", got.Status, store.OrderInDelivery)
	}
	want := in.RouteDate.Format("2006-01-02")
	if got.DeliveryDate == nil || got.DeliveryDate.Format("2006-01-02") != want {
		t.Errorf("delivery date = %v, want %s", got.DeliveryDate, want)
	}
	if len(em.orders) != events {
		t.Errorf("order events = %d, want %d", len(em.orders), events)
	}
}

func TestCompletedRouteDeliversAndLocks(t *testing.T) {
	svc, db, _, f := newTestService(t, 2)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders...), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	in := routeInput(f, f.orders...)
	in.Status = store.RouteCompleted
	if _, err := svc.Update(ctx, r.ID, in, "tester"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	for _, o := range f.orders {
		if got := orderStatus(t, db, o.ID); got.Status != store.OrderDelivered {
			t.Errorf("order %d = %q, want %q", o.ID, got.Status, store.OrderDelivered)
		}
	}

	if _, err := svc.Update(ctx, r.ID, routeInput(f, f.orders[0]), "tester"); !errors.Is(err, lifecycle.ErrStateConflict) {
		t.Errorf("edit completed: err = %v, want conflict", err)
	}
	if err := svc.Delete(ctx, r.ID, "tester"); !errors.Is(err, lifecycle.ErrStateConflict) {
		t.Errorf("delete completed: err = %v, want conflict", err)
	}
}

func TestUpdateStopStatusCascades(t *testing.T) {
	svc, db, em, f := newTestService(t, 2)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders...), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stop, err := svc.UpdateStopStatus(ctx, r.ID, r.Stops[0].ID, StopUpdate{Status: store.StopCompleted, ActualArrival: "09:15"}, "tester")
	if err != nil {
		t.Fatalf("complete stop: %v", err)
	}
	want := time.Date(2025, 3, 11, 9, 15, 0, 0, time.UTC)
	if stop.ActualArrival == nil || !stop.ActualArrival.Equal(want) {
		t.Errorf("actual arrival = %v, want %v", stop.ActualArrival, want)
	}
	if got := orderStatus(t, db, r.Stops[0].OrderID); got.Status != store.OrderDelivered {
		t.Errorf("completed stop order = %q, want %q", got.Status, store.OrderDelivered)
	}

	if _, err := svc.UpdateStopStatus(ctx, r.ID, r.Stops[1].ID, StopUpdate{Status: store.StopFailed}, "tester"); err != nil {
		t.Fatalf("fail stop: %v", err)
	}
	failed := orderStatus(t, db, r.Stops[1].OrderID)
	if failed.Status != store.OrderConfirmed || failed.DeliveryDate != nil {
		t.Errorf("failed stop order = %s/%v, want confirmed with no date", failed.Status, failed.DeliveryDate)
	}
	if len(em.stops) != 2 {
		t.Errorf("stop events = %d, want 2", len(em.stops))
	}

	if _, err := svc.UpdateStopStatus(ctx, r.ID+1, r.Stops[0].ID, StopUpdate{Status: store.StopFailed}, "tester"); !store.IsNotFound(err) {
		t.Errorf("stop on another route: err = %v, want not found", err)
	}
}

func TestDeleteRouteReleasesOrders(t *testing.T) {
	svc, db, em, f := newTestService(t, 2)
	ctx := context.Background()

	r, err := svc.Create(ctx, routeInput(f, f.orders...), "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, r.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetRoute(ctx, r.ID); !store.IsNotFound(err) {
		t.Errorf("route still present: %v", err)
	}
	for _, o := range f.orders {
		got := orderStatus(t, db, o.ID)
		if got.Status != store.OrderConfirmed || got.DeliveryDate != nil {
			t.Errorf("order %d = %s/%v, want confirmed with no date", o.ID, got.Status, got.DeliveryDate)
		}
	}
	if len(em.deleted) != 1 {
		t.Errorf("delete events = %d, want 1", len(em.deleted))
	}
}

func TestDriverRoutes(t *testing.T) {
	svc, _, _, f := newTestService(t, 3)
	ctx := context.Background()

	past := routeInput(f, f.orders[0])
	past.RouteDate = testNow.AddDate(0, 0, -1)
	cancelled := routeInput(f, f.orders[1])
	cancelled.Status = store.RouteCancelled
	upcoming := routeInput(f, f.orders[2])
	for _, in := range []RouteInput{past, cancelled, upcoming} {
		if _, err := svc.Create(ctx, in, "tester"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	routes, err := svc.DriverRoutes(ctx, f.driver.ID)
	if err != nil {
		t.Fatalf("driver routes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("routes = %d, want 1", len(routes))
	}
	if len(routes[0].Stops) != 1 || routes[0].Stops[0].OrderID != f.orders[2].ID {
		t.Errorf("stops = %+v, want order %d", routes[0].Stops, f.orders[2].ID)
	}
}

func TestCheckStopOrder(t *testing.T) {
	ok := []StopInput{{OrderID: 1, StopOrder: 2}, {OrderID: 2, StopOrder: 1}}
	if err := checkStopOrder(ok); err != nil {
		t.Errorf("shuffled 1..n: %v", err)
	}
	bad := []StopInput{{OrderID: 1, StopOrder: 2}, {OrderID: 2, StopOrder: 3}}
	if err := checkStopOrder(bad); err == nil {
		t.Error("missing stop 1 should be rejected")
	}
}
