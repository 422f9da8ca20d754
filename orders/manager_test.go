package orders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/config"
	"gasflow/lifecycle"
	"gasflow/store"
)

type mockEmitter struct {
	created []int64
	changed []string
}

func (m *mockEmitter) EmitOrderCreated(orderID int64, _ string, _ int64, _ string, _ string) {
	m.created = append(m.created, orderID)
}
func (m *mockEmitter) EmitOrderStatusChanged(_ int64, _, oldStatus, newStatus, _ string) {
	m.changed = append(m.changed, oldStatus+">"+newStatus)
}

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
	customer *store.Customer
	product  *store.Product
}

func setup(t *testing.T) (*Manager, *store.DB, *mockEmitter, fixture) {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := fixture{
		customer: &store.Customer{Name: "Martin"},
		product:  &store.Product{Code: "P13", Label: "Propane 13kg", Price: decimal.RequireFromString("35.20")},
	}
	if err := db.CreateCustomer(ctx, f.customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := db.CreateProduct(ctx, f.product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	em := &mockEmitter{}
	m := NewManager(db, em)
	m.now = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }
	return m, db, em, f
}

func TestCreateOrderComputesTotal(t *testing.T) {
	m, _, em, f := setup(t)
	ctx := context.Background()

	custom := decimal.RequireFromString("30")
	o, err := m.CreateOrder(ctx, OrderInput{
		CustomerID: f.customer.ID,
		Details: []DetailInput{
			{ProductID: f.product.ID, Quantity: 2},
			{ProductID: f.product.ID, Quantity: 1, UnitPrice: &custom},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("100.40")) {
		t.Errorf("total = %s, want 100.40", o.TotalAmount)
	}
	if o.Status != store.OrderPending {
		t.Errorf("status = %q, want %q", o.Status, store.OrderPending)
	}
	if len(o.Details) != 2 {
		t.Errorf("details = %d, want 2", len(o.Details))
	}
	if !regexp.MustCompile(`^CMD-20250310-[0-9A-F]{8}$`).MatchString(o.OrderNumber) {
		t.Errorf("order number = %q, want CMD-20250310-XXXXXXXX", o.OrderNumber)
	}
	if len(em.created) != 1 {
		t.Errorf("created events = %d, want 1", len(em.created))
	}
}

func TestCreateOrderRollsBackOnBadLine(t *testing.T) {
	m, db, _, f := setup(t)
	ctx := context.Background()

	_, err := m.CreateOrder(ctx, OrderInput{
		CustomerID: f.customer.ID,
		Details: []DetailInput{
			{ProductID: f.product.ID, Quantity: 2},
			{ProductID: 999, Quantity: 1},
		},
	}, "tester")
	ve, ok := lifecycle.AsValidation(err)
	if !ok || ve.Fields["details[1].product_id"] == "" {
		t.Fatalf("err = %v, want details[1].product_id validation", err)
	}
	orders, _ := db.ListOrders(ctx, store.OrderFilter{})
	if len(orders) != 0 {
		t.Errorf("orders = %d, want 0", len(orders))
	}
}

func TestCreateOrderRejectsForeignAddress(t *testing.T) {
	m, db, _, f := setup(t)
	ctx := context.Background()

	other := &store.Customer{Name: "Durand"}
	if err := db.CreateCustomer(ctx, other); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	addr := &store.CustomerAddress{CustomerID: other.ID, Label: "Home", Street: "1 rue Haute", City: "Lyon"}
	if err := db.AddCustomerAddress(ctx, addr); err != nil {
		t.Fatalf("add address: %v", err)
	}
	_, err := m.CreateOrder(ctx, OrderInput{
		CustomerID: f.customer.ID,
		AddressID:  &addr.ID,
		Details:    []DetailInput{{ProductID: f.product.ID, Quantity: 1}},
	}, "tester")
	if ve, ok := lifecycle.AsValidation(err); !ok || ve.Fields["address_id"] == "" {
		t.Errorf("err = %v, want address_id validation", err)
	}
}

func TestTransitionOrder(t *testing.T) {
	m, _, em, f := setup(t)
	ctx := context.Background()

	o, err := m.CreateOrder(ctx, OrderInput{
		CustomerID: f.customer.ID,
		Details:    []DetailInput{{ProductID: f.product.ID, Quantity: 1}},
	}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.TransitionOrder(ctx, o.ID, store.OrderDelivered, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("pending -> delivered: err = %v, want conflict", err)
	}
	if _, err := m.TransitionOrder(ctx, o.ID, store.OrderConfirmed, "tester"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, err := m.CancelOrder(ctx, o.ID, "tester")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != store.OrderCancelled {
		t.Errorf("status = %q, want %q", got.Status, store.OrderCancelled)
	}
	if _, err := m.TransitionOrder(ctx, o.ID, store.OrderConfirmed, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("reopen cancelled: err = %v, want conflict", err)
	}
	want := []string{"pending>confirmed", "confirmed>cancelled"}
	if len(em.changed) != len(want) {
		t.Fatalf("changes = %v, want %v", em.changed, want)
	}
	for i := range want {
		if em.changed[i] != want[i] {
			t.Errorf("change[%d] = %q, want %q", i, em.changed[i], want[i])
		}
	}
}

func TestReportExcludesCancelledAmount(t *testing.T) {
	m, _, _, f := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		o, err := m.CreateOrder(ctx, OrderInput{
			CustomerID: f.customer.ID,
			Details:    []DetailInput{{ProductID: f.product.ID, Quantity: 1}},
		}, "tester")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if i == 1 {
			if _, err := m.CancelOrder(ctx, o.ID, "tester"); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}
	}
	r, err := m.Report(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.OrderCount != 2 {
		t.Errorf("count = %d, want 2", r.OrderCount)
	}
	if !r.TotalAmount.Equal(decimal.RequireFromString("35.20")) {
		t.Errorf("amount = %s, want 35.20", r.TotalAmount)
	}
}

func TestIsValidTransition(t *testing.T) {
	if !IsValidTransition(store.OrderInDelivery, store.OrderConfirmed) {
		t.Error("in_delivery -> confirmed should be allowed")
	}
	if IsValidTransition(store.OrderDelivered, store.OrderPending) {
		t.Error("delivered is terminal")
	}
}
