package stock

import (
	"context"
	"math"
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
	adjusted  [][2]int
	completed []string
}

func (m *mockEmitter) EmitStockAdjusted(_, _ int64, oldQty, newQty int, _, _ string) {
	m.adjusted = append(m.adjusted, [2]int{oldQty, newQty})
}
func (m *mockEmitter) EmitCountCompleted(_ int64, reference string, _ int64, _ string) {
	m.completed = append(m.completed, reference)
}

type mockCache struct {
	refreshed []int64
}

func (c *mockCache) RefreshDepot(_ context.Context, depotID int64) {
	c.refreshed = append(c.refreshed, depotID)
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
	depot   *store.Depot
	product *store.Product
	other   *store.Product
}

func setup(t *testing.T) (*Service, *store.DB, *mockEmitter, *mockCache, fixture) {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := fixture{
		depot:   &store.Depot{Code: "D1", Label: "Main depot", DepotType: store.DepotTypeStorage},
		product: &store.Product{Code: "B13", Label: "Butane 13kg", ProductType: store.ProductTypeCylinder, Price: decimal.RequireFromString("32.50")},
		other:   &store.Product{Code: "P35", Label: "Propane 35kg", ProductType: store.ProductTypeCylinder, Price: decimal.RequireFromString("80")},
	}
	if err := db.CreateDepot(ctx, f.depot); err != nil {
		t.Fatalf("create depot: %v", err)
	}
	for _, p := range []*store.Product{f.product, f.other} {
		if err := db.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
	em := &mockEmitter{}
	cache := &mockCache{}
	svc := NewService(db, em, cache)
	svc.now = func() time.Time { return testNow }
	return svc, db, em, cache, f
}

func adjust(t *testing.T, svc *Service, depotID, productID int64, qty int) {
	t.Helper()
	if _, err := svc.Adjust(context.Background(), AdjustInput{DepotID: depotID, ProductID: productID, Quantity: qty}, "tester"); err != nil {
		t.Fatalf("adjust: %v", err)
	}
}

func TestAdjustRecordsHistory(t *testing.T) {
	svc, db, em, cache, f := setup(t)
	ctx := context.Background()

	adjust(t, svc, f.depot.ID, f.product.ID, 12)
	adj, err := svc.Adjust(ctx, AdjustInput{DepotID: f.depot.ID, ProductID: f.product.ID, Quantity: 7, Reason: "breakage"}, "tester")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adj.OldQuantity != 12 || adj.NewQuantity != 7 {
		t.Errorf("adjustment = %d -> %d, want 12 -> 7", adj.OldQuantity, adj.NewQuantity)
	}
	qty, err := db.InventoryQuantity(ctx, f.depot.ID, f.product.ID)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	if qty != 7 {
		t.Errorf("quantity = %d, want 7", qty)
	}
	history, err := svc.Adjustments(ctx, f.depot.ID, f.product.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Reason != "breakage" {
		t.Errorf("history = %d rows, want 2 newest first", len(history))
	}
	if len(em.adjusted) != 2 || em.adjusted[0] != [2]int{0, 12} {
		t.Errorf("adjusted events = %v, want [[0 12] [12 7]]", em.adjusted)
	}
	if len(cache.refreshed) != 2 || cache.refreshed[0] != f.depot.ID {
		t.Errorf("cache refreshes = %v, want two for depot %d", cache.refreshed, f.depot.ID)
	}
}

func TestAdjustRejectsUnknownDepot(t *testing.T) {
	svc, _, em, cache, f := setup(t)

	_, err := svc.Adjust(context.Background(), AdjustInput{DepotID: 999, ProductID: f.product.ID, Quantity: 1}, "tester")
	if ve, ok := lifecycle.AsValidation(err); !ok || ve.Fields["depot_id"] == "" {
		t.Fatalf("err = %v, want depot_id validation", err)
	}
	_, err = svc.Adjust(context.Background(), AdjustInput{DepotID: f.depot.ID, ProductID: f.product.ID, Quantity: -1}, "tester")
	if _, ok := lifecycle.AsValidation(err); !ok {
		t.Errorf("negative quantity: err = %v, want validation", err)
	}
	if len(em.adjusted) != 0 || len(cache.refreshed) != 0 {
		t.Errorf("side effects on rejected adjust: %v %v", em.adjusted, cache.refreshed)
	}
}

func TestOverviewFlagsLowStock(t *testing.T) {
	svc, _, _, _, f := setup(t)
	ctx := context.Background()

	adjust(t, svc, f.depot.ID, f.product.ID, 3)
	adjust(t, svc, f.depot.ID, f.other.ID, 20)
	if _, err := svc.SetAlert(ctx, AlertInput{ProductID: f.product.ID, Threshold: 5, Active: true}); err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if _, err := svc.SetAlert(ctx, AlertInput{ProductID: f.other.ID, Threshold: 50, Active: false}); err != nil {
		t.Fatalf("set alert: %v", err)
	}

	low, err := svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].ProductID != f.product.ID {
		t.Fatalf("low stock = %d rows, want only %s", len(low), f.product.Code)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalStock != 23 || stats.LowStock != 1 {
		t.Errorf("stats = %+v, want total 23 low 1", stats)
	}
}

func TestSetAlertUpserts(t *testing.T) {
	svc, _, _, _, f := setup(t)
	ctx := context.Background()

	first, err := svc.SetAlert(ctx, AlertInput{ProductID: f.product.ID, Threshold: 5, Active: true})
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	second, err := svc.SetAlert(ctx, AlertInput{ProductID: f.product.ID, Threshold: 9, Active: true})
	if err != nil {
		t.Fatalf("set alert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("alert id = %d, want %d", second.ID, first.ID)
	}
	if second.Threshold != 9 {
		t.Errorf("threshold = %d, want 9", second.Threshold)
	}
	if _, err := svc.SetAlert(ctx, AlertInput{ProductID: f.product.ID, Threshold: 0}); err == nil {
		t.Error("expected validation error for threshold 0")
	}
	if _, err := svc.UpdateAlert(ctx, first.ID, 0, true); err == nil {
		t.Error("expected validation error on update with threshold 0")
	}
	if err := svc.DeleteAlert(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteAlert(ctx, first.ID); !store.IsNotFound(err) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}

func TestCountOrderLifecycle(t *testing.T) {
	svc, db, em, cache, f := setup(t)
	ctx := context.Background()

	adjust(t, svc, f.depot.ID, f.product.ID, 10)
	five := 5
	o, err := svc.CreateCountOrder(ctx, CountOrderInput{
		DepotID: f.depot.ID,
		Lines: []CountLineInput{
			{ProductID: f.product.ID},
			{ProductID: f.other.ID, ExpectedQuantity: &five},
		},
	}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != store.CountPending || len(o.Lines) != 2 {
		t.Fatalf("order = %s with %d lines, want pending with 2", o.Status, len(o.Lines))
	}
	if o.Lines[0].ExpectedQuantity != 10 {
		t.Errorf("expected = %d, want current stock 10", o.Lines[0].ExpectedQuantity)
	}

	if _, err := svc.CompleteCountOrder(ctx, o.ID, nil, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("complete pending: err = %v, want conflict", err)
	}
	if _, err := svc.StartCountOrder(ctx, o.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.CompleteCountOrder(ctx, o.ID, []CountResult{{LineID: o.Lines[0].ID, Counted: 8}}, "tester"); err == nil {
		t.Fatal("expected validation error for uncounted line")
	}

	done, err := svc.CompleteCountOrder(ctx, o.ID, []CountResult{
		{LineID: o.Lines[0].ID, Counted: 8},
		{LineID: o.Lines[1].ID, Counted: 6},
	}, "tester")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != store.CountCompleted || done.CompletedAt == nil {
		t.Errorf("status = %s, want completed with a completion time", done.Status)
	}
	if d := done.Lines[0].Difference; d == nil || *d != -2 {
		t.Errorf("difference = %v, want -2", d)
	}
	if d := done.Lines[1].Difference; d == nil || *d != 1 {
		t.Errorf("difference = %v, want 1", d)
	}
	qty, _ := db.InventoryQuantity(ctx, f.depot.ID, f.other.ID)
	if qty != 6 {
		t.Errorf("inventory = %d, want counted 6", qty)
	}
	if len(em.completed) != 1 || em.completed[0] != o.Reference {
		t.Errorf("completed events = %v, want [%s]", em.completed, o.Reference)
	}
	if last := cache.refreshed[len(cache.refreshed)-1]; last != f.depot.ID {
		t.Errorf("last refresh = %d, want %d", last, f.depot.ID)
	}
	if _, err := svc.CancelCountOrder(ctx, o.ID); !lifecycle.IsConflict(err) {
		t.Errorf("cancel completed: err = %v, want conflict", err)
	}
}

func TestCancelCountOrderKeepsInventory(t *testing.T) {
	svc, db, _, _, f := setup(t)
	ctx := context.Background()

	adjust(t, svc, f.depot.ID, f.product.ID, 4)
	o, err := svc.CreateCountOrder(ctx, CountOrderInput{DepotID: f.depot.ID, Lines: []CountLineInput{{ProductID: f.product.ID}}}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.CancelCountOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != store.CountCancelled {
		t.Errorf("status = %q, want %q", got.Status, store.CountCancelled)
	}
	if _, err := svc.StartCountOrder(ctx, o.ID); !lifecycle.IsConflict(err) {
		t.Errorf("start cancelled: err = %v, want conflict", err)
	}
	qty, _ := db.InventoryQuantity(ctx, f.depot.ID, f.product.ID)
	if qty != 4 {
		t.Errorf("inventory = %d, want 4", qty)
	}
}

func TestCreateCountOrderRejectsDuplicateProduct(t *testing.T) {
	svc, _, _, _, f := setup(t)

	_, err := svc.CreateCountOrder(context.Background(), CountOrderInput{
		DepotID: f.depot.ID,
		Lines:   []CountLineInput{{ProductID: f.product.ID}, {ProductID: f.product.ID}},
	}, "tester")
	if ve, ok := lifecycle.AsValidation(err); !ok || ve.Fields["lines[1].product_id"] == "" {
		t.Errorf("err = %v, want lines[1].product_id validation", err)
	}
}

func TestForecast(t *testing.T) {
	svc, db, _, _, f := setup(t)
	ctx := context.Background()

	customer := &store.Customer{Name: "Martin"}
	if err := db.CreateCustomer(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	sell := func(day time.Time, qty int, status string) {
		t.Helper()
		o := &store.Order{
			OrderNumber: store.NewNumber("CMD", day),
			CustomerID:  customer.ID,
			OrderDate:   day,
			Status:      status,
		}
		if err := db.CreateOrder(ctx, o); err != nil {
			t.Fatalf("create order: %v", err)
		}
		d := &store.OrderDetail{OrderID: o.ID, ProductID: f.product.ID, Quantity: qty, UnitPrice: f.product.Price}
		if err := db.CreateOrderDetail(ctx, d); err != nil {
			t.Fatalf("create detail: %v", err)
		}
	}
	sell(time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), 50, store.OrderDelivered)
	sell(time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC), 10, store.OrderDelivered)
	sell(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 100, store.OrderCancelled)
	sell(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 4, store.OrderConfirmed)

	adjust(t, svc, f.depot.ID, f.product.ID, 15)
	if _, err := svc.SetAlert(ctx, AlertInput{ProductID: f.product.ID, Threshold: 5, Active: true}); err != nil {
		t.Fatalf("set alert: %v", err)
	}

	got, err := svc.Forecast(ctx)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("forecasts = %d, want 1", len(got))
	}
	fc := got[0]
	if len(fc.MonthlySales) != 2 {
		t.Errorf("months = %v, want 2024-12 and 2025-02", fc.MonthlySales)
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"avg", fc.AvgMonthlySales, 7},
		{"trend", fc.Trend, -3},
		{"forecast", fc.Forecast3M, 12},
		{"estimated", fc.EstimatedStock3M, 3},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if !fc.WillBeBelowThreshold {
		t.Error("expected will_be_below_threshold")
	}
}

func TestProjectClampsAtZero(t *testing.T) {
	f := &Forecast{MonthlySales: map[string]int{"2025-01": 30}, CurrentStock: 10}
	project(f)
	if f.Trend != 0 {
		t.Errorf("trend = %v, want 0 for a single month", f.Trend)
	}
	if f.EstimatedStock3M != 0 {
		t.Errorf("estimated = %v, want 0", f.EstimatedStock3M)
	}
	if f.WillBeBelowThreshold {
		t.Error("no threshold means never below it")
	}
}
