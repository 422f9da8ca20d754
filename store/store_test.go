package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gasflow/config"

	"github.com/shopspring/decimal"
)

// testDB creates a temporary SQLite database for testing.
func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := Open(&config.DatabaseConfig{
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
	depot    *Depot
	customer *Customer
	product  *Product
	instance *ProductInstance
}

func seed(t *testing.T, db *DB) fixture {
	t.Helper()
	ctx := context.Background()
	f := fixture{
		depot:    &Depot{Code: "D1", Label: "Main depot", DepotType: DepotTypeStorage},
		customer: &Customer{Name: "Martin", FirstName: "Claire", Email: "claire@example.com"},
		product:  &Product{Code: "B13", Label: "Butane 13kg", Price: decimal.RequireFromString("32.50")},
	}
	if err := db.CreateDepot(ctx, f.depot); err != nil {
		t.Fatalf("create depot: %v", err)
	}
	if err := db.CreateCustomer(ctx, f.customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := db.CreateProduct(ctx, f.product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	f.instance = &ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-0001"}
	if err := db.CreateInstance(ctx, f.instance); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	return f
}

// --- Reference data ---

func TestDepotCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	d := &Depot{Code: "NORD", Label: "Nord", City: "Lille", GPSX: 3.06, DepotType: DepotTypeStorage}
	if err := db.CreateDepot(ctx, d); err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("ID should be assigned")
	}

	got, err := db.GetDepot(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "NORD" {
		t.Errorf("Code = %q, want %q", got.Code, "NORD")
	}
	if got.City != "Lille" {
		t.Errorf("City = %q, want %q", got.City, "Lille")
	}

	got.Label = "Nord 2"
	if err := db.UpdateDepot(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got2, _ := db.GetDepot(ctx, d.ID)
	if got2.Label != "Nord 2" {
		t.Errorf("Label after update = %q, want %q", got2.Label, "Nord 2")
	}

	if err := db.DeleteDepot(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetDepot(ctx, d.ID); !IsNotFound(err) {
		t.Errorf("get after delete err = %v, want not found", err)
	}
}

func TestMaintenanceDepotFallsBackToFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := &Depot{Code: "A", Label: "A", DepotType: DepotTypeStorage}
	db.CreateDepot(ctx, first)
	db.CreateDepot(ctx, &Depot{Code: "B", Label: "B", DepotType: DepotTypeStorage})

	got, err := db.MaintenanceDepot(ctx)
	if err != nil {
		t.Fatalf("maintenance depot: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("fallback depot = %d, want first depot %d", got.ID, first.ID)
	}

	shop := &Depot{Code: "W", Label: "Workshop", DepotType: DepotTypeMaintenance}
	db.CreateDepot(ctx, shop)
	got, _ = db.MaintenanceDepot(ctx)
	if got.ID != shop.ID {
		t.Errorf("maintenance depot = %d, want %d", got.ID, shop.ID)
	}
}

func TestDepotInUse(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	inUse, err := db.DepotInUse(ctx, f.depot.ID)
	if err != nil {
		t.Fatalf("in use: %v", err)
	}
	if inUse {
		t.Error("fresh depot should not be in use")
	}
	db.SetInventoryQuantity(ctx, f.depot.ID, f.product.ID, 4, "admin")
	inUse, _ = db.DepotInUse(ctx, f.depot.ID)
	if !inUse {
		t.Error("depot with inventory should be in use")
	}
}

func TestCustomerAddressesSingleDefault(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	a1 := &CustomerAddress{CustomerID: f.customer.ID, Label: "home", Street: "1 rue A", IsDefault: true}
	a2 := &CustomerAddress{CustomerID: f.customer.ID, Label: "shop", Street: "2 rue B", IsDefault: true}
	if err := db.AddCustomerAddress(ctx, a1); err != nil {
		t.Fatalf("add a1: %v", err)
	}
	if err := db.AddCustomerAddress(ctx, a2); err != nil {
		t.Fatalf("add a2: %v", err)
	}

	addrs, err := db.ListCustomerAddresses(ctx, f.customer.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(addrs) != 2 {
		t.Fatalf("len = %d, want 2", len(addrs))
	}
	if addrs[0].ID != a2.ID || !addrs[0].IsDefault {
		t.Errorf("default address = %d, want %d", addrs[0].ID, a2.ID)
	}
	if addrs[1].IsDefault {
		t.Error("older address should no longer be default")
	}

	found, _ := db.ListCustomers(ctx, "claire@")
	if len(found) != 1 {
		t.Errorf("search by email = %d, want 1", len(found))
	}
	all, _ := db.ListCustomers(ctx, "")
	if len(all) != 1 {
		t.Errorf("empty search = %d, want 1", len(all))
	}
}

func TestInstanceRegistry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	got, err := db.GetInstanceBySerial(ctx, "SN-0001")
	if err != nil {
		t.Fatalf("get by serial: %v", err)
	}
	if got.State != StateActive || got.Status != InstanceActive {
		t.Errorf("state/status = %q/%q, want active/active", got.State, got.Status)
	}
	if got.ProductCode != "B13" {
		t.Errorf("ProductCode = %q, want %q", got.ProductCode, "B13")
	}
	if got.Ownership != "company" {
		t.Errorf("Ownership = %q, want %q", got.Ownership, "company")
	}

	depotID := f.depot.ID
	if err := db.SetInstanceStatus(ctx, f.instance.ID, InstanceMaintenance, "maintenance", &depotID); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ = db.GetInstance(ctx, f.instance.ID)
	if got.Status != InstanceMaintenance {
		t.Errorf("Status = %q, want %q", got.Status, InstanceMaintenance)
	}
	if got.LocationID == nil || *got.LocationID != depotID {
		t.Errorf("LocationID = %v, want %d", got.LocationID, depotID)
	}

	db.SetInstanceState(ctx, f.instance.ID, StateDamaged)
	damaged, _ := db.ListDamagedInstances(ctx)
	if len(damaged) != 1 {
		t.Errorf("damaged = %d, want 1", len(damaged))
	}
}

func TestListInspectionDue(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	far := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	later := &ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-0002", NextInspectionDate: &far}
	db.CreateInstance(ctx, later)

	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	due, err := db.ListInspectionDue(ctx, cutoff)
	if err != nil {
		t.Fatalf("inspection due: %v", err)
	}
	if len(due) != 1 || due[0].ID != f.instance.ID {
		t.Fatalf("due = %v, want only the never-inspected instance", due)
	}
}

// --- Movements ---

func TestLatestMovementTieBreaksOnID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	src := DepotRef(f.depot.ID)
	m1 := &Movement{InstanceID: f.instance.ID, MovementType: MovementDelivery, Status: MovementCompleted,
		Source: &src, Destination: CustomerRef(f.customer.ID), MovementDate: at}
	m2 := &Movement{InstanceID: f.instance.ID, MovementType: MovementTransfer, Status: MovementCompleted,
		Destination: DepotRef(f.depot.ID), MovementDate: at}
	if err := db.CreateMovement(ctx, m1); err != nil {
		t.Fatalf("create m1: %v", err)
	}
	if err := db.CreateMovement(ctx, m2); err != nil {
		t.Fatalf("create m2: %v", err)
	}

	latest, err := db.LatestMovement(ctx, f.instance.ID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != m2.ID {
		t.Errorf("latest = %d, want %d", latest.ID, m2.ID)
	}
	if latest.Source != nil {
		t.Errorf("Source = %v, want nil", latest.Source)
	}

	first, _ := db.GetMovement(ctx, m1.ID)
	if first.Source == nil || *first.Source != src {
		t.Errorf("Source = %v, want %v", first.Source, src)
	}
	if first.Destination != CustomerRef(f.customer.ID) {
		t.Errorf("Destination = %v, want %v", first.Destination, CustomerRef(f.customer.ID))
	}
	if first.CreatedBy != "system" {
		t.Errorf("CreatedBy = %q, want %q", first.CreatedBy, "system")
	}
}

func TestUpdateMovementStampsUTC(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	m := &Movement{InstanceID: f.instance.ID, MovementType: MovementTransfer, Status: MovementPending,
		Destination: DepotRef(f.depot.ID), MovementDate: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	if err := db.CreateMovement(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}
	m.Comments = "moved"
	if err := db.UpdateMovement(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := db.GetMovement(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	now := time.Now().UTC()
	for name, ts := range map[string]time.Time{"created_at": got.CreatedAt, "updated_at": got.UpdatedAt} {
		if d := now.Sub(ts); d < -time.Minute || d > time.Minute {
			t.Errorf("%s = %v, want within a minute of %v", name, ts, now)
		}
	}
}

func TestListMovementsFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	day := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		typ := MovementTransfer
		dest := DepotRef(f.depot.ID)
		if i%2 == 0 {
			typ = MovementDelivery
			dest = CustomerRef(f.customer.ID)
		}
		m := &Movement{InstanceID: f.instance.ID, MovementType: typ, Status: MovementCompleted,
			Destination: dest, MovementDate: day.AddDate(0, 0, i)}
		if err := db.CreateMovement(ctx, m); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, total, err := db.ListMovements(ctx, MovementFilter{MovementType: MovementDelivery})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(list) != 3 {
		t.Errorf("deliveries total/len = %d/%d, want 3/3", total, len(list))
	}

	from := day.AddDate(0, 0, 1)
	to := day.AddDate(0, 0, 3)
	list, total, _ = db.ListMovements(ctx, MovementFilter{From: &from, To: &to})
	if total != 3 {
		t.Errorf("range total = %d, want 3", total)
	}
	if len(list) > 0 && !list[0].MovementDate.After(list[len(list)-1].MovementDate) {
		t.Error("movements should be newest first")
	}

	list, total, _ = db.ListMovements(ctx, MovementFilter{Serial: "0001", Limit: 2, Offset: 2})
	if total != 5 || len(list) != 2 {
		t.Errorf("paged total/len = %d/%d, want 5/2", total, len(list))
	}

	list, _, _ = db.ListMovements(ctx, MovementFilter{ProductLabel: "butane"})
	if len(list) != 5 {
		t.Errorf("label filter = %d, want 5", len(list))
	}
}

// --- Maintenance ---

func TestMaintenanceCRUDAndFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	planned := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	m := &Maintenance{InstanceID: f.instance.ID, MaintenanceType: MaintenanceInspection, Status: MaintenancePlanned,
		PlannedDate: planned, Cost: decimal.NewNullDecimal(decimal.RequireFromString("45.00"))}
	if err := db.CreateMaintenance(ctx, m); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := db.GetMaintenance(ctx, m.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.PlannedDate.Equal(planned) {
		t.Errorf("PlannedDate = %v, want %v", got.PlannedDate, planned)
	}
	if !got.Cost.Valid || !got.Cost.Decimal.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Cost = %v, want 45", got.Cost)
	}
	if got.SerialNumber != "SN-0001" {
		t.Errorf("SerialNumber = %q, want %q", got.SerialNumber, "SN-0001")
	}

	open, _ := db.CountOpenMaintenances(ctx, f.instance.ID, 0)
	if open != 1 {
		t.Errorf("open = %d, want 1", open)
	}
	open, _ = db.CountOpenMaintenances(ctx, f.instance.ID, m.ID)
	if open != 0 {
		t.Errorf("open excluding self = %d, want 0", open)
	}

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	overdue, total, err := db.ListMaintenances(ctx, MaintenanceFilter{OverdueAt: &now})
	if err != nil {
		t.Fatalf("list overdue: %v", err)
	}
	if total != 1 || len(overdue) != 1 {
		t.Errorf("overdue total/len = %d/%d, want 1/1", total, len(overdue))
	}

	got.Status = MaintenanceCompleted
	got.Result = ResultPassed
	got.ActualDate = &now
	if err := db.UpdateMaintenance(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	_, total, _ = db.ListMaintenances(ctx, MaintenanceFilter{OverdueAt: &now})
	if total != 0 {
		t.Errorf("overdue after completion = %d, want 0", total)
	}
	list, _, _ := db.ListMaintenances(ctx, MaintenanceFilter{Result: ResultPassed, Sort: "-actual_date"})
	if len(list) != 1 {
		t.Errorf("passed = %d, want 1", len(list))
	}

	if err := db.DeleteMaintenance(ctx, m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetMaintenance(ctx, m.ID); !IsNotFound(err) {
		t.Errorf("get after delete err = %v, want not found", err)
	}
}

// --- Orders and routes ---

func TestOrderWithDetails(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	o := &Order{OrderNumber: "CMD-20260301-0001", CustomerID: f.customer.ID, OrderDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Status: OrderConfirmed, TotalAmount: decimal.RequireFromString("65.00")}
	if err := db.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	d := &OrderDetail{OrderID: o.ID, ProductID: f.product.ID, Quantity: 2, UnitPrice: f.product.Price}
	if err := db.CreateOrderDetail(ctx, d); err != nil {
		t.Fatalf("create detail: %v", err)
	}

	got, err := db.GetOrderWithDetails(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerName != "Martin" {
		t.Errorf("CustomerName = %q, want %q", got.CustomerName, "Martin")
	}
	if len(got.Details) != 1 {
		t.Fatalf("details = %d, want 1", len(got.Details))
	}
	if !got.Details[0].LineTotal().Equal(got.TotalAmount) {
		t.Errorf("line total = %s, want %s", got.Details[0].LineTotal(), got.TotalAmount)
	}

	today := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	deliverable, _ := db.ListDeliverableOrders(ctx, today)
	if len(deliverable) != 1 {
		t.Errorf("deliverable = %d, want 1", len(deliverable))
	}
	past := today.AddDate(0, 0, -1)
	db.SetOrderDelivery(ctx, o.ID, OrderInDelivery, &past)
	deliverable, _ = db.ListDeliverableOrders(ctx, today)
	if len(deliverable) != 0 {
		t.Errorf("deliverable with past date = %d, want 0", len(deliverable))
	}

	report, _ := db.OrderReport(ctx)
	if len(report) != 1 || report[0].Status != OrderInDelivery || report[0].Count != 1 {
		t.Errorf("report = %+v, want one in_delivery row", report)
	}

	sales, err := db.MonthlyProductSales(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("monthly sales: %v", err)
	}
	if sales[f.product.ID]["2026-03"] != 2 {
		t.Errorf("sales 2026-03 = %d, want 2", sales[f.product.ID]["2026-03"])
	}
}

func TestRouteStops(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	drv := &Driver{Name: "Paul", Active: true}
	veh := &Vehicle{Name: "Truck 1", Plate: "AB-123-CD", Capacity: 80}
	db.CreateDriver(ctx, drv)
	db.CreateVehicle(ctx, veh)
	o := &Order{OrderNumber: "CMD-1", CustomerID: f.customer.ID, OrderDate: time.Now(), Status: OrderConfirmed}
	db.CreateOrder(ctx, o)

	r := &DeliveryRoute{RouteNumber: "R-1", RouteDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		VehicleID: veh.ID, DriverID: drv.ID, StartTime: "08:00", EndTime: "12:00", Status: RoutePlanned}
	if err := db.CreateRoute(ctx, r); err != nil {
		t.Fatalf("create route: %v", err)
	}
	s := &RouteStop{RouteID: r.ID, OrderID: o.ID, StopOrder: 1, Status: StopPending}
	if err := db.CreateRouteStop(ctx, s); err != nil {
		t.Fatalf("create stop: %v", err)
	}

	got, err := db.GetRouteWithStops(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DriverName != "Paul" || got.VehicleName != "Truck 1" {
		t.Errorf("driver/vehicle = %q/%q", got.DriverName, got.VehicleName)
	}
	if len(got.Stops) != 1 || got.Stops[0].OrderNumber != "CMD-1" {
		t.Fatalf("stops = %+v, want one stop for CMD-1", got.Stops)
	}

	dup := &RouteStop{RouteID: r.ID, OrderID: o.ID, StopOrder: 2, Status: StopPending}
	if err := db.CreateRouteStop(ctx, dup); err == nil {
		t.Error("same order twice on one route should fail")
	}

	upcoming, _ := db.ListDriverRoutes(ctx, drv.ID, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if len(upcoming) != 1 {
		t.Errorf("driver routes = %d, want 1", len(upcoming))
	}
	upcoming, _ = db.ListDriverRoutes(ctx, drv.ID, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC))
	if len(upcoming) != 0 {
		t.Errorf("driver routes after date = %d, want 0", len(upcoming))
	}
}

// --- Inventory ---

func TestInventoryAndAlerts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	if err := db.SetInventoryQuantity(ctx, f.depot.ID, f.product.ID, 10, "admin"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetInventoryQuantity(ctx, f.depot.ID, f.product.ID, 3, "admin"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	qty, _ := db.InventoryQuantity(ctx, f.depot.ID, f.product.ID)
	if qty != 3 {
		t.Errorf("quantity = %d, want 3", qty)
	}
	none, err := db.InventoryQuantity(ctx, f.depot.ID+99, f.product.ID)
	if err != nil || none != 0 {
		t.Errorf("missing row = %d, %v; want 0, nil", none, err)
	}

	alert := &StockAlert{ProductID: f.product.ID, Threshold: 5, Active: true}
	if err := db.UpsertStockAlert(ctx, alert); err != nil {
		t.Fatalf("upsert alert: %v", err)
	}
	stock, err := db.StockByProduct(ctx)
	if err != nil {
		t.Fatalf("stock: %v", err)
	}
	if len(stock) != 1 || stock[0].Total != 3 || !stock[0].BelowAlert {
		t.Fatalf("stock = %+v, want 3 below alert", stock[0])
	}

	stats, _ := db.StockStats(ctx)
	if stats.LowStock != 1 || stats.TotalStock != 3 {
		t.Errorf("stats = %+v", stats)
	}

	alert.Active = false
	db.UpdateStockAlert(ctx, alert)
	stock, _ = db.StockByProduct(ctx)
	if stock[0].BelowAlert {
		t.Error("inactive alert should not flag")
	}
}

func TestInventoryOrderLines(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	o := &InventoryOrder{Reference: "INV-1", DepotID: f.depot.ID, Status: CountPending, PlannedDate: time.Now(), CreatedBy: "admin"}
	if err := db.CreateInventoryOrder(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	l := &InventoryOrderLine{InventoryOrderID: o.ID, ProductID: f.product.ID, ExpectedQuantity: 8}
	if err := db.CreateInventoryOrderLine(ctx, l); err != nil {
		t.Fatalf("create line: %v", err)
	}
	db.SetInventoryOrderLineCount(ctx, l.ID, 6, -2)
	db.SetInventoryOrderStatus(ctx, o.ID, CountInProgress, time.Now())

	got, err := db.GetInventoryOrder(ctx, o.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != CountInProgress || got.StartedAt == nil {
		t.Errorf("status = %q started = %v", got.Status, got.StartedAt)
	}
	if len(got.Lines) != 1 || got.Lines[0].Difference == nil || *got.Lines[0].Difference != -2 {
		t.Errorf("lines = %+v, want difference -2", got.Lines)
	}
}

// --- Deposits and documents ---

func TestDepositReport(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	paid := &CustomerDeposit{CustomerID: f.customer.ID, ProductID: f.product.ID, Amount: decimal.NewFromInt(40), Paid: true, PaymentMethod: "cash", DepositDate: day}
	unpaid := &CustomerDeposit{CustomerID: f.customer.ID, ProductID: f.product.ID, Amount: decimal.NewFromInt(40), DepositDate: day}
	db.CreateDeposit(ctx, paid)
	db.CreateDeposit(ctx, unpaid)

	r, err := db.DepositReport(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if r.ActiveCount != 1 || !r.ActiveAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("active = %d/%s, want 1/40", r.ActiveCount, r.ActiveAmount)
	}
	if len(r.ByProduct) != 1 {
		t.Errorf("by product = %d, want 1", len(r.ByProduct))
	}

	db.SetDepositStatus(ctx, paid.ID, DepositReturned, "returned")
	r, _ = db.DepositReport(ctx)
	if r.ActiveCount != 0 || r.ReturnedCount != 1 {
		t.Errorf("after return active/returned = %d/%d, want 0/1", r.ActiveCount, r.ReturnedCount)
	}
}

func TestDocumentMarkPaid(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	doc := &Document{Number: "FAC-1", DocType: DocInvoice, DocDate: time.Now(), CustomerID: f.customer.ID, TotalAmount: decimal.NewFromInt(65)}
	if err := db.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := db.MarkDocumentPaid(ctx, doc.ID, "card", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	got, _ := db.GetDocument(ctx, doc.ID)
	if got.PaymentStatus != PaymentPaid || got.PaymentDate == nil {
		t.Errorf("payment = %q/%v, want paid with date", got.PaymentStatus, got.PaymentDate)
	}
	if got.CustomerEmail != "claire@example.com" {
		t.Errorf("CustomerEmail = %q", got.CustomerEmail)
	}

	list, _ := db.ListDocuments(ctx, DocumentFilter{Search: "fac"})
	if len(list) != 1 {
		t.Errorf("search = %d, want 1", len(list))
	}
	report, _ := db.DocumentReport(ctx)
	if len(report) != 1 || report[0].PaymentStatus != PaymentPaid {
		t.Errorf("report = %+v", report)
	}
}

// --- Outbox / audit ---

func TestOutboxCRUD(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.EnqueueOutbox(ctx, "gasflow.events", []byte(`{"test":true}`), "movement.recorded"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	db.EnqueueOutbox(ctx, "gasflow.events", []byte(`{"test":2}`), "order.created")

	msgs, err := db.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].MsgType != "movement.recorded" {
		t.Errorf("msg_type = %q, want %q", msgs[0].MsgType, "movement.recorded")
	}

	db.AckOutbox(ctx, msgs[0].ID)
	msgs2, _ := db.ListPendingOutbox(ctx, 10)
	if len(msgs2) != 1 {
		t.Errorf("pending after ack = %d, want 1", len(msgs2))
	}

	db.IncrementOutboxRetries(ctx, msgs2[0].ID)
	msgs3, _ := db.ListPendingOutbox(ctx, 10)
	if msgs3[0].Retries != 1 {
		t.Errorf("retries = %d, want 1", msgs3[0].Retries)
	}
}

func TestAuditLog(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	db.AppendAudit(ctx, "movement", 1, "recorded", "", "delivery", "admin")
	db.AppendAudit(ctx, "movement", 1, "updated", "pending", "completed", "admin")
	db.AppendAudit(ctx, "maintenance", 2, "completed", "in_progress", "completed", "")

	entries, err := db.ListAuditLog(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("len = %d, want 3", len(entries))
	}
	if entries[0].Action != "completed" || entries[0].Actor != "system" {
		t.Errorf("first entry = %q by %q, want completed by system", entries[0].Action, entries[0].Actor)
	}

	movementEntries, _ := db.ListEntityAudit(ctx, "movement", 1)
	if len(movementEntries) != 2 {
		t.Errorf("movement entries = %d, want 2", len(movementEntries))
	}
}

// --- Transactions ---

func TestWithTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	f := seed(t, db)

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(q *Queries) error {
		m := &Movement{InstanceID: f.instance.ID, MovementType: MovementDelivery, Status: MovementCompleted,
			Destination: CustomerRef(f.customer.ID), MovementDate: time.Now()}
		if err := q.CreateMovement(ctx, m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := db.LatestMovement(ctx, f.instance.ID); !IsNotFound(err) {
		t.Errorf("movement should have been rolled back, err = %v", err)
	}

	err = db.WithTx(ctx, func(q *Queries) error {
		return q.AppendAudit(ctx, "instance", f.instance.ID, "noted", "", "", "admin")
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	entries, _ := db.ListEntityAudit(ctx, "instance", f.instance.ID)
	if len(entries) != 1 {
		t.Errorf("committed entries = %d, want 1", len(entries))
	}
}

// --- SQL rewriting tests ---

func TestRebind(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SELECT * FROM t WHERE a=? AND b=?", "SELECT * FROM t WHERE a=$1 AND b=$2"},
		{"INSERT INTO t (a) VALUES (?)", "INSERT INTO t (a) VALUES ($1)"},
		{"SELECT 1", "SELECT 1"},
	}
	for _, tt := range tests {
		got := Rebind(tt.input)
		if got != tt.want {
			t.Errorf("Rebind(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestQRewritesNowForPostgres(t *testing.T) {
	q := &Queries{driver: "postgres"}
	got := q.Q("UPDATE t SET a=?, updated_at=datetime('now') WHERE id=?")
	want := "UPDATE t SET a=$1, updated_at=NOW() WHERE id=$2"
	if got != want {
		t.Errorf("Q = %q, want %q", got, want)
	}
}

func TestParseTimeLayouts(t *testing.T) {
	for _, in := range []string{"2026-03-01 10:00:00", "2026-03-01T10:00:00Z"} {
		got := parseTime(in)
		if got.Year() != 2026 || got.Month() != 3 || got.Day() != 1 {
			t.Errorf("parseTime(%q) = %v", in, got)
		}
	}
	if got := parseTime("2026-03-01"); got.Day() != 1 {
		t.Errorf("parseTime(date) = %v", got)
	}
	if parseTimePtr(nil) != nil {
		t.Error("parseTimePtr(nil) should be nil")
	}
}
