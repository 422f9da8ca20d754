package lifecycle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/config"
	"gasflow/store"
)

// --- Mock emitter ---

type mockEmitter struct {
	recorded      []emitMovement
	updated       []int64
	deleted       []int64
	created       []emitMaintenance
	transitioned  []emitTransition
	mntDeleted    []int64
	statusChanged []emitStatus
}

type emitMovement struct {
	movementID   int64
	movementType string
	status       string
	destination  string
}
type emitMaintenance struct {
	maintenanceID   int64
	maintenanceType string
	status          string
}
type emitTransition struct {
	maintenanceID int64
	from, to      string
}
type emitStatus struct {
	instanceID int64
	old, new   string
}

func (m *mockEmitter) EmitMovementRecorded(movementID, _ int64, movementType, status, destination, _ string) {
	m.recorded = append(m.recorded, emitMovement{movementID, movementType, status, destination})
}
func (m *mockEmitter) EmitMovementUpdated(movementID, _ int64, _, _, _ string) {
	m.updated = append(m.updated, movementID)
}
func (m *mockEmitter) EmitMovementDeleted(movementID, _ int64, _ string) {
	m.deleted = append(m.deleted, movementID)
}
func (m *mockEmitter) EmitMaintenanceCreated(maintenanceID, _ int64, maintenanceType, status, _ string) {
	m.created = append(m.created, emitMaintenance{maintenanceID, maintenanceType, status})
}
func (m *mockEmitter) EmitMaintenanceTransitioned(maintenanceID, _ int64, from, to, _, _ string) {
	m.transitioned = append(m.transitioned, emitTransition{maintenanceID, from, to})
}
func (m *mockEmitter) EmitMaintenanceDeleted(maintenanceID, _ int64, _ string) {
	m.mntDeleted = append(m.mntDeleted, maintenanceID)
}
func (m *mockEmitter) EmitInstanceStatusChanged(instanceID int64, _, oldStatus, newStatus, _ string) {
	m.statusChanged = append(m.statusChanged, emitStatus{instanceID, oldStatus, newStatus})
}

// --- Test helpers ---

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
	depot    *store.Depot
	workshop *store.Depot
	customer *store.Customer
	product  *store.Product
	instance *store.ProductInstance
}

func newTestService(t *testing.T) (*Service, *store.DB, *mockEmitter, fixture) {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := fixture{
		depot:    &store.Depot{Code: "D1", Label: "Main depot", DepotType: store.DepotTypeStorage},
		workshop: &store.Depot{Code: "MNT", Label: "Workshop", DepotType: store.DepotTypeMaintenance},
		customer: &store.Customer{Name: "Martin", FirstName: "Claire", Email: "claire@example.com"},
		product: &store.Product{Code: "B13", Label: "Butane 13kg", ProductType: store.ProductTypeCylinder,
			Price: decimal.RequireFromString("32.50")},
	}
	for _, d := range []*store.Depot{f.depot, f.workshop} {
		if err := db.CreateDepot(ctx, d); err != nil {
			t.Fatalf("create depot: %v", err)
		}
	}
	if err := db.CreateCustomer(ctx, f.customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := db.CreateProduct(ctx, f.product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	f.instance = &store.ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-0001"}
	if err := db.CreateInstance(ctx, f.instance); err != nil {
		t.Fatalf("create instance: %v", err)
	}

	em := &mockEmitter{}
	svc := NewService(db, em, nil, Options{})
	svc.now = func() time.Time { return testNow }
	return svc, db, em, f
}

func record(t *testing.T, svc *Service, in MovementInput) *store.Movement {
	t.Helper()
	m, err := svc.RecordMovement(context.Background(), in, "tester")
	if err != nil {
		t.Fatalf("record %s movement: %v", in.MovementType, err)
	}
	return m
}

// --- Location derivation ---

func TestDeriveLocation(t *testing.T) {
	if got := DeriveLocation(nil); got.Category != CategoryUnknown || got.Known() {
		t.Errorf("no history = %+v, want unknown", got)
	}

	m := &store.Movement{ID: 7, MovementType: store.MovementDelivery, Status: store.MovementCompleted, Destination: store.CustomerRef(3)}
	got := DeriveLocation(m)
	if got.Category != CategoryCustomer || got.LocationID == nil || *got.LocationID != 3 {
		t.Errorf("completed delivery = %+v, want customer 3", got)
	}

	m.MovementType = store.MovementMaintenance
	m.Destination = store.DepotRef(2)
	if got := DeriveLocation(m); got.Category != CategoryMaintenance || *got.LocationID != 2 {
		t.Errorf("completed maintenance = %+v, want maintenance 2", got)
	}

	m.MovementType = store.MovementTransfer
	if got := DeriveLocation(m); got.Category != CategoryDepot {
		t.Errorf("completed transfer category = %q, want %q", got.Category, CategoryDepot)
	}

	m.Status = store.MovementInProgress
	if got := DeriveLocation(m); got.Category != CategoryInTransit || got.Known() {
		t.Errorf("in-progress = %+v, want in transit without location", got)
	}

	m.Status = store.MovementPending
	if got := DeriveLocation(m); got.Category != CategoryUnknown {
		t.Errorf("pending category = %q, want %q", got.Category, CategoryUnknown)
	}
}

func TestDeliveryThenReturnEndToEnd(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	inst, err := svc.RegisterInstance(ctx, InstanceInput{
		ProductID:      f.product.ID,
		SerialNumber:   "SN-E2E",
		InitialDepotID: &f.depot.ID,
	}, "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	loc, err := svc.Location(ctx, inst.ID)
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.Category != CategoryDepot || *loc.LocationID != f.depot.ID {
		t.Fatalf("after registration = %+v, want depot %d", loc, f.depot.ID)
	}

	src := store.DepotRef(f.depot.ID)
	record(t, svc, MovementInput{
		InstanceID:   inst.ID,
		MovementType: store.MovementDelivery,
		Status:       store.MovementCompleted,
		Source:       &src,
		Destination:  store.CustomerRef(f.customer.ID),
		MovementDate: testNow.Add(time.Hour),
	})
	loc, _ = svc.Location(ctx, inst.ID)
	if loc.Category != CategoryCustomer || *loc.LocationID != f.customer.ID {
		t.Fatalf("after delivery = %+v, want customer %d", loc, f.customer.ID)
	}
	if loc.Name != "Claire Martin" {
		t.Errorf("location name = %q, want %q", loc.Name, "Claire Martin")
	}

	from := store.CustomerRef(f.customer.ID)
	record(t, svc, MovementInput{
		InstanceID:   inst.ID,
		MovementType: store.MovementReturn,
		Status:       store.MovementCompleted,
		Source:       &from,
		Destination:  store.DepotRef(f.depot.ID),
		MovementDate: testNow.Add(2 * time.Hour),
	})
	loc, _ = svc.Location(ctx, inst.ID)
	if loc.Category != CategoryDepot || *loc.LocationID != f.depot.ID {
		t.Fatalf("after return = %+v, want depot %d", loc, f.depot.ID)
	}

	cached, _ := db.GetInstance(ctx, inst.ID)
	if cached.LocationCategory != CategoryDepot || cached.LocationID == nil || *cached.LocationID != f.depot.ID {
		t.Errorf("cached location = %s/%v, want depot/%d", cached.LocationCategory, cached.LocationID, f.depot.ID)
	}
}

func TestInProgressMovementIsInTransit(t *testing.T) {
	svc, _, _, f := newTestService(t)
	ctx := context.Background()

	record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-2 * time.Hour),
	})
	record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementDelivery, Status: store.MovementInProgress,
		Destination: store.CustomerRef(f.customer.ID), MovementDate: testNow.Add(-time.Hour),
	})

	loc, err := svc.Location(ctx, f.instance.ID)
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	if loc.Category != CategoryInTransit {
		t.Errorf("category = %q, want %q", loc.Category, CategoryInTransit)
	}
	if loc.Known() {
		t.Errorf("in-transit location should not keep the prior depot, got %d", *loc.LocationID)
	}
}

func TestLatestMovementTieBreak(t *testing.T) {
	svc, _, _, f := newTestService(t)
	ctx := context.Background()

	at := testNow.Add(-time.Hour)
	record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementDelivery, Status: store.MovementCompleted,
		Destination: store.CustomerRef(f.customer.ID), MovementDate: at,
	})
	second := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementReturn, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.depot.ID), MovementDate: at,
	})

	loc, _ := svc.Location(ctx, f.instance.ID)
	if loc.MovementID != second.ID {
		t.Errorf("latest movement = %d, want %d (higher id wins a date tie)", loc.MovementID, second.ID)
	}
	if loc.Category != CategoryDepot {
		t.Errorf("category = %q, want %q", loc.Category, CategoryDepot)
	}
}

func TestLocationIsReadOnly(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	if err := db.SetInstanceLocation(ctx, f.instance.ID, "stale", &f.customer.ID); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := svc.Location(ctx, f.instance.ID); err != nil {
			t.Fatalf("location: %v", err)
		}
	}
	got, _ := db.GetInstance(ctx, f.instance.ID)
	if got.LocationCategory != "stale" {
		t.Errorf("Location wrote the cache: category = %q", got.LocationCategory)
	}
}

func TestRecordMovementValidation(t *testing.T) {
	svc, db, em, f := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		in    MovementInput
		field string
	}{
		{"delivery to depot", MovementInput{InstanceID: f.instance.ID, MovementType: store.MovementDelivery,
			Status: store.MovementCompleted, Destination: store.DepotRef(f.depot.ID)}, "destination"},
		{"missing destination", MovementInput{InstanceID: f.instance.ID, MovementType: store.MovementTransfer,
			Status: store.MovementCompleted}, "destination"},
		{"unknown type", MovementInput{InstanceID: f.instance.ID, MovementType: "teleport",
			Status: store.MovementCompleted, Destination: store.DepotRef(f.depot.ID)}, "movement_type"},
		{"unknown depot", MovementInput{InstanceID: f.instance.ID, MovementType: store.MovementTransfer,
			Status: store.MovementCompleted, Destination: store.DepotRef(999)}, "destination"},
		{"unknown instance", MovementInput{InstanceID: 999, MovementType: store.MovementTransfer,
			Status: store.MovementCompleted, Destination: store.DepotRef(f.depot.ID)}, "instance_id"},
	}
	for _, tc := range cases {
		_, err := svc.RecordMovement(ctx, tc.in, "tester")
		ve, ok := AsValidation(err)
		if !ok {
			t.Errorf("%s: err = %v, want validation error", tc.name, err)
			continue
		}
		if _, ok := ve.Fields[tc.field]; !ok {
			t.Errorf("%s: fields = %v, want %q", tc.name, ve.Fields, tc.field)
		}
	}

	_, total, _ := db.ListMovements(ctx, store.MovementFilter{})
	if total != 0 {
		t.Errorf("movements written = %d, want 0", total)
	}
	if len(em.recorded) != 0 {
		t.Errorf("events emitted = %d, want 0", len(em.recorded))
	}
}

func TestRecordMovementFillsDestinationKind(t *testing.T) {
	svc, _, em, f := newTestService(t)

	m := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementDelivery, Status: store.MovementCompleted,
		Destination: store.LocationRef{ID: f.customer.ID},
	})
	if m.Destination.Kind != store.LocationCustomer {
		t.Errorf("destination kind = %q, want %q", m.Destination.Kind, store.LocationCustomer)
	}
	if !m.MovementDate.Equal(testNow) {
		t.Errorf("movement date = %v, want %v", m.MovementDate, testNow)
	}
	if m.CreatedBy != "tester" {
		t.Errorf("created_by = %q, want %q", m.CreatedBy, "tester")
	}
	if len(em.recorded) != 1 || em.recorded[0].movementID != m.ID {
		t.Errorf("recorded events = %+v, want one for %d", em.recorded, m.ID)
	}
}

func TestDeleteMovementGuardsCompleted(t *testing.T) {
	svc, db, em, f := newTestService(t)
	ctx := context.Background()

	done := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-2 * time.Hour),
	})
	pending := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementDelivery, Status: store.MovementPending,
		Destination: store.CustomerRef(f.customer.ID), MovementDate: testNow.Add(-time.Hour),
	})

	err := svc.DeleteMovement(ctx, done.ID, "tester")
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("delete completed: err = %v, want ErrStateConflict", err)
	}
	if _, err := db.GetMovement(ctx, done.ID); err != nil {
		t.Errorf("completed movement should survive: %v", err)
	}

	loc, _ := svc.Location(ctx, f.instance.ID)
	if loc.Category != CategoryUnknown {
		t.Fatalf("with pending latest, category = %q, want %q", loc.Category, CategoryUnknown)
	}
	if err := svc.DeleteMovement(ctx, pending.ID, "tester"); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	cached, _ := db.GetInstance(ctx, f.instance.ID)
	if cached.LocationCategory != CategoryDepot {
		t.Errorf("cache after delete = %q, want %q", cached.LocationCategory, CategoryDepot)
	}
	if len(em.deleted) != 1 || em.deleted[0] != pending.ID {
		t.Errorf("deleted events = %v, want [%d]", em.deleted, pending.ID)
	}
}

func TestUpdateMovementKeepsCompletedStatus(t *testing.T) {
	svc, db, em, f := newTestService(t)
	ctx := context.Background()

	done := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-time.Hour),
	})
	in := MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementPending,
		Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-time.Hour),
	}
	if _, err := svc.UpdateMovement(ctx, done.ID, in, "tester"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("reopen completed: err = %v, want ErrStateConflict", err)
	}
	got, _ := db.GetMovement(ctx, done.ID)
	if got.Status != store.MovementCompleted {
		t.Errorf("status = %q, want %q", got.Status, store.MovementCompleted)
	}
	if err := svc.DeleteMovement(ctx, done.ID, "tester"); !errors.Is(err, ErrStateConflict) {
		t.Errorf("delete after rejected reopen: err = %v, want ErrStateConflict", err)
	}
	if len(em.deleted) != 0 {
		t.Errorf("deleted events = %v, want none", em.deleted)
	}

	in.Status = store.MovementCompleted
	in.Comments = "checked at gate"
	updated, err := svc.UpdateMovement(ctx, done.ID, in, "tester")
	if err != nil {
		t.Fatalf("edit completed: %v", err)
	}
	if updated.Comments != "checked at gate" {
		t.Errorf("comments = %q, want %q", updated.Comments, "checked at gate")
	}
}

func TestUpdateMovementRefreshesBothInstances(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	other := &store.ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-0002"}
	if err := db.CreateInstance(ctx, other); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	m := record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-time.Hour),
	})

	_, err := svc.UpdateMovement(ctx, m.ID, MovementInput{
		InstanceID: other.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
		Destination: store.DepotRef(f.workshop.ID), MovementDate: testNow.Add(-time.Hour),
	}, "tester")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	first, _ := db.GetInstance(ctx, f.instance.ID)
	if first.LocationCategory != CategoryUnknown || first.LocationID != nil {
		t.Errorf("old instance cache = %s/%v, want unknown/nil", first.LocationCategory, first.LocationID)
	}
	second, _ := db.GetInstance(ctx, other.ID)
	if second.LocationID == nil || *second.LocationID != f.workshop.ID {
		t.Errorf("new instance location = %v, want %d", second.LocationID, f.workshop.ID)
	}
}

func TestListMovementsPaginates(t *testing.T) {
	svc, _, _, f := newTestService(t)
	ctx := context.Background()

	for i := 0; i < PageSize+3; i++ {
		record(t, svc, MovementInput{
			InstanceID: f.instance.ID, MovementType: store.MovementTransfer, Status: store.MovementCompleted,
			Destination: store.DepotRef(f.depot.ID), MovementDate: testNow.Add(-time.Duration(i) * time.Minute),
		})
	}
	p, err := svc.ListMovements(ctx, store.MovementFilter{}, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Total != PageSize+3 || p.Pages != 2 || len(p.Items) != 3 {
		t.Errorf("page 2 = total %d pages %d items %d, want %d/2/3", p.Total, p.Pages, len(p.Items), PageSize+3)
	}
}

func TestHistoryResolvesNames(t *testing.T) {
	svc, _, _, f := newTestService(t)
	ctx := context.Background()

	src := store.DepotRef(f.depot.ID)
	record(t, svc, MovementInput{
		InstanceID: f.instance.ID, MovementType: store.MovementDelivery, Status: store.MovementCompleted,
		Source: &src, Destination: store.CustomerRef(f.customer.ID), MovementDate: testNow.Add(-time.Hour),
	})

	h, err := svc.History(ctx, f.instance.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h.Movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(h.Movements))
	}
	v := h.Movements[0]
	if v.SourceName != "Main depot" || v.DestinationName != "Claire Martin" {
		t.Errorf("names = %q -> %q, want %q -> %q", v.SourceName, v.DestinationName, "Main depot", "Claire Martin")
	}
	if h.Location.Category != CategoryCustomer {
		t.Errorf("location = %q, want %q", h.Location.Category, CategoryCustomer)
	}
}

func TestTrackingFiltersByCategory(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	other := &store.ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-0002"}
	if err := db.CreateInstance(ctx, other); err != nil {
		t.Fatalf("create instance: %v", err)
	}
	record(t, svc, MovementInput{
		InstanceID: other.ID, MovementType: store.MovementDelivery, Status: store.MovementCompleted,
		Destination: store.CustomerRef(f.customer.ID), MovementDate: testNow.Add(-time.Hour),
	})

	all, err := svc.Tracking(ctx, store.InstanceFilter{}, "")
	if err != nil {
		t.Fatalf("tracking: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("tracked = %d, want 2", len(all))
	}
	atCustomers, _ := svc.Tracking(ctx, store.InstanceFilter{}, CategoryCustomer)
	if len(atCustomers) != 1 || atCustomers[0].Instance.ID != other.ID {
		t.Errorf("customer category = %d instances, want only %d", len(atCustomers), other.ID)
	}
}

// --- Instances ---

func TestRegisterInstanceRejectsDuplicateSerial(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	_, err := svc.RegisterInstance(ctx, InstanceInput{ProductID: f.product.ID, SerialNumber: "SN-0001"}, "tester")
	ve, ok := AsValidation(err)
	if !ok || ve.Fields["serial_number"] == "" {
		t.Fatalf("err = %v, want serial_number validation", err)
	}

	_, err = svc.RegisterInstance(ctx, InstanceInput{ProductID: f.product.ID, SerialNumber: "SN-0009", InitialDepotID: ptr(int64(999))}, "tester")
	if _, ok := AsValidation(err); !ok {
		t.Fatalf("unknown depot: err = %v, want validation", err)
	}
	if _, err := db.GetInstanceBySerial(ctx, "SN-0009"); !store.IsNotFound(err) {
		t.Errorf("rolled-back registration left a row: %v", err)
	}
}

func TestRegisterInstanceDefaultsExpiration(t *testing.T) {
	svc, _, _, f := newTestService(t)
	made := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	inst, err := svc.RegisterInstance(context.Background(), InstanceInput{
		ProductID: f.product.ID, SerialNumber: "SN-0100", ManufactureDate: &made,
	}, "tester")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	want := time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)
	if inst.ExpirationDate == nil || !inst.ExpirationDate.Equal(want) {
		t.Errorf("expiration = %v, want %v", inst.ExpirationDate, want)
	}
}

func TestRetiredInstanceStaysRetired(t *testing.T) {
	svc, db, em, f := newTestService(t)
	ctx := context.Background()

	if err := svc.Retire(ctx, f.instance.ID, "tester"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	got, _ := db.GetInstance(ctx, f.instance.ID)
	if got.State != store.StateRetired {
		t.Errorf("state = %q, want %q", got.State, store.StateRetired)
	}
	if err := svc.SetState(ctx, f.instance.ID, store.StateActive, "tester"); !IsConflict(err) {
		t.Errorf("reactivate: err = %v, want conflict", err)
	}
	if len(em.statusChanged) != 1 {
		t.Errorf("status events = %d, want 1", len(em.statusChanged))
	}
}

func TestScheduleCandidatesUsesHorizon(t *testing.T) {
	svc, db, _, f := newTestService(t)
	ctx := context.Background()

	soon := testNow.AddDate(0, 1, 0)
	later := testNow.AddDate(1, 0, 0)
	if err := db.SetInstanceInspection(ctx, f.instance.ID, testNow.AddDate(-1, 0, 0), &soon); err != nil {
		t.Fatalf("set inspection: %v", err)
	}
	far := &store.ProductInstance{ProductID: f.product.ID, SerialNumber: "SN-FAR", NextInspectionDate: &later}
	if err := db.CreateInstance(ctx, far); err != nil {
		t.Fatalf("create instance: %v", err)
	}

	got, err := svc.ScheduleCandidates(ctx)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != f.instance.ID {
		t.Errorf("candidates = %d, want only %s", len(got), f.instance.SerialNumber)
	}
}

func ptr[T any](v T) *T { return &v }
