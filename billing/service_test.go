package billing

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/config"
	"gasflow/lifecycle"
	"gasflow/store"
)

type mockEmitter struct {
	deposits  []int64
	returned  []int64
	documents []string
	paid      []string
}

func (m *mockEmitter) EmitDepositCreated(depositID, _ int64, _ string, _ bool, _ string) {
	m.deposits = append(m.deposits, depositID)
}
func (m *mockEmitter) EmitDepositReturned(depositID, _ int64, _ string, _ string) {
	m.returned = append(m.returned, depositID)
}
func (m *mockEmitter) EmitDocumentCreated(_ int64, _, docType, _, _ string) {
	m.documents = append(m.documents, docType)
}
func (m *mockEmitter) EmitDocumentPaid(_ int64, number, _, _ string) {
	m.paid = append(m.paid, number)
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
	customer *store.Customer
	product  *store.Product
}

func setup(t *testing.T) (*Service, *store.DB, *mockEmitter, fixture) {
	t.Helper()
	db := testDB(t)
	ctx := context.Background()
	f := fixture{
		customer: &store.Customer{Name: "Martin", Email: "martin@example.com"},
		product:  &store.Product{Code: "B13", Label: "Butane 13kg", Price: decimal.RequireFromString("32.50")},
	}
	if err := db.CreateCustomer(ctx, f.customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	if err := db.CreateProduct(ctx, f.product); err != nil {
		t.Fatalf("create product: %v", err)
	}
	em := &mockEmitter{}
	svc := NewService(db, em)
	svc.now = func() time.Time { return testNow }
	return svc, db, em, f
}

func TestCreateDepositUsesRate(t *testing.T) {
	svc, _, em, f := setup(t)
	ctx := context.Background()

	in := DepositInput{CustomerID: f.customer.ID, ProductID: f.product.ID}
	if _, err := svc.CreateDeposit(ctx, in, "tester"); err == nil {
		t.Fatal("expected an error without amount or rate")
	}
	if _, err := svc.SetRate(ctx, f.product.ID, decimal.RequireFromString("25")); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	d, err := svc.CreateDeposit(ctx, in, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !d.Amount.Equal(decimal.RequireFromString("25")) {
		t.Errorf("amount = %s, want 25", d.Amount)
	}
	if d.Status != store.DepositActive || d.Paid {
		t.Errorf("deposit = %s paid=%v, want active unpaid", d.Status, d.Paid)
	}
	if len(em.deposits) != 1 || len(em.documents) != 0 {
		t.Errorf("events = %v %v, want one deposit and no document", em.deposits, em.documents)
	}
}

func TestCreatePaidDepositRequiresMethod(t *testing.T) {
	svc, _, _, f := setup(t)
	amount := decimal.RequireFromString("30")

	_, err := svc.CreateDeposit(context.Background(), DepositInput{
		CustomerID: f.customer.ID, ProductID: f.product.ID, Paid: true, Amount: &amount,
	}, "tester")
	if ve, ok := lifecycle.AsValidation(err); !ok || ve.Fields["payment_method"] == "" {
		t.Errorf("err = %v, want payment_method validation", err)
	}
}

func TestDepositReceiptAndReturn(t *testing.T) {
	svc, _, em, f := setup(t)
	ctx := context.Background()
	amount := decimal.RequireFromString("30")

	d, err := svc.CreateDeposit(ctx, DepositInput{
		CustomerID:      f.customer.ID,
		ProductID:       f.product.ID,
		Paid:            true,
		Amount:          &amount,
		PaymentMethod:   "cash",
		Comments:        "first cylinder",
		GenerateReceipt: true,
	}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	receipt, err := svc.DepositReceipt(ctx, d.ID)
	if err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if !regexp.MustCompile(`^DEP-20250310-[0-9A-F]{8}$`).MatchString(receipt.Number) {
		t.Errorf("receipt number = %q", receipt.Number)
	}
	if !receipt.TotalAmount.Equal(amount) {
		t.Errorf("receipt amount = %s, want 30", receipt.TotalAmount)
	}

	returned, ret, err := svc.ReturnDeposit(ctx, d.ID, "cylinder back", "tester")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != store.DepositReturned {
		t.Errorf("status = %q, want %q", returned.Status, store.DepositReturned)
	}
	if !ret.TotalAmount.Equal(amount.Neg()) {
		t.Errorf("return amount = %s, want -30", ret.TotalAmount)
	}
	if ret.DocType != store.DocReturnReceipt {
		t.Errorf("doc type = %q, want %q", ret.DocType, store.DocReturnReceipt)
	}
	wantNote := "first cylinder\n[2025-03-10 09:00:00] RETURNED: cylinder back"
	if returned.Comments != wantNote {
		t.Errorf("comments = %q, want %q", returned.Comments, wantNote)
	}
	if _, _, err := svc.ReturnDeposit(ctx, d.ID, "", "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("second return: err = %v, want conflict", err)
	}
	want := []string{store.DocDepositReceipt, store.DocReturnReceipt}
	if strings.Join(em.documents, ",") != strings.Join(want, ",") {
		t.Errorf("documents = %v, want %v", em.documents, want)
	}

	report, err := svc.DepositReport(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.ActiveCount != 0 || report.ReturnedCount != 1 {
		t.Errorf("report = %+v, want 0 active 1 returned", report)
	}
}

func TestReturnUnpaidDeposit(t *testing.T) {
	svc, _, _, f := setup(t)
	amount := decimal.RequireFromString("30")
	ctx := context.Background()

	d, err := svc.CreateDeposit(ctx, DepositInput{CustomerID: f.customer.ID, ProductID: f.product.ID, Amount: &amount}, "tester")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, _, err := svc.ReturnDeposit(ctx, d.ID, "", "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestReturnNote(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := returnNote("", "", at); got != "[2025-01-02 03:04:05] RETURNED:" {
		t.Errorf("note = %q", got)
	}
}

func TestInvoiceLifecycle(t *testing.T) {
	svc, db, em, f := setup(t)
	ctx := context.Background()

	o := &store.Order{
		OrderNumber: store.NewNumber("CMD", testNow),
		CustomerID:  f.customer.ID,
		OrderDate:   testNow,
		Status:      store.OrderDelivered,
		TotalAmount: decimal.RequireFromString("65"),
	}
	if err := db.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	inv, err := svc.CreateInvoice(ctx, o.ID, "tester")
	if err != nil {
		t.Fatalf("invoice: %v", err)
	}
	if !inv.TotalAmount.Equal(decimal.RequireFromString("65")) || inv.PaymentStatus != store.PaymentUnpaid {
		t.Errorf("invoice = %s %s, want 65 unpaid", inv.TotalAmount, inv.PaymentStatus)
	}
	if _, err := svc.CreateInvoice(ctx, o.ID, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("second invoice: err = %v, want conflict", err)
	}

	if _, err := svc.MarkPaid(ctx, inv.ID, PaymentInput{PaymentMethod: "card"}, "tester"); err == nil {
		t.Error("expected payment date to be required")
	}
	paid, err := svc.MarkPaid(ctx, inv.ID, PaymentInput{PaymentMethod: "card", PaymentDate: testNow}, "tester")
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.PaymentStatus != store.PaymentPaid || paid.PaymentMethod != "card" {
		t.Errorf("document = %s via %s, want paid via card", paid.PaymentStatus, paid.PaymentMethod)
	}
	if _, err := svc.MarkPaid(ctx, inv.ID, PaymentInput{PaymentMethod: "card", PaymentDate: testNow}, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("pay twice: err = %v, want conflict", err)
	}
	if len(em.paid) != 1 || em.paid[0] != inv.Number {
		t.Errorf("paid events = %v, want [%s]", em.paid, inv.Number)
	}

	report, err := svc.DocumentReport(ctx)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Count != 1 || !report.PaidAmount.Equal(decimal.RequireFromString("65")) {
		t.Errorf("report = %d docs paid %s, want 1 doc paid 65", report.Count, report.PaidAmount)
	}
	docs, err := svc.ListDocuments(ctx, store.DocumentFilter{Search: "martin"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("documents = %d, want 1", len(docs))
	}
}

func TestCancelledOrderIsNotInvoiced(t *testing.T) {
	svc, db, _, f := setup(t)
	ctx := context.Background()

	o := &store.Order{OrderNumber: store.NewNumber("CMD", testNow), CustomerID: f.customer.ID, OrderDate: testNow, Status: store.OrderCancelled}
	if err := db.CreateOrder(ctx, o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := svc.CreateInvoice(ctx, o.ID, "tester"); !lifecycle.IsConflict(err) {
		t.Errorf("err = %v, want conflict", err)
	}
}
