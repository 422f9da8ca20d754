package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/lifecycle"
	"gasflow/store"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC) // a Wednesday
	from, to := date("2025-02-03"), date("2025-02-09")
	tests := []struct {
		period   string
		from, to *time.Time
		want     [2]string
	}{
		{"", nil, nil, [2]string{"2025-03-01", "2025-03-31"}},
		{PeriodDay, nil, nil, [2]string{"2025-03-12", "2025-03-12"}},
		{PeriodWeek, nil, nil, [2]string{"2025-03-10", "2025-03-16"}},
		{PeriodYear, nil, nil, [2]string{"2025-01-01", "2025-12-31"}},
		{PeriodCustom, &from, &to, [2]string{"2025-02-03", "2025-02-09"}},
		{PeriodCustom, &from, nil, [2]string{"2025-02-03", "2025-03-31"}},
		{PeriodMonth, &from, &to, [2]string{"2025-03-01", "2025-03-31"}},
	}
	for _, tt := range tests {
		r, err := ResolveRange(now, tt.period, tt.from, tt.to)
		if err != nil {
			t.Errorf("ResolveRange(%q): %v", tt.period, err)
			continue
		}
		got := [2]string{r.From.Format("2006-01-02"), r.To.Format("2006-01-02")}
		if got != tt.want {
			t.Errorf("ResolveRange(%q) = %v, want %v", tt.period, got, tt.want)
		}
	}

	if _, err := ResolveRange(now, PeriodCustom, &to, &from); err == nil {
		t.Error("reversed custom range should fail")
	} else if _, ok := lifecycle.AsValidation(err); !ok {
		t.Errorf("reversed range err = %v, want validation error", err)
	}
	if _, err := ResolveRange(now, "quarter", nil, nil); err == nil {
		t.Error("unknown period should fail")
	}
}

type salesFixture struct {
	propane *store.Product
	butane  *store.Product
}

// seedSales books, relative to March 2025: 2 propane on the 5th, 3 butane
// on the 7th, 1 cancelled propane on the 7th and 5 propane in February.
func seedSales(t *testing.T, m *Manager, db *store.DB, f fixture) salesFixture {
	t.Helper()
	ctx := context.Background()
	butane := &store.Product{Code: "B13", Label: "Butane 13kg", Price: decimal.RequireFromString("80")}
	if err := db.CreateProduct(ctx, butane); err != nil {
		t.Fatalf("create product: %v", err)
	}
	book := func(day string, productID int64, qty int, cancel bool) {
		o, err := m.CreateOrder(ctx, OrderInput{
			CustomerID: f.customer.ID,
			OrderDate:  date(day),
			Status:     store.OrderConfirmed,
			Details:    []DetailInput{{ProductID: productID, Quantity: qty}},
		}, "tester")
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		if cancel {
			if _, err := m.CancelOrder(ctx, o.ID, "tester"); err != nil {
				t.Fatalf("cancel: %v", err)
			}
		}
	}
	book("2025-03-05", f.product.ID, 2, false)
	book("2025-03-07", butane.ID, 3, false)
	book("2025-03-07", f.product.ID, 1, true)
	book("2025-02-20", f.product.ID, 5, false)
	return salesFixture{propane: f.product, butane: butane}
}

func TestProductReportRanksBestSellers(t *testing.T) {
	m, db, _, f := setup(t)
	ctx := context.Background()
	s := seedSales(t, m, db, f)

	r, err := m.ProductReport(ctx, PeriodMonth, nil, nil)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Products) != 2 {
		t.Fatalf("products = %d, want 2", len(r.Products))
	}
	if r.Products[0].ProductID != s.butane.ID || r.Products[0].Quantity != 3 {
		t.Errorf("top product = %d x%d, want butane x3", r.Products[0].ProductID, r.Products[0].Quantity)
	}
	if !r.Products[1].Amount.Equal(decimal.RequireFromString("70.40")) {
		t.Errorf("propane amount = %s, want 70.40", r.Products[1].Amount)
	}
	if r.TotalQuantity != 5 {
		t.Errorf("total quantity = %d, want 5", r.TotalQuantity)
	}
	if !r.TotalAmount.Equal(decimal.RequireFromString("310.40")) {
		t.Errorf("total amount = %s, want 310.40", r.TotalAmount)
	}

	if len(r.Trend) != 31 {
		t.Fatalf("trend points = %d, want 31", len(r.Trend))
	}
	if p := r.Trend[4]; p.Period != "2025-03-05" || p.Quantity != 2 {
		t.Errorf("trend[4] = %s x%d, want 2025-03-05 x2", p.Period, p.Quantity)
	}
	if p := r.Trend[6]; p.Quantity != 3 {
		t.Errorf("trend on the 7th = %d, want 3 (cancelled excluded)", p.Quantity)
	}
	if p := r.Trend[0]; p.Quantity != 0 || !p.Amount.IsZero() {
		t.Errorf("trend[0] = %d/%s, want zero", p.Quantity, p.Amount)
	}
}

func TestProductReportYearTrendIsMonthly(t *testing.T) {
	m, db, _, f := setup(t)
	seedSales(t, m, db, f)

	r, err := m.ProductReport(context.Background(), PeriodYear, nil, nil)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(r.Trend) != 12 {
		t.Fatalf("trend points = %d, want 12", len(r.Trend))
	}
	if p := r.Trend[1]; p.Period != "2025-02" || p.Quantity != 5 {
		t.Errorf("february = %s x%d, want 2025-02 x5", p.Period, p.Quantity)
	}
	if p := r.Trend[2]; p.Quantity != 5 {
		t.Errorf("march = %d, want 5", p.Quantity)
	}
	if r.TotalQuantity != 10 {
		t.Errorf("total quantity = %d, want 10", r.TotalQuantity)
	}
}

func TestProductDetail(t *testing.T) {
	m, db, _, f := setup(t)
	ctx := context.Background()
	s := seedSales(t, m, db, f)

	from, to := date("2025-02-01"), date("2025-03-31")
	d, err := m.ProductDetail(ctx, s.propane.ID, PeriodCustom, &from, &to)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if d.Product.Code != "P13" {
		t.Errorf("product = %q, want P13", d.Product.Code)
	}
	if len(d.Sales) != 2 {
		t.Fatalf("sales = %d, want 2", len(d.Sales))
	}
	if got := d.Sales[0].OrderDate.Format("2006-01-02"); got != "2025-03-05" {
		t.Errorf("newest sale = %s, want 2025-03-05", got)
	}
	if d.Sales[0].CustomerName != "Martin" {
		t.Errorf("customer = %q, want Martin", d.Sales[0].CustomerName)
	}
	if d.TotalQuantity != 7 {
		t.Errorf("total quantity = %d, want 7", d.TotalQuantity)
	}
	if !d.TotalAmount.Equal(decimal.RequireFromString("246.40")) {
		t.Errorf("total amount = %s, want 246.40", d.TotalAmount)
	}
	if len(d.Trend) != 59 {
		t.Errorf("trend points = %d, want 59", len(d.Trend))
	}

	if _, err := m.ProductDetail(ctx, 999, PeriodMonth, nil, nil); !store.IsNotFound(err) {
		t.Errorf("unknown product err = %v, want not found", err)
	}
}
