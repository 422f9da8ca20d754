package orders

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/lifecycle"
	"gasflow/store"
)

// Report periods. Every period except custom is anchored on today.
const (
	PeriodDay    = "day"
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodYear   = "year"
	PeriodCustom = "custom"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Period string    `json:"period"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// ProductReport ranks products by quantity sold over a period.
type ProductReport struct {
	DateRange
	Products      []*store.ProductSales `json:"products"`
	TotalQuantity int                   `json:"total_quantity"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Trend         []*store.SalesPoint   `json:"trend"`
}

// ProductDetail is the sales history of one product over a period.
type ProductDetail struct {
	DateRange
	Product       *store.Product           `json:"product"`
	Sales         []*store.ProductSaleLine `json:"sales"`
	TotalQuantity int                      `json:"total_quantity"`
	TotalAmount   decimal.Decimal          `json:"total_amount"`
	Trend         []*store.SalesPoint      `json:"trend"`
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveRange turns a period name into dates. An empty period means the
// current month. A custom period uses from and to, each defaulting to the
// bounds of the current month.
func ResolveRange(now time.Time, period string, from, to *time.Time) (DateRange, error) {
	today := day(now)
	monthStart := today.AddDate(0, 0, 1-today.Day())
	r := DateRange{Period: period}
	switch period {
	case "", PeriodMonth:
		r.Period = PeriodMonth
		r.From, r.To = monthStart, monthStart.AddDate(0, 1, -1)
	case PeriodDay:
		r.From, r.To = today, today
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		r.From = today.AddDate(0, 0, -offset)
		r.To = r.From.AddDate(0, 0, 6)
	case PeriodYear:
		r.From = time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		r.To = time.Date(today.Year(), 12, 31, 0, 0, 0, 0, time.UTC)
	case PeriodCustom:
		r.From, r.To = monthStart, monthStart.AddDate(0, 1, -1)
		if from != nil {
			r.From = day(*from)
		}
		if to != nil {
			r.To = day(*to)
		}
		if r.To.Before(r.From) {
			return DateRange{}, lifecycle.Invalid("end_date", "must not be before start_date")
		}
	default:
		return DateRange{}, lifecycle.Invalid("period", "must be one of day, week, month, year, custom")
	}
	return r, nil
}

// fillTrend returns one point per day of r, or per month for a yearly
// range, taking figures from points and zero elsewhere.
func fillTrend(r DateRange, points []*store.SalesPoint) []*store.SalesPoint {
	byPeriod := make(map[string]*store.SalesPoint, len(points))
	for _, p := range points {
		byPeriod[p.Period] = p
	}
	layout, step := "2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	if r.Period == PeriodYear {
		layout, step = "2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	}
	var out []*store.SalesPoint
	for t := r.From; !t.After(r.To); t = step(t) {
		key := t.Format(layout)
		if p, ok := byPeriod[key]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, &store.SalesPoint{Period: key, Amount: decimal.Zero})
	}
	return out
}

// ProductReport ranks the products sold over a period and charts total
// sales across it. Cancelled orders are left out.
func (m *Manager) ProductReport(ctx context.Context, period string, from, to *time.Time) (*ProductReport, error) {
	r, err := ResolveRange(m.now(), period, from, to)
	if err != nil {
		return nil, err
	}
	products, err := m.db.SalesByProduct(ctx, r.From, r.To)
	if err != nil {
		return nil, err
	}
	points, err := m.db.SalesSeries(ctx, 0, r.From, r.To, r.Period == PeriodYear)
	if err != nil {
		return nil, err
	}
	rep := &ProductReport{DateRange: r, Products: products, Trend: fillTrend(r, points)}
	for _, p := range products {
		rep.TotalQuantity += p.Quantity
		rep.TotalAmount = rep.TotalAmount.Add(p.Amount)
	}
	return rep, nil
}

// ProductDetail lists every sale of one product over a period.
func (m *Manager) ProductDetail(ctx context.Context, productID int64, period string, from, to *time.Time) (*ProductDetail, error) {
	r, err := ResolveRange(m.now(), period, from, to)
	if err != nil {
		return nil, err
	}
	p, err := m.db.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	sales, err := m.db.ProductSaleLines(ctx, productID, r.From, r.To)
	if err != nil {
		return nil, err
	}
	points, err := m.db.SalesSeries(ctx, productID, r.From, r.To, r.Period == PeriodYear)
	if err != nil {
		return nil, err
	}
	d := &ProductDetail{DateRange: r, Product: p, Sales: sales, Trend: fillTrend(r, points)}
	for _, s := range sales {
		d.TotalQuantity += s.Quantity
		d.TotalAmount = d.TotalAmount.Add(s.Amount)
	}
	return d, nil
}
