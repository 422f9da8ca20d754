package stock

import (
	"context"
	"math"
	"sort"
	"time"
)

// ForecastMonths is how far back sales are read.
const ForecastMonths = 6

// horizon is the number of months projected forward.
const horizon = 3

type Forecast struct {
	ProductID            int64          `json:"product_id"`
	ProductCode          string         `json:"product_code"`
	ProductLabel         string         `json:"product_label"`
	MonthlySales         map[string]int `json:"monthly_sales"`
	AvgMonthlySales      float64        `json:"avg_monthly_sales"`
	Trend                float64        `json:"trend"`
	Forecast3M           float64        `json:"forecast_3m"`
	CurrentStock         int            `json:"current_stock"`
	EstimatedStock3M     float64        `json:"estimated_stock_3m"`
	AlertThreshold       *int           `json:"alert_threshold,omitempty"`
	WillBeBelowThreshold bool           `json:"will_be_below_threshold"`
}

// Forecast projects three months of demand per product from the sales of
// the last six calendar months. Only products with sales in that window are
// returned.
func (s *Service) Forecast(ctx context.Context) ([]*Forecast, error) {
	now := s.now().UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -ForecastMonths, 0)

	sales, err := s.db.MonthlyProductSales(ctx, since)
	if err != nil {
		return nil, err
	}
	stock, err := s.db.StockByProduct(ctx)
	if err != nil {
		return nil, err
	}

	var out []*Forecast
	for _, p := range stock {
		monthly, ok := sales[p.ProductID]
		if !ok || len(monthly) == 0 {
			continue
		}
		f := &Forecast{
			ProductID:      p.ProductID,
			ProductCode:    p.ProductCode,
			ProductLabel:   p.ProductLabel,
			MonthlySales:   monthly,
			CurrentStock:   p.Total,
			AlertThreshold: p.Threshold,
		}
		project(f)
		out = append(out, f)
	}
	return out, nil
}

// project fills the derived figures of f from its monthly sales. The trend is
// the change between the first and last month with sales, divided by the
// number of months with sales.
func project(f *Forecast) {
	months := make([]string, 0, len(f.MonthlySales))
	total := 0
	for m, qty := range f.MonthlySales {
		months = append(months, m)
		total += qty
	}
	sort.Strings(months)

	n := float64(len(months))
	f.AvgMonthlySales = float64(total) / n
	if len(months) >= 2 {
		first := f.MonthlySales[months[0]]
		last := f.MonthlySales[months[len(months)-1]]
		f.Trend = float64(last-first) / n
	}
	f.Forecast3M = f.AvgMonthlySales*horizon + f.Trend*horizon
	f.EstimatedStock3M = math.Max(0, float64(f.CurrentStock)-f.Forecast3M)
	f.WillBeBelowThreshold = f.AlertThreshold != nil && f.EstimatedStock3M <= float64(*f.AlertThreshold)
}
