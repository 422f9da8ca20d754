package stock

import (
	"context"
	"sort"
	"time"

	"gasflow/lifecycle"
	"gasflow/store"
)

// maxProductDifferences caps the product ranking of a count report.
const maxProductDifferences = 10

// ProductDifference sums the non-zero count differences of one product.
type ProductDifference struct {
	ProductID       int64   `json:"product_id"`
	ProductCode     string  `json:"product_code"`
	ProductLabel    string  `json:"product_label"`
	TotalDifference int     `json:"total_difference"`
	AvgDifference   float64 `json:"avg_difference"`
	Lines           int     `json:"lines"`
}

// DepotDifference sums the count differences of one depot.
type DepotDifference struct {
	DepotID         int64  `json:"depot_id"`
	DepotLabel      string `json:"depot_label"`
	TotalDifference int    `json:"total_difference"`
	Lines           int    `json:"lines"`
	Orders          int    `json:"orders"`
}

// CountReport summarises the counts completed over a period.
type CountReport struct {
	From               time.Time               `json:"from"`
	To                 time.Time               `json:"to"`
	DepotID            int64                   `json:"depot_id,omitempty"`
	Orders             []*store.InventoryOrder `json:"orders"`
	TotalOrders        int                     `json:"total_orders"`
	TotalLines         int                     `json:"total_lines"`
	ProductDifferences []*ProductDifference    `json:"product_differences"`
	DepotDifferences   []*DepotDifference      `json:"depot_differences"`
	History            []*store.MonthlyCount   `json:"history"`
}

// CountReport covers the counts completed between from and to, both whole
// days. From defaults to one month ago and to defaults to today. A non-zero
// depotID restricts the period figures to that depot; the monthly history
// always covers every depot.
func (s *Service) CountReport(ctx context.Context, from, to *time.Time, depotID int64) (*CountReport, error) {
	now := s.now()
	start := startOfDay(now.AddDate(0, -1, 0))
	if from != nil {
		start = startOfDay(*from)
	}
	end := startOfDay(now)
	if to != nil {
		end = startOfDay(*to)
	}
	if end.Before(start) {
		return nil, lifecycle.Invalid("end_date", "must not be before start_date")
	}

	orders, err := s.db.ListCompletedInventoryOrders(ctx, start, end.AddDate(0, 0, 1), depotID)
	if err != nil {
		return nil, err
	}
	history, err := s.db.MonthlyCompletedCounts(ctx)
	if err != nil {
		return nil, err
	}
	r := &CountReport{
		From:        start,
		To:          end,
		DepotID:     depotID,
		Orders:      orders,
		TotalOrders: len(orders),
		History:     history,
	}

	products := make(map[int64]*ProductDifference)
	depots := make(map[int64]*DepotDifference)
	for _, o := range orders {
		d := depots[o.DepotID]
		if d == nil {
			d = &DepotDifference{DepotID: o.DepotID, DepotLabel: o.DepotLabel}
			depots[o.DepotID] = d
		}
		d.Orders++
		for _, l := range o.Lines {
			r.TotalLines++
			d.Lines++
			if l.Difference == nil {
				continue
			}
			d.TotalDifference += *l.Difference
			if *l.Difference == 0 {
				continue
			}
			p := products[l.ProductID]
			if p == nil {
				p = &ProductDifference{ProductID: l.ProductID, ProductCode: l.ProductCode, ProductLabel: l.ProductLabel}
				products[l.ProductID] = p
			}
			p.TotalDifference += *l.Difference
			p.Lines++
		}
	}

	for _, p := range products {
		p.AvgDifference = float64(p.TotalDifference) / float64(p.Lines)
		r.ProductDifferences = append(r.ProductDifferences, p)
	}
	sort.Slice(r.ProductDifferences, func(i, j int) bool {
		a, b := r.ProductDifferences[i], r.ProductDifferences[j]
		if a.TotalDifference != b.TotalDifference {
			return a.TotalDifference > b.TotalDifference
		}
		return a.ProductCode < b.ProductCode
	})
	if len(r.ProductDifferences) > maxProductDifferences {
		r.ProductDifferences = r.ProductDifferences[:maxProductDifferences]
	}

	for _, d := range depots {
		r.DepotDifferences = append(r.DepotDifferences, d)
	}
	sort.Slice(r.DepotDifferences, func(i, j int) bool {
		a, b := r.DepotDifferences[i], r.DepotDifferences[j]
		if a.TotalDifference != b.TotalDifference {
			return a.TotalDifference > b.TotalDifference
		}
		return a.DepotID < b.DepotID
	})
	return r, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
