// Package reports builds the spreadsheet exports of the back office.
package reports

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"gasflow/store"
)

// ContentType is the MIME type of every export.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const dateLayout = "2006-01-02 15:04"

type Exporter struct {
	db *store.DB
}

func NewExporter(db *store.DB) *Exporter {
	return &Exporter{db: db}
}

// sheet writes a header row and then one row per record starting at A2.
func sheet(f *excelize.File, name string, headers []string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// newWorkbook returns a file whose default sheet is renamed to first.
func newWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func write(f *excelize.File, w io.Writer) error {
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// locationNames resolves movement endpoints to depot labels and customer names.
type locationNames struct {
	depots    map[int64]string
	customers map[int64]string
}

func (e *Exporter) locationNames(ctx context.Context) (*locationNames, error) {
	n := &locationNames{depots: map[int64]string{}, customers: map[int64]string{}}
	depots, err := e.db.ListDepots(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range depots {
		n.depots[d.ID] = d.Label
	}
	customers, err := e.db.ListCustomers(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		n.customers[c.ID] = c.FullName()
	}
	return n, nil
}

func (n *locationNames) name(l *store.LocationRef) string {
	if l == nil {
		return ""
	}
	var name string
	if l.IsDepot() {
		name = n.depots[l.ID]
	} else {
		name = n.customers[l.ID]
	}
	if name == "" {
		return l.String()
	}
	return name
}

// Movements exports the movements matching f, ignoring its paging.
func (e *Exporter) Movements(ctx context.Context, f store.MovementFilter, w io.Writer) error {
	f.Limit, f.Offset = 0, 0
	movements, _, err := e.db.ListMovements(ctx, f)
	if err != nil {
		return err
	}
	names, err := e.locationNames(ctx)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		rows = append(rows, []any{
			m.MovementDate.Format(dateLayout), m.SerialNumber, m.ProductCode, m.ProductLabel,
			m.MovementType, m.Status, names.name(m.Source), names.name(&m.Destination), m.Comments, m.CreatedBy,
		})
	}
	wb, err := newWorkbook("Movements")
	if err != nil {
		return err
	}
	headers := []string{"Date", "Serial", "Product code", "Product", "Type", "Status", "From", "To", "Comments", "By"}
	if err := sheet(wb, "Movements", headers, rows); err != nil {
		wb.Close()
		return err
	}
	log.Printf("reports: exported %d movements", len(rows))
	return write(wb, w)
}

// Stock exports inventory per depot on one sheet and totals per product on another.
func (e *Exporter) Stock(ctx context.Context, w io.Writer) error {
	items, err := e.db.ListInventory(ctx)
	if err != nil {
		return err
	}
	totals, err := e.db.StockByProduct(ctx)
	if err != nil {
		return err
	}
	wb, err := newWorkbook("Inventory")
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.DepotLabel, it.ProductCode, it.ProductLabel, it.Quantity,
			it.LastUpdated.Format(dateLayout), it.LastUpdatedBy})
	}
	if err := sheet(wb, "Inventory", []string{"Depot", "Product code", "Product", "Quantity", "Updated", "By"}, rows); err != nil {
		wb.Close()
		return err
	}
	rows = rows[:0]
	for _, t := range totals {
		threshold := ""
		if t.Threshold != nil {
			threshold = fmt.Sprint(*t.Threshold)
		}
		low := ""
		if t.BelowAlert {
			low = "yes"
		}
		rows = append(rows, []any{t.ProductCode, t.ProductLabel, t.Total, threshold, low})
	}
	if err := sheet(wb, "Totals", []string{"Product code", "Product", "Total", "Alert threshold", "Low"}, rows); err != nil {
		wb.Close()
		return err
	}
	return write(wb, w)
}

// Deposits exports every deposit and a summary of active paid deposits per product.
func (e *Exporter) Deposits(ctx context.Context, w io.Writer) error {
	deposits, err := e.db.ListDeposits(ctx, store.DepositFilter{})
	if err != nil {
		return err
	}
	report, err := e.db.DepositReport(ctx)
	if err != nil {
		return err
	}
	wb, err := newWorkbook("Deposits")
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(deposits))
	for _, d := range deposits {
		paid := "no"
		if d.Paid {
			paid = "yes"
		}
		amount, _ := d.Amount.Float64()
		rows = append(rows, []any{d.DepositDate.Format("2006-01-02"), d.CustomerName, d.ProductCode, d.ProductLabel,
			amount, paid, d.PaymentMethod, d.Status, d.Comments})
	}
	headers := []string{"Date", "Customer", "Product code", "Product", "Amount", "Paid", "Method", "Status", "Comments"}
	if err := sheet(wb, "Deposits", headers, rows); err != nil {
		wb.Close()
		return err
	}
	rows = rows[:0]
	for _, t := range report.ByProduct {
		amount, _ := t.Amount.Float64()
		rows = append(rows, []any{t.ProductLabel, t.Count, amount})
	}
	active, _ := report.ActiveAmount.Float64()
	returned, _ := report.ReturnedAmount.Float64()
	rows = append(rows, []any{"Active total", report.ActiveCount, active}, []any{"Returned total", report.ReturnedCount, returned})
	if err := sheet(wb, "Summary", []string{"Product", "Count", "Amount"}, rows); err != nil {
		wb.Close()
		return err
	}
	return write(wb, w)
}
