// Package documents renders receipts and invoices to PDF and mails them to
// customers.
package documents

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"gasflow/config"
)

var docTitles = map[string]string{
	"invoice":         "Invoice",
	"credit_note":     "Credit note",
	"quote":           "Quote",
	"deposit_receipt": "Deposit receipt",
	"return_receipt":  "Deposit return receipt",
}

// Sheet is everything printed on one document.
type Sheet struct {
	Title         string
	Number        string
	Date          time.Time
	CustomerName  string
	CustomerLines []string
	Lines         []Line
	Total         decimal.Decimal
	PaymentStatus string
	PaymentMethod string
	Notes         string
}

type Line struct {
	Label     string
	Quantity  int
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// Title returns the printed title of a document type.
func Title(docType string) string {
	if t, ok := docTitles[docType]; ok {
		return t
	}
	return strings.ReplaceAll(docType, "_", " ")
}

// Renderer lays out sheets as A4 PDFs under the company header.
type Renderer struct {
	company config.CompanyConfig
}

func NewRenderer(company config.CompanyConfig) *Renderer {
	return &Renderer{company: company}
}

func (r *Renderer) Render(s *Sheet) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(s.Title+" "+s.Number, true)
	pdf.SetCreator(r.company.Name, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 7, tr(r.company.Name))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 9)
	for _, l := range []string{r.company.Address, r.company.Phone, r.company.Email} {
		if l != "" {
			pdf.Cell(0, 4.5, tr(l))
			pdf.Ln(4.5)
		}
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(s.Title), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, "No. "+s.Number, "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+s.Date.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 5, tr(s.CustomerName))
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range s.CustomerLines {
		pdf.Cell(0, 5, tr(l))
		pdf.Ln(5)
	}
	pdf.Ln(6)

	widths := []float64{95, 20, 35, 40}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Description", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range s.Lines {
		pdf.CellFormat(widths[0], 6, tr(l.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprint(l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, money(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(l.Amount), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, money(s.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 9)
	status := "Payment: " + s.PaymentStatus
	if s.PaymentMethod != "" {
		status += " (" + s.PaymentMethod + ")"
	}
	pdf.Cell(0, 5, tr(status))
	pdf.Ln(5)
	if s.Notes != "" {
		pdf.MultiCell(0, 4.5, tr(s.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", s.Number, err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " EUR"
}
