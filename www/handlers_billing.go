package www

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/billing"
	"gasflow/documents"
	"gasflow/reports"
	"gasflow/store"
)

// --- deposits ---

func (h *Handlers) apiListDeposits(w http.ResponseWriter, r *http.Request) {
	f := store.DepositFilter{
		CustomerID: queryInt64(r, "customer_id"),
		Status:     r.URL.Query().Get("status"),
	}
	list, err := h.engine.Billing.ListDeposits(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var in billing.DepositInput
	if !h.decode(w, r, &in) {
		return
	}
	d, err := h.engine.Billing.CreateDeposit(r.Context(), in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, d)
}

func (h *Handlers) apiGetDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	d, err := h.engine.Billing.GetDeposit(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiReturnDeposit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var body struct {
		Comments string `json:"comments"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	d, receipt, err := h.engine.Billing.ReturnDeposit(r.Context(), id, body.Comments, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, map[string]any{"deposit": d, "receipt": receipt})
}

func (h *Handlers) apiDepositReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Billing.DepositReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, report)
}

func (h *Handlers) apiListRates(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Billing.Rates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiSetRate(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(r, "productID")
	if !ok {
		h.jsonError(w, "invalid product id", http.StatusBadRequest)
		return
	}
	var body struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	rate, err := h.engine.Billing.SetRate(r.Context(), productID, body.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, rate)
}

// --- documents ---

func (h *Handlers) apiListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.DocumentFilter{
		CustomerID:    queryInt64(r, "customer_id"),
		DocType:       q.Get("doc_type"),
		PaymentStatus: q.Get("payment_status"),
		Search:        q.Get("q"),
		From:          queryDate(r, "from"),
		To:            queryDate(r, "to"),
	}
	list, err := h.engine.Billing.ListDocuments(r.Context(), f)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, list)
}

func (h *Handlers) apiGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	d, err := h.engine.Billing.GetDocument(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, d)
}

func (h *Handlers) apiCreateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	doc, err := h.engine.Billing.CreateInvoice(r.Context(), id, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonCreated(w, doc)
}

func (h *Handlers) apiMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in billing.PaymentInput
	if !h.decode(w, r, &in) {
		return
	}
	doc, err := h.engine.Billing.MarkPaid(r.Context(), id, in, h.getUsername(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, doc)
}

func (h *Handlers) apiDocumentReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Billing.DocumentReport(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, report)
}

// --- PDF and e-mail ---

func (h *Handlers) writePDF(w http.ResponseWriter, data []byte, doc *store.Document) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, documents.FileName(doc)))
	w.Write(data)
}

func (h *Handlers) handleDocumentPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	data, doc, err := h.engine.Documents.DocumentPDF(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePDF(w, data, doc)
}

func (h *Handlers) handleDepositReceiptPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	data, doc, err := h.engine.Documents.DepositReceiptPDF(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writePDF(w, data, doc)
}

func (h *Handlers) handleDocumentEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Documents.EmailDocument(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) handleDepositReceiptEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.jsonError(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := h.engine.Documents.EmailDepositReceipt(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

// --- spreadsheet exports ---

// sendXLSX builds the workbook in memory so a failure still gets a JSON error.
func (h *Handlers) sendXLSX(w http.ResponseWriter, name string, build func(io.Writer) error) {
	var buf bytes.Buffer
	if err := build(&buf); err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", reports.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, name, time.Now().Format("20060102")))
	buf.WriteTo(w)
}

func (h *Handlers) handleMovementsExport(w http.ResponseWriter, r *http.Request) {
	f := movementFilter(r)
	h.sendXLSX(w, "movements", func(out io.Writer) error {
		return h.engine.Reports.Movements(r.Context(), f, out)
	})
}

func (h *Handlers) handleStockExport(w http.ResponseWriter, r *http.Request) {
	h.sendXLSX(w, "stock", func(out io.Writer) error {
		return h.engine.Reports.Stock(r.Context(), out)
	})
}

func (h *Handlers) handleDepositsExport(w http.ResponseWriter, r *http.Request) {
	h.sendXLSX(w, "deposits", func(out io.Writer) error {
		return h.engine.Reports.Deposits(r.Context(), out)
	})
}
