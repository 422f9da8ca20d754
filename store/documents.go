package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DocInvoice        = "invoice"
	DocCreditNote     = "credit_note"
	DocQuote          = "quote"
	DocDepositReceipt = "deposit_receipt"
	DocReturnReceipt  = "return_receipt"
)

const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

type Document struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	DocType       string          `json:"doc_type"`
	DocDate       time.Time       `json:"doc_date"`
	OrderID       *int64          `json:"order_id,omitempty"`
	DepositID     *int64          `json:"deposit_id,omitempty"`
	CustomerID    int64           `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus string          `json:"payment_status"`
	PaymentDate   *time.Time      `json:"payment_date,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	Comments      string          `json:"comments"`
	CreatedAt     time.Time       `json:"created_at"`

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

const documentSelectCols = `doc.id, doc.number, doc.doc_type, doc.doc_date, doc.order_id, doc.deposit_id, doc.customer_id, doc.total_amount,
	doc.payment_status, doc.payment_date, doc.payment_method, doc.comments, doc.created_at, c.name, c.email`

const documentFrom = `documents doc JOIN customers c ON c.id = doc.customer_id`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	var d Document
	var orderID, depositID sql.NullInt64
	var docDate, paymentDate, createdAt any
	err := row.Scan(&d.ID, &d.Number, &d.DocType, &docDate, &orderID, &depositID, &d.CustomerID, &d.TotalAmount,
		&d.PaymentStatus, &paymentDate, &d.PaymentMethod, &d.Comments, &createdAt, &d.CustomerName, &d.CustomerEmail)
	if err != nil {
		return nil, err
	}
	d.DocDate = parseTime(docDate)
	d.OrderID = idPtr(orderID)
	d.DepositID = idPtr(depositID)
	d.PaymentDate = parseTimePtr(paymentDate)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (q *Queries) CreateDocument(ctx context.Context, d *Document) error {
	if d.PaymentStatus == "" {
		d.PaymentStatus = PaymentUnpaid
	}
	id, err := q.insert(ctx, `INSERT INTO documents (number, doc_type, doc_date, order_id, deposit_id, customer_id, total_amount, payment_status, payment_date, payment_method, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Number, d.DocType, q.date(d.DocDate), nullID(d.OrderID), nullID(d.DepositID), d.CustomerID, d.TotalAmount,
		d.PaymentStatus, q.datePtr(d.PaymentDate), d.PaymentMethod, d.Comments)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	d.ID = id
	return nil
}

func (q *Queries) MarkDocumentPaid(ctx context.Context, id int64, method string, paidOn time.Time) error {
	_, err := q.exec(ctx, `UPDATE documents SET payment_status=?, payment_method=?, payment_date=? WHERE id=?`,
		PaymentPaid, method, q.date(paidOn), id)
	return err
}

func (q *Queries) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE doc.id=?`, documentSelectCols, documentFrom), id)
	return scanDocument(row)
}

// GetDepositDocument returns the newest document of the given type attached to a deposit.
func (q *Queries) GetDepositDocument(ctx context.Context, depositID int64, docType string) (*Document, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE doc.deposit_id=? AND doc.doc_type=? ORDER BY doc.id DESC LIMIT 1`,
		documentSelectCols, documentFrom), depositID, docType)
	return scanDocument(row)
}

// GetOrderDocument returns the newest document of the given type issued for an order.
func (q *Queries) GetOrderDocument(ctx context.Context, orderID int64, docType string) (*Document, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE doc.order_id=? AND doc.doc_type=? ORDER BY doc.id DESC LIMIT 1`,
		documentSelectCols, documentFrom), orderID, docType)
	return scanDocument(row)
}

type DocumentFilter struct {
	CustomerID    int64
	DocType       string
	PaymentStatus string
	Search        string
	From          *time.Time
	To            *time.Time
}

func (q *Queries) ListDocuments(ctx context.Context, f DocumentFilter) ([]*Document, error) {
	var where []string
	var args []any
	if f.CustomerID > 0 {
		where = append(where, "doc.customer_id=?")
		args = append(args, f.CustomerID)
	}
	if f.DocType != "" {
		where = append(where, "doc.doc_type=?")
		args = append(args, f.DocType)
	}
	if f.PaymentStatus != "" {
		where = append(where, "doc.payment_status=?")
		args = append(args, f.PaymentStatus)
	}
	if f.Search != "" {
		where = append(where, "(LOWER(doc.number) LIKE LOWER(?) OR LOWER(c.name) LIKE LOWER(?))")
		args = append(args, "%"+f.Search+"%", "%"+f.Search+"%")
	}
	if f.From != nil {
		where = append(where, "doc.doc_date>=?")
		args = append(args, q.date(*f.From))
	}
	if f.To != nil {
		where = append(where, "doc.doc_date<=?")
		args = append(args, q.date(*f.To))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, documentSelectCols, documentFrom)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY doc.doc_date DESC, doc.id DESC"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type DocumentTotal struct {
	DocType       string          `json:"doc_type"`
	PaymentStatus string          `json:"payment_status"`
	Count         int             `json:"count"`
	Amount        decimal.Decimal `json:"amount"`
}

func (q *Queries) DocumentReport(ctx context.Context) ([]*DocumentTotal, error) {
	rows, err := q.query(ctx, `SELECT doc_type, payment_status, COUNT(*), SUM(total_amount) FROM documents
		WHERE doc_type IN (?, ?, ?) GROUP BY doc_type, payment_status ORDER BY doc_type, payment_status`,
		DocInvoice, DocCreditNote, DocQuote)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DocumentTotal
	for rows.Next() {
		var t DocumentTotal
		var amt decimal.NullDecimal
		if err := rows.Scan(&t.DocType, &t.PaymentStatus, &t.Count, &amt); err != nil {
			return nil, err
		}
		t.Amount = amt.Decimal
		out = append(out, &t)
	}
	return out, rows.Err()
}
