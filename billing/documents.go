package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/lifecycle"
	"gasflow/store"
)

type PaymentInput struct {
	PaymentMethod string    `json:"payment_method" validate:"required,oneof=cash card transfer check"`
	PaymentDate   time.Time `json:"payment_date"`
}

// CreateInvoice bills an order for its total. Cancelled orders are not
// billed and an order is invoiced at most once.
func (s *Service) CreateInvoice(ctx context.Context, orderID int64, actor string) (*store.Document, error) {
	var doc *store.Document
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		o, err := q.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == store.OrderCancelled {
			return lifecycle.ConflictError("order %s is cancelled", o.OrderNumber)
		}
		if existing, err := q.GetOrderDocument(ctx, orderID, store.DocInvoice); err == nil {
			return lifecycle.ConflictError("order %s is already invoiced by %s", o.OrderNumber, existing.Number)
		} else if !store.IsNotFound(err) {
			return err
		}
		now := s.now()
		doc = &store.Document{
			Number:        store.NewNumber("FAC", now),
			DocType:       store.DocInvoice,
			DocDate:       now,
			OrderID:       &o.ID,
			CustomerID:    o.CustomerID,
			TotalAmount:   o.TotalAmount,
			PaymentStatus: store.PaymentUnpaid,
			Comments:      "Order " + o.OrderNumber,
		}
		return q.CreateDocument(ctx, doc)
	})
	if err != nil {
		logError("create invoice", err)
		return nil, err
	}
	s.emitter.EmitDocumentCreated(doc.ID, doc.Number, doc.DocType, doc.TotalAmount.StringFixed(2), actor)
	return s.db.GetDocument(ctx, doc.ID)
}

// MarkPaid records the payment of an unpaid document.
func (s *Service) MarkPaid(ctx context.Context, id int64, in PaymentInput, actor string) (*store.Document, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	if in.PaymentDate.IsZero() {
		return nil, lifecycle.Invalid("payment_date", "required")
	}
	var number string
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		d, err := q.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		if d.PaymentStatus == store.PaymentPaid {
			return lifecycle.ConflictError("document %s is already paid", d.Number)
		}
		number = d.Number
		return q.MarkDocumentPaid(ctx, id, in.PaymentMethod, in.PaymentDate)
	})
	if err != nil {
		logError("mark paid", err)
		return nil, err
	}
	s.emitter.EmitDocumentPaid(id, number, in.PaymentMethod, actor)
	return s.db.GetDocument(ctx, id)
}

func (s *Service) GetDocument(ctx context.Context, id int64) (*store.Document, error) {
	return s.db.GetDocument(ctx, id)
}

func (s *Service) ListDocuments(ctx context.Context, f store.DocumentFilter) ([]*store.Document, error) {
	return s.db.ListDocuments(ctx, f)
}

// DocumentReport is the billing summary by type and payment status.
type DocumentReport struct {
	Totals        []*store.DocumentTotal `json:"totals"`
	Count         int                    `json:"count"`
	TotalAmount   decimal.Decimal        `json:"total_amount"`
	PaidAmount    decimal.Decimal        `json:"paid_amount"`
	PendingAmount decimal.Decimal        `json:"pending_amount"`
}

func (s *Service) DocumentReport(ctx context.Context) (*DocumentReport, error) {
	totals, err := s.db.DocumentReport(ctx)
	if err != nil {
		return nil, err
	}
	r := &DocumentReport{Totals: totals}
	for _, t := range totals {
		r.Count += t.Count
		r.TotalAmount = r.TotalAmount.Add(t.Amount)
		if t.PaymentStatus == store.PaymentPaid {
			r.PaidAmount = r.PaidAmount.Add(t.Amount)
		} else {
			r.PendingAmount = r.PendingAmount.Add(t.Amount)
		}
	}
	return r, nil
}
