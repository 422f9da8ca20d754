package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gasflow/lifecycle"
	"gasflow/store"
)

type DepositInput struct {
	CustomerID      int64            `json:"customer_id" validate:"required,gt=0"`
	ProductID       int64            `json:"product_id" validate:"required,gt=0"`
	Paid            bool             `json:"paid"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	DepositDate     time.Time        `json:"deposit_date"`
	PaymentMethod   string           `json:"payment_method" validate:"omitempty,oneof=cash card transfer check"`
	OrderID         *int64           `json:"order_id,omitempty"`
	EmployeeID      *int64           `json:"employee_id,omitempty"`
	Comments        string           `json:"comments" validate:"max=2000"`
	GenerateReceipt bool             `json:"generate_receipt"`
}

// SetRate sets the deposit amount charged for a product.
func (s *Service) SetRate(ctx context.Context, productID int64, amount decimal.Decimal) (*store.DepositRate, error) {
	if amount.IsNegative() {
		return nil, lifecycle.Invalid("amount", "min")
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetProduct(ctx, productID); err != nil {
			if store.IsNotFound(err) {
				return lifecycle.Invalid("product_id", "unknown product")
			}
			return err
		}
		return q.SetDepositRate(ctx, productID, amount)
	})
	if err != nil {
		logError("set rate", err)
		return nil, err
	}
	return s.db.GetDepositRate(ctx, productID)
}

func (s *Service) Rates(ctx context.Context) ([]*store.DepositRate, error) {
	return s.db.ListDepositRates(ctx)
}

// CreateDeposit records a deposit. Without an explicit amount the product's
// deposit rate applies. A paid deposit needs a payment method, and gets a
// deposit receipt when one is requested.
func (s *Service) CreateDeposit(ctx context.Context, in DepositInput, actor string) (*store.CustomerDeposit, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	if in.Paid && in.PaymentMethod == "" {
		return nil, lifecycle.Invalid("payment_method", "required when paid")
	}
	if in.Amount != nil && in.Amount.IsNegative() {
		return nil, lifecycle.Invalid("amount", "min")
	}
	if in.DepositDate.IsZero() {
		in.DepositDate = s.now()
	}
	d := &store.CustomerDeposit{
		CustomerID:    in.CustomerID,
		ProductID:     in.ProductID,
		OrderID:       in.OrderID,
		EmployeeID:    in.EmployeeID,
		Paid:          in.Paid,
		PaymentMethod: in.PaymentMethod,
		DepositDate:   in.DepositDate,
		Status:        store.DepositActive,
		Comments:      in.Comments,
	}
	var receipt *store.Document
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := s.checkDepositRefs(ctx, q, in); err != nil {
			return err
		}
		if in.Amount != nil {
			d.Amount = *in.Amount
		} else {
			rate, err := q.GetDepositRate(ctx, in.ProductID)
			if store.IsNotFound(err) {
				return lifecycle.Invalid("amount", "required: no deposit rate for this product")
			}
			if err != nil {
				return err
			}
			d.Amount = rate.Amount
		}
		if err := q.CreateDeposit(ctx, d); err != nil {
			return err
		}
		if !in.GenerateReceipt || !in.Paid {
			return nil
		}
		now := s.now()
		receipt = &store.Document{
			Number:        store.NewNumber("DEP", now),
			DocType:       store.DocDepositReceipt,
			DocDate:       now,
			DepositID:     &d.ID,
			OrderID:       in.OrderID,
			CustomerID:    in.CustomerID,
			TotalAmount:   d.Amount,
			PaymentStatus: store.PaymentPaid,
			PaymentDate:   &in.DepositDate,
			PaymentMethod: in.PaymentMethod,
		}
		return q.CreateDocument(ctx, receipt)
	})
	if err != nil {
		logError("create deposit", err)
		return nil, err
	}
	s.emitter.EmitDepositCreated(d.ID, d.CustomerID, d.Amount.StringFixed(2), d.Paid, actor)
	if receipt != nil {
		s.emitter.EmitDocumentCreated(receipt.ID, receipt.Number, receipt.DocType, receipt.TotalAmount.StringFixed(2), actor)
	}
	return s.db.GetDeposit(ctx, d.ID)
}

func (s *Service) checkDepositRefs(ctx context.Context, q *store.Queries, in DepositInput) error {
	if _, err := q.GetCustomer(ctx, in.CustomerID); store.IsNotFound(err) {
		return lifecycle.Invalid("customer_id", "unknown customer")
	} else if err != nil {
		return err
	}
	if _, err := q.GetProduct(ctx, in.ProductID); store.IsNotFound(err) {
		return lifecycle.Invalid("product_id", "unknown product")
	} else if err != nil {
		return err
	}
	if in.OrderID != nil {
		o, err := q.GetOrder(ctx, *in.OrderID)
		if store.IsNotFound(err) || (err == nil && o.CustomerID != in.CustomerID) {
			return lifecycle.Invalid("order_id", "not an order of this customer")
		}
		if err != nil {
			return err
		}
	}
	if in.EmployeeID != nil {
		if _, err := q.GetEmployee(ctx, *in.EmployeeID); store.IsNotFound(err) {
			return lifecycle.Invalid("employee_id", "unknown employee")
		} else if err != nil {
			return err
		}
	}
	return nil
}

// ReturnDeposit refunds a paid, active deposit: it issues a return receipt
// for the negated amount and appends a dated note to the deposit comments.
func (s *Service) ReturnDeposit(ctx context.Context, id int64, comments, actor string) (*store.CustomerDeposit, *store.Document, error) {
	var d *store.CustomerDeposit
	var receipt *store.Document
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		var err error
		d, err = q.GetDeposit(ctx, id)
		if err != nil {
			return err
		}
		if !d.Paid {
			return lifecycle.ConflictError("deposit %d has not been paid", id)
		}
		if d.Status != store.DepositActive {
			return lifecycle.ConflictError("deposit %d is already %s", id, d.Status)
		}
		now := s.now()
		receipt = &store.Document{
			Number:        store.NewNumber("RET", now),
			DocType:       store.DocReturnReceipt,
			DocDate:       now,
			DepositID:     &d.ID,
			CustomerID:    d.CustomerID,
			TotalAmount:   d.Amount.Neg(),
			PaymentStatus: store.PaymentPaid,
			PaymentDate:   &now,
			PaymentMethod: d.PaymentMethod,
			Comments:      comments,
		}
		if err := q.CreateDocument(ctx, receipt); err != nil {
			return err
		}
		return q.SetDepositStatus(ctx, id, store.DepositReturned, returnNote(d.Comments, comments, now))
	})
	if err != nil {
		logError("return deposit", err)
		return nil, nil, err
	}
	s.emitter.EmitDepositReturned(d.ID, d.CustomerID, d.Amount.StringFixed(2), actor)
	s.emitter.EmitDocumentCreated(receipt.ID, receipt.Number, receipt.DocType, receipt.TotalAmount.StringFixed(2), actor)
	d, err = s.db.GetDeposit(ctx, id)
	return d, receipt, err
}

func returnNote(existing, comments string, at time.Time) string {
	note := fmt.Sprintf("[%s] RETURNED: %s", at.Format("2006-01-02 15:04:05"), comments)
	note = strings.TrimSpace(note)
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func (s *Service) GetDeposit(ctx context.Context, id int64) (*store.CustomerDeposit, error) {
	return s.db.GetDeposit(ctx, id)
}

func (s *Service) ListDeposits(ctx context.Context, f store.DepositFilter) ([]*store.CustomerDeposit, error) {
	return s.db.ListDeposits(ctx, f)
}

// DepositReceipt returns the receipt issued for a deposit.
func (s *Service) DepositReceipt(ctx context.Context, depositID int64) (*store.Document, error) {
	return s.db.GetDepositDocument(ctx, depositID, store.DocDepositReceipt)
}

func (s *Service) DepositReport(ctx context.Context) (*store.DepositReport, error) {
	return s.db.DepositReport(ctx)
}
