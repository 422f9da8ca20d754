// Package orders takes customer orders from entry to delivery.
package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

type DetailInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type OrderInput struct {
	CustomerID   int64         `json:"customer_id" validate:"required,gt=0"`
	AddressID    *int64        `json:"address_id,omitempty"`
	OrderDate    time.Time     `json:"order_date"`
	DeliveryDate *time.Time    `json:"delivery_date,omitempty"`
	Status       string        `json:"status" validate:"omitempty,oneof=pending confirmed in_delivery delivered cancelled"`
	Comments     string        `json:"comments" validate:"max=2000"`
	Details      []DetailInput `json:"details" validate:"required,min=1,dive"`
}

// Manager handles the order lifecycle.
type Manager struct {
	db       *store.DB
	emitter  EventEmitter
	validate *validator.Validate
	now      func() time.Time
}

// NewManager creates an order manager.
func NewManager(db *store.DB, emitter EventEmitter) *Manager {
	return &Manager{
		db:       db,
		emitter:  emitter,
		validate: lifecycle.NewValidator(),
		now:      time.Now,
	}
}

// CreateOrder writes the order and its lines in one transaction. A line
// without a unit price takes the product's list price.
func (m *Manager) CreateOrder(ctx context.Context, in OrderInput, actor string) (*store.Order, error) {
	if err := lifecycle.ValidationFromValidator(m.validate.Struct(&in)); err != nil {
		return nil, err
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = m.now()
	}
	if in.Status == "" {
		in.Status = store.OrderPending
	}
	o := &store.Order{
		OrderNumber:  store.NewNumber("CMD", in.OrderDate),
		CustomerID:   in.CustomerID,
		AddressID:    in.AddressID,
		OrderDate:    in.OrderDate,
		DeliveryDate: in.DeliveryDate,
		Status:       in.Status,
		Comments:     in.Comments,
	}
	err := m.db.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetCustomer(ctx, in.CustomerID); err != nil {
			if store.IsNotFound(err) {
				return lifecycle.Invalid("customer_id", "unknown customer")
			}
			return err
		}
		if in.AddressID != nil {
			a, err := q.GetCustomerAddress(ctx, *in.AddressID)
			if store.IsNotFound(err) || (err == nil && a.CustomerID != in.CustomerID) {
				return lifecycle.Invalid("address_id", "not an address of this customer")
			}
			if err != nil {
				return err
			}
		}
		details := make([]*store.OrderDetail, 0, len(in.Details))
		total := decimal.Zero
		for i, d := range in.Details {
			p, err := q.GetProduct(ctx, d.ProductID)
			if store.IsNotFound(err) {
				return lifecycle.Invalid(fmt.Sprintf("details[%d].product_id", i), "unknown product")
			}
			if err != nil {
				return err
			}
			price := p.Price
			if d.UnitPrice != nil {
				if d.UnitPrice.IsNegative() {
					return lifecycle.Invalid(fmt.Sprintf("details[%d].unit_price", i), "min")
				}
				price = *d.UnitPrice
			}
			od := &store.OrderDetail{ProductID: p.ID, Quantity: d.Quantity, UnitPrice: price}
			total = total.Add(od.LineTotal())
			details = append(details, od)
		}
		o.TotalAmount = total
		if err := q.CreateOrder(ctx, o); err != nil {
			return err
		}
		for _, od := range details {
			od.OrderID = o.ID
			if err := q.CreateOrderDetail(ctx, od); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logError("create order", err)
		return nil, err
	}
	m.emitter.EmitOrderCreated(o.ID, o.OrderNumber, o.CustomerID, o.TotalAmount.StringFixed(2), actor)
	return m.db.GetOrderWithDetails(ctx, o.ID)
}

// TransitionOrder moves an order to a new status. Going back to confirmed
// clears the delivery date.
func (m *Manager) TransitionOrder(ctx context.Context, orderID int64, newStatus, actor string) (*store.Order, error) {
	var oldStatus, number string
	err := m.db.WithTx(ctx, func(q *store.Queries) error {
		o, err := q.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		oldStatus, number = o.Status, o.OrderNumber
		if o.Status == newStatus {
			return nil
		}
		if IsTerminal(o.Status) {
			return lifecycle.ConflictError("order %s is already %s", o.OrderNumber, o.Status)
		}
		if !IsValidTransition(o.Status, newStatus) {
			return lifecycle.ConflictError("order %s cannot go from %s to %s", o.OrderNumber, o.Status, newStatus)
		}
		date := o.DeliveryDate
		if newStatus == store.OrderConfirmed || newStatus == store.OrderPending {
			date = nil
		}
		return q.SetOrderDelivery(ctx, orderID, newStatus, date)
	})
	if err != nil {
		logError("transition order", err)
		return nil, err
	}
	if oldStatus != newStatus {
		m.emitter.EmitOrderStatusChanged(orderID, number, oldStatus, newStatus, actor)
	}
	return m.db.GetOrderWithDetails(ctx, orderID)
}

// CancelOrder cancels a non-terminal order.
func (m *Manager) CancelOrder(ctx context.Context, orderID int64, actor string) (*store.Order, error) {
	return m.TransitionOrder(ctx, orderID, store.OrderCancelled, actor)
}

func (m *Manager) GetOrder(ctx context.Context, id int64) (*store.Order, error) {
	return m.db.GetOrderWithDetails(ctx, id)
}

func (m *Manager) ListOrders(ctx context.Context, f store.OrderFilter) ([]*store.Order, error) {
	return m.db.ListOrders(ctx, f)
}

// Report is the per-status breakdown of all orders.
type Report struct {
	Totals      []*store.OrderStatusTotal `json:"totals"`
	OrderCount  int                       `json:"order_count"`
	TotalAmount decimal.Decimal           `json:"total_amount"`
}

func (m *Manager) Report(ctx context.Context) (*Report, error) {
	totals, err := m.db.OrderReport(ctx)
	if err != nil {
		return nil, err
	}
	r := &Report{Totals: totals}
	for _, t := range totals {
		r.OrderCount += t.Count
		if t.Status != store.OrderCancelled {
			r.TotalAmount = r.TotalAmount.Add(t.Amount)
		}
	}
	return r, nil
}

func logError(op string, err error) {
	if lifecycle.IsConflict(err) || store.IsNotFound(err) {
		return
	}
	if _, ok := lifecycle.AsValidation(err); ok {
		return
	}
	log.WithError(err).Errorf("orders: %s", op)
}
