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
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderInDelivery = "in_delivery"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

type Order struct {
	ID           int64           `json:"id"`
	OrderNumber  string          `json:"order_number"`
	CustomerID   int64           `json:"customer_id"`
	AddressID    *int64          `json:"address_id,omitempty"`
	OrderDate    time.Time       `json:"order_date"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Comments     string          `json:"comments"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	CustomerName string         `json:"customer_name"`
	Details      []*OrderDetail `json:"details,omitempty"`
}

type OrderDetail struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`

	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

// LineTotal is quantity times unit price.
func (d *OrderDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

const orderSelectCols = `o.id, o.order_number, o.customer_id, o.address_id, o.order_date, o.delivery_date, o.status,
	o.total_amount, o.comments, o.created_at, o.updated_at, c.name`

const orderFrom = `orders o JOIN customers c ON c.id = o.customer_id`

func scanOrder(row interface{ Scan(...any) error }) (*Order, error) {
	var o Order
	var addressID sql.NullInt64
	var orderDate, deliveryDate, createdAt, updatedAt any
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &addressID, &orderDate, &deliveryDate, &o.Status,
		&o.TotalAmount, &o.Comments, &createdAt, &updatedAt, &o.CustomerName)
	if err != nil {
		return nil, err
	}
	o.AddressID = idPtr(addressID)
	o.OrderDate = parseTime(orderDate)
	o.DeliveryDate = parseTimePtr(deliveryDate)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

func scanOrders(rows *sql.Rows) ([]*Order, error) {
	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) CreateOrder(ctx context.Context, o *Order) error {
	id, err := q.insert(ctx, `INSERT INTO orders (order_number, customer_id, address_id, order_date, delivery_date, status, total_amount, comments) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.OrderNumber, o.CustomerID, nullID(o.AddressID), q.date(o.OrderDate), q.datePtr(o.DeliveryDate), o.Status, o.TotalAmount, o.Comments)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	o.ID = id
	return nil
}

func (q *Queries) CreateOrderDetail(ctx context.Context, d *OrderDetail) error {
	id, err := q.insert(ctx, `INSERT INTO order_details (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)`,
		d.OrderID, d.ProductID, d.Quantity, d.UnitPrice)
	if err != nil {
		return fmt.Errorf("create order detail: %w", err)
	}
	d.ID = id
	return nil
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	_, err := q.exec(ctx, `UPDATE orders SET status=?, updated_at=datetime('now') WHERE id=?`, status, id)
	return err
}

// SetOrderDelivery sets status and delivery date together; a nil date clears it.
func (q *Queries) SetOrderDelivery(ctx context.Context, id int64, status string, deliveryDate *time.Time) error {
	_, err := q.exec(ctx, `UPDATE orders SET status=?, delivery_date=?, updated_at=datetime('now') WHERE id=?`,
		status, q.datePtr(deliveryDate), id)
	return err
}

func (q *Queries) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE o.id=?`, orderSelectCols, orderFrom), id)
	return scanOrder(row)
}

func (q *Queries) GetOrderWithDetails(ctx context.Context, id int64) (*Order, error) {
	o, err := q.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Details, err = q.ListOrderDetails(ctx, id)
	return o, err
}

func (q *Queries) ListOrderDetails(ctx context.Context, orderID int64) ([]*OrderDetail, error) {
	rows, err := q.query(ctx, `SELECT d.id, d.order_id, d.product_id, d.quantity, d.unit_price, p.code, p.label
		FROM order_details d JOIN products p ON p.id = d.product_id WHERE d.order_id=? ORDER BY d.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*OrderDetail
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(&d.ID, &d.OrderID, &d.ProductID, &d.Quantity, &d.UnitPrice, &d.ProductCode, &d.ProductLabel); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

type OrderFilter struct {
	Status     string
	CustomerID int64
	From       *time.Time
	To         *time.Time
	Limit      int
}

func (q *Queries) ListOrders(ctx context.Context, f OrderFilter) ([]*Order, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "o.status=?")
		args = append(args, f.Status)
	}
	if f.CustomerID > 0 {
		where = append(where, "o.customer_id=?")
		args = append(args, f.CustomerID)
	}
	if f.From != nil {
		where = append(where, "o.order_date>=?")
		args = append(args, q.date(*f.From))
	}
	if f.To != nil {
		where = append(where, "o.order_date<=?")
		args = append(args, q.date(*f.To))
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, orderSelectCols, orderFrom)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.order_date DESC, o.id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListDeliverableOrders returns orders a route can pick up: confirmed without
// a delivery date, or already in delivery on or after the given day.
func (q *Queries) ListDeliverableOrders(ctx context.Context, today time.Time) ([]*Order, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE (o.status=? AND o.delivery_date IS NULL) OR (o.status=? AND o.delivery_date>=?)
		ORDER BY o.order_date, o.id`, orderSelectCols, orderFrom),
		OrderConfirmed, OrderInDelivery, q.date(today))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

type OrderStatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (q *Queries) OrderReport(ctx context.Context) ([]*OrderStatusTotal, error) {
	rows, err := q.query(ctx, `SELECT status, COUNT(*), SUM(total_amount) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*OrderStatusTotal
	for rows.Next() {
		var t OrderStatusTotal
		var amount decimal.NullDecimal
		if err := rows.Scan(&t.Status, &t.Count, &amount); err != nil {
			return nil, err
		}
		t.Amount = amount.Decimal
		out = append(out, &t)
	}
	return out, rows.Err()
}

// MonthlyProductSales sums ordered quantities per product and calendar month
// for non-cancelled orders dated on or after since. Months are "YYYY-MM".
func (q *Queries) MonthlyProductSales(ctx context.Context, since time.Time) (map[int64]map[string]int, error) {
	month := "substr(o.order_date, 1, 7)"
	if q.driver == "postgres" {
		month = "to_char(o.order_date, 'YYYY-MM')"
	}
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT d.product_id, %s AS month, SUM(d.quantity)
		FROM order_details d JOIN orders o ON o.id = d.order_id
		WHERE o.status<>? AND o.order_date>=?
		GROUP BY d.product_id, month`, month), OrderCancelled, q.date(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]map[string]int)
	for rows.Next() {
		var productID int64
		var m string
		var qty int
		if err := rows.Scan(&productID, &m, &qty); err != nil {
			return nil, err
		}
		if out[productID] == nil {
			out[productID] = make(map[string]int)
		}
		out[productID][m] = qty
	}
	return out, rows.Err()
}

// ProductSales is one product's non-cancelled sales over a date range.
type ProductSales struct {
	ProductID    int64           `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductLabel string          `json:"product_label"`
	Quantity     int             `json:"quantity"`
	Amount       decimal.Decimal `json:"amount"`
}

// SalesByProduct totals ordered quantity and amount per product for
// non-cancelled orders dated from..to inclusive, best sellers first.
func (q *Queries) SalesByProduct(ctx context.Context, from, to time.Time) ([]*ProductSales, error) {
	rows, err := q.query(ctx, `SELECT p.id, p.code, p.label, SUM(d.quantity), SUM(d.quantity * d.unit_price)
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		JOIN products p ON p.id = d.product_id
		WHERE o.status<>? AND o.order_date>=? AND o.order_date<=?
		GROUP BY p.id, p.code, p.label
		ORDER BY SUM(d.quantity) DESC, p.code`, OrderCancelled, q.date(from), q.date(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProductSales
	for rows.Next() {
		var s ProductSales
		var amount decimal.NullDecimal
		if err := rows.Scan(&s.ProductID, &s.ProductCode, &s.ProductLabel, &s.Quantity, &amount); err != nil {
			return nil, err
		}
		s.Amount = amount.Decimal.Round(2)
		out = append(out, &s)
	}
	return out, rows.Err()
}

// SalesPoint is the sales total of one day ("YYYY-MM-DD") or month ("YYYY-MM").
type SalesPoint struct {
	Period   string          `json:"period"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// SalesSeries groups non-cancelled sales dated from..to inclusive by day,
// or by month when monthly is set. A zero productID covers every product.
// Periods without sales are absent.
func (q *Queries) SalesSeries(ctx context.Context, productID int64, from, to time.Time, monthly bool) ([]*SalesPoint, error) {
	n := 10
	if monthly {
		n = 7
	}
	period := fmt.Sprintf("substr(o.order_date, 1, %d)", n)
	if q.driver == "postgres" {
		period = "to_char(o.order_date, 'YYYY-MM-DD')"
		if monthly {
			period = "to_char(o.order_date, 'YYYY-MM')"
		}
	}
	query := fmt.Sprintf(`SELECT %s AS period, SUM(d.quantity), SUM(d.quantity * d.unit_price)
		FROM order_details d JOIN orders o ON o.id = d.order_id
		WHERE o.status<>? AND o.order_date>=? AND o.order_date<=?`, period)
	args := []any{OrderCancelled, q.date(from), q.date(to)}
	if productID > 0 {
		query += " AND d.product_id=?"
		args = append(args, productID)
	}
	query += " GROUP BY period ORDER BY period"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*SalesPoint
	for rows.Next() {
		var p SalesPoint
		var amount decimal.NullDecimal
		if err := rows.Scan(&p.Period, &p.Quantity, &amount); err != nil {
			return nil, err
		}
		p.Amount = amount.Decimal.Round(2)
		out = append(out, &p)
	}
	return out, rows.Err()
}

// ProductSaleLine is one order line of a product, with its customer.
type ProductSaleLine struct {
	OrderID           int64           `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	OrderDate         time.Time       `json:"order_date"`
	Status            string          `json:"status"`
	CustomerName      string          `json:"customer_name"`
	CustomerFirstName string          `json:"customer_first_name"`
	Quantity          int             `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Amount            decimal.Decimal `json:"amount"`
}

// ProductSaleLines lists the non-cancelled order lines of a product dated
// from..to inclusive, newest first.
func (q *Queries) ProductSaleLines(ctx context.Context, productID int64, from, to time.Time) ([]*ProductSaleLine, error) {
	rows, err := q.query(ctx, `SELECT o.id, o.order_number, o.order_date, o.status, c.name, c.first_name, d.quantity, d.unit_price
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		JOIN customers c ON c.id = o.customer_id
		WHERE d.product_id=? AND o.status<>? AND o.order_date>=? AND o.order_date<=?
		ORDER BY o.order_date DESC, o.id DESC, d.id`, productID, OrderCancelled, q.date(from), q.date(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProductSaleLine
	for rows.Next() {
		var l ProductSaleLine
		var orderDate any
		if err := rows.Scan(&l.OrderID, &l.OrderNumber, &orderDate, &l.Status, &l.CustomerName, &l.CustomerFirstName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		l.OrderDate = parseTime(orderDate)
		l.Amount = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
		out = append(out, &l)
	}
	return out, rows.Err()
}
