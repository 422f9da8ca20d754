package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DepositActive   = "active"
	DepositReturned = "returned"
)

type DepositRate struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	Amount       decimal.Decimal `json:"amount"`
	ProductCode  string          `json:"product_code"`
	ProductLabel string          `json:"product_label"`
}

type CustomerDeposit struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	ProductID     int64           `json:"product_id"`
	OrderID       *int64          `json:"order_id,omitempty"`
	EmployeeID    *int64          `json:"employee_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Paid          bool            `json:"paid"`
	PaymentMethod string          `json:"payment_method"`
	DepositDate   time.Time       `json:"deposit_date"`
	Status        string          `json:"status"`
	Comments      string          `json:"comments"`
	CreatedAt     time.Time       `json:"created_at"`

	CustomerName string `json:"customer_name"`
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

func (q *Queries) SetDepositRate(ctx context.Context, productID int64, amount decimal.Decimal) error {
	_, err := q.exec(ctx, `INSERT INTO deposit_rates (product_id, amount) VALUES (?, ?)
		ON CONFLICT (product_id) DO UPDATE SET amount=excluded.amount`, productID, amount)
	return err
}

func (q *Queries) GetDepositRate(ctx context.Context, productID int64) (*DepositRate, error) {
	var r DepositRate
	err := q.queryRow(ctx, `SELECT r.id, r.product_id, r.amount, p.code, p.label FROM deposit_rates r JOIN products p ON p.id = r.product_id WHERE r.product_id=?`, productID).
		Scan(&r.ID, &r.ProductID, &r.Amount, &r.ProductCode, &r.ProductLabel)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (q *Queries) ListDepositRates(ctx context.Context) ([]*DepositRate, error) {
	rows, err := q.query(ctx, `SELECT r.id, r.product_id, r.amount, p.code, p.label FROM deposit_rates r JOIN products p ON p.id = r.product_id ORDER BY p.label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*DepositRate
	for rows.Next() {
		var r DepositRate
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Amount, &r.ProductCode, &r.ProductLabel); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

const depositSelectCols = `cd.id, cd.customer_id, cd.product_id, cd.order_id, cd.employee_id, cd.amount, cd.paid, cd.payment_method,
	cd.deposit_date, cd.status, cd.comments, cd.created_at, c.name, p.code, p.label`

const depositFrom = `customer_deposits cd JOIN customers c ON c.id = cd.customer_id JOIN products p ON p.id = cd.product_id`

func scanDeposit(row interface{ Scan(...any) error }) (*CustomerDeposit, error) {
	var d CustomerDeposit
	var orderID, employeeID sql.NullInt64
	var paid, depositDate, createdAt any
	err := row.Scan(&d.ID, &d.CustomerID, &d.ProductID, &orderID, &employeeID, &d.Amount, &paid, &d.PaymentMethod,
		&depositDate, &d.Status, &d.Comments, &createdAt, &d.CustomerName, &d.ProductCode, &d.ProductLabel)
	if err != nil {
		return nil, err
	}
	d.OrderID = idPtr(orderID)
	d.EmployeeID = idPtr(employeeID)
	d.Paid = parseBool(paid)
	d.DepositDate = parseTime(depositDate)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (q *Queries) CreateDeposit(ctx context.Context, d *CustomerDeposit) error {
	if d.Status == "" {
		d.Status = DepositActive
	}
	id, err := q.insert(ctx, `INSERT INTO customer_deposits (customer_id, product_id, order_id, employee_id, amount, paid, payment_method, deposit_date, status, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CustomerID, d.ProductID, nullID(d.OrderID), nullID(d.EmployeeID), d.Amount, q.boolArg(d.Paid), d.PaymentMethod,
		q.date(d.DepositDate), d.Status, d.Comments)
	if err != nil {
		return fmt.Errorf("create deposit: %w", err)
	}
	d.ID = id
	return nil
}

func (q *Queries) SetDepositStatus(ctx context.Context, id int64, status, comments string) error {
	_, err := q.exec(ctx, `UPDATE customer_deposits SET status=?, comments=? WHERE id=?`, status, comments, id)
	return err
}

func (q *Queries) GetDeposit(ctx context.Context, id int64) (*CustomerDeposit, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE cd.id=?`, depositSelectCols, depositFrom), id)
	return scanDeposit(row)
}

type DepositFilter struct {
	CustomerID int64
	Status     string
}

func (q *Queries) ListDeposits(ctx context.Context, f DepositFilter) ([]*CustomerDeposit, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1=1`, depositSelectCols, depositFrom)
	var args []any
	if f.CustomerID > 0 {
		query += " AND cd.customer_id=?"
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		query += " AND cd.status=?"
		args = append(args, f.Status)
	}
	query += " ORDER BY cd.deposit_date DESC, cd.id DESC"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*CustomerDeposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type DepositProductTotal struct {
	ProductID    int64           `json:"product_id"`
	ProductLabel string          `json:"product_label"`
	Count        int             `json:"count"`
	Amount       decimal.Decimal `json:"amount"`
}

type DepositReport struct {
	ActiveCount    int                    `json:"active_count"`
	ActiveAmount   decimal.Decimal        `json:"active_amount"`
	ReturnedCount  int                    `json:"returned_count"`
	ReturnedAmount decimal.Decimal        `json:"returned_amount"`
	ByProduct      []*DepositProductTotal `json:"by_product"`
}

func (q *Queries) DepositReport(ctx context.Context) (*DepositReport, error) {
	var r DepositReport
	var activeAmt, returnedAmt decimal.NullDecimal
	err := q.queryRow(ctx, `SELECT COUNT(*), SUM(amount) FROM customer_deposits WHERE status=? AND paid=?`,
		DepositActive, q.boolArg(true)).Scan(&r.ActiveCount, &activeAmt)
	if err != nil {
		return nil, err
	}
	err = q.queryRow(ctx, `SELECT COUNT(*), SUM(amount) FROM customer_deposits WHERE status=?`, DepositReturned).
		Scan(&r.ReturnedCount, &returnedAmt)
	if err != nil {
		return nil, err
	}
	r.ActiveAmount = activeAmt.Decimal
	r.ReturnedAmount = returnedAmt.Decimal

	rows, err := q.query(ctx, `SELECT p.id, p.label, COUNT(*), SUM(cd.amount) FROM customer_deposits cd JOIN products p ON p.id = cd.product_id
		WHERE cd.status=? AND cd.paid=? GROUP BY p.id, p.label ORDER BY p.label`, DepositActive, q.boolArg(true))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t DepositProductTotal
		var amt decimal.NullDecimal
		if err := rows.Scan(&t.ProductID, &t.ProductLabel, &t.Count, &amt); err != nil {
			return nil, err
		}
		t.Amount = amt.Decimal
		r.ByProduct = append(r.ByProduct, &t)
	}
	return &r, rows.Err()
}
