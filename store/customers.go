package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Customer struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	FirstName string             `json:"first_name"`
	Phone     string             `json:"phone"`
	Email     string             `json:"email"`
	CreatedAt time.Time          `json:"created_at"`
	Addresses []*CustomerAddress `json:"addresses,omitempty"`
}

type CustomerAddress struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

func (c *Customer) FullName() string {
	if c.FirstName == "" {
		return c.Name
	}
	return c.FirstName + " " + c.Name
}

const customerSelectCols = `id, name, first_name, phone, email, created_at`

func scanCustomer(row interface{ Scan(...any) error }) (*Customer, error) {
	var c Customer
	var createdAt any
	if err := row.Scan(&c.ID, &c.Name, &c.FirstName, &c.Phone, &c.Email, &createdAt); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func scanCustomers(rows *sql.Rows) ([]*Customer, error) {
	var customers []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (q *Queries) CreateCustomer(ctx context.Context, c *Customer) error {
	id, err := q.insert(ctx, `INSERT INTO customers (name, first_name, phone, email) VALUES (?, ?, ?, ?)`,
		c.Name, c.FirstName, c.Phone, c.Email)
	if err != nil {
		return fmt.Errorf("create customer: %w", err)
	}
	c.ID = id
	return nil
}

func (q *Queries) UpdateCustomer(ctx context.Context, c *Customer) error {
	_, err := q.exec(ctx, `UPDATE customers SET name=?, first_name=?, phone=?, email=? WHERE id=?`,
		c.Name, c.FirstName, c.Phone, c.Email, c.ID)
	return err
}

func (q *Queries) DeleteCustomer(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM customers WHERE id=?`, id)
	return err
}

func (q *Queries) GetCustomer(ctx context.Context, id int64) (*Customer, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM customers WHERE id=?`, customerSelectCols), id)
	return scanCustomer(row)
}

// ListCustomers returns customers whose name, first name or email contain search.
func (q *Queries) ListCustomers(ctx context.Context, search string) ([]*Customer, error) {
	like := "%" + search + "%"
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM customers
		WHERE ? = '' OR LOWER(name) LIKE LOWER(?) OR LOWER(first_name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)
		ORDER BY name, first_name, id`, customerSelectCols), search, like, like, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCustomers(rows)
}

func (q *Queries) CountCustomerOrders(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id=?`, customerID).Scan(&n)
	return n, err
}

func (q *Queries) AddCustomerAddress(ctx context.Context, a *CustomerAddress) error {
	if a.IsDefault {
		if _, err := q.exec(ctx, `UPDATE customer_addresses SET is_default=? WHERE customer_id=?`, q.boolArg(false), a.CustomerID); err != nil {
			return fmt.Errorf("clear default address: %w", err)
		}
	}
	id, err := q.insert(ctx, `INSERT INTO customer_addresses (customer_id, label, street, city, postal_code, is_default) VALUES (?, ?, ?, ?, ?, ?)`,
		a.CustomerID, a.Label, a.Street, a.City, a.PostalCode, q.boolArg(a.IsDefault))
	if err != nil {
		return fmt.Errorf("create customer address: %w", err)
	}
	a.ID = id
	return nil
}

func (q *Queries) GetCustomerAddress(ctx context.Context, id int64) (*CustomerAddress, error) {
	var a CustomerAddress
	var isDefault any
	err := q.queryRow(ctx, `SELECT id, customer_id, label, street, city, postal_code, is_default FROM customer_addresses WHERE id=?`, id).
		Scan(&a.ID, &a.CustomerID, &a.Label, &a.Street, &a.City, &a.PostalCode, &isDefault)
	if err != nil {
		return nil, err
	}
	a.IsDefault = parseBool(isDefault)
	return &a, nil
}

func (q *Queries) ListCustomerAddresses(ctx context.Context, customerID int64) ([]*CustomerAddress, error) {
	rows, err := q.query(ctx, `SELECT id, customer_id, label, street, city, postal_code, is_default FROM customer_addresses WHERE customer_id=? ORDER BY is_default DESC, id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var addrs []*CustomerAddress
	for rows.Next() {
		var a CustomerAddress
		var isDefault any
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Label, &a.Street, &a.City, &a.PostalCode, &isDefault); err != nil {
			return nil, err
		}
		a.IsDefault = parseBool(isDefault)
		addrs = append(addrs, &a)
	}
	return addrs, rows.Err()
}
