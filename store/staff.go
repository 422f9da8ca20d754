package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Employee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	FirstName string    `json:"first_name"`
	Email     string    `json:"email"`
	DepotID   *int64    `json:"depot_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Driver struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

type Vehicle struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Plate     string    `json:"plate"`
	Capacity  int       `json:"capacity"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *Queries) CreateEmployee(ctx context.Context, e *Employee) error {
	id, err := q.insert(ctx, `INSERT INTO employees (name, first_name, email, depot_id) VALUES (?, ?, ?, ?)`,
		e.Name, e.FirstName, e.Email, nullID(e.DepotID))
	if err != nil {
		return fmt.Errorf("create employee: %w", err)
	}
	e.ID = id
	return nil
}

func (q *Queries) GetEmployee(ctx context.Context, id int64) (*Employee, error) {
	var e Employee
	var depotID sql.NullInt64
	var createdAt any
	err := q.queryRow(ctx, `SELECT id, name, first_name, email, depot_id, created_at FROM employees WHERE id=?`, id).
		Scan(&e.ID, &e.Name, &e.FirstName, &e.Email, &depotID, &createdAt)
	if err != nil {
		return nil, err
	}
	e.DepotID = idPtr(depotID)
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func (q *Queries) ListEmployees(ctx context.Context) ([]*Employee, error) {
	rows, err := q.query(ctx, `SELECT id, name, first_name, email, depot_id, created_at FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Employee
	for rows.Next() {
		var e Employee
		var depotID sql.NullInt64
		var createdAt any
		if err := rows.Scan(&e.ID, &e.Name, &e.FirstName, &e.Email, &depotID, &createdAt); err != nil {
			return nil, err
		}
		e.DepotID = idPtr(depotID)
		e.CreatedAt = parseTime(createdAt)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteEmployee(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM employees WHERE id=?`, id)
	return err
}

func scanDriver(row interface{ Scan(...any) error }) (*Driver, error) {
	var d Driver
	var active, createdAt any
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.LicenseNumber, &active, &createdAt); err != nil {
		return nil, err
	}
	d.Active = parseBool(active)
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func (q *Queries) CreateDriver(ctx context.Context, d *Driver) error {
	id, err := q.insert(ctx, `INSERT INTO drivers (name, phone, license_number, active) VALUES (?, ?, ?, ?)`,
		d.Name, d.Phone, d.LicenseNumber, q.boolArg(d.Active))
	if err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	d.ID = id
	return nil
}

func (q *Queries) GetDriver(ctx context.Context, id int64) (*Driver, error) {
	row := q.queryRow(ctx, `SELECT id, name, phone, license_number, active, created_at FROM drivers WHERE id=?`, id)
	return scanDriver(row)
}

func (q *Queries) ListDrivers(ctx context.Context) ([]*Driver, error) {
	rows, err := q.query(ctx, `SELECT id, name, phone, license_number, active, created_at FROM drivers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteDriver(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM drivers WHERE id=?`, id)
	return err
}

func scanVehicle(row interface{ Scan(...any) error }) (*Vehicle, error) {
	var v Vehicle
	var createdAt any
	if err := row.Scan(&v.ID, &v.Name, &v.Plate, &v.Capacity, &createdAt); err != nil {
		return nil, err
	}
	v.CreatedAt = parseTime(createdAt)
	return &v, nil
}

func (q *Queries) CreateVehicle(ctx context.Context, v *Vehicle) error {
	id, err := q.insert(ctx, `INSERT INTO vehicles (name, plate, capacity) VALUES (?, ?, ?)`, v.Name, v.Plate, v.Capacity)
	if err != nil {
		return fmt.Errorf("create vehicle: %w", err)
	}
	v.ID = id
	return nil
}

func (q *Queries) GetVehicle(ctx context.Context, id int64) (*Vehicle, error) {
	row := q.queryRow(ctx, `SELECT id, name, plate, capacity, created_at FROM vehicles WHERE id=?`, id)
	return scanVehicle(row)
}

func (q *Queries) ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	rows, err := q.query(ctx, `SELECT id, name, plate, capacity, created_at FROM vehicles ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteVehicle(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM vehicles WHERE id=?`, id)
	return err
}
