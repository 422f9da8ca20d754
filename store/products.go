package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const ProductTypeCylinder = "cylinder"

// Instance lifecycle status, written by maintenance transitions.
const (
	InstanceActive      = "active"
	InstanceInactive    = "inactive"
	InstanceMaintenance = "maintenance"
)

// Instance safety state.
const (
	StateActive   = "active"
	StateDamaged  = "damaged"
	StateInRepair = "in_repair"
	StateRetired  = "retired"
)

type Product struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	ProductType  string          `json:"product_type"`
	UnitCode     string          `json:"unit_code"`
	Label        string          `json:"label"`
	Price        decimal.Decimal `json:"price"`
	RealCapacity float64         `json:"real_capacity"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ProductInstance is one serialized physical unit of a product.
// LocationCategory/LocationID cache the derived location; the movement
// ledger stays authoritative.
type ProductInstance struct {
	ID                 int64      `json:"id"`
	ProductID          int64      `json:"product_id"`
	SerialNumber       string     `json:"serial_number"`
	Barcode            string     `json:"barcode"`
	Ownership          string     `json:"ownership"`
	ValveType          string     `json:"valve_type"`
	Manufacturer       string     `json:"manufacturer"`
	ManufactureDate    *time.Time `json:"manufacture_date,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	LastTestDate       *time.Time `json:"last_test_date,omitempty"`
	State              string     `json:"state"`
	Status             string     `json:"status"`
	LocationCategory   string     `json:"location_category"`
	LocationID         *int64     `json:"location_id,omitempty"`
	LastInspectionDate *time.Time `json:"last_inspection_date,omitempty"`
	NextInspectionDate *time.Time `json:"next_inspection_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`

	// Joined from products.
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
	ProductType  string `json:"product_type"`
}

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	var p Product
	var createdAt any
	if err := row.Scan(&p.ID, &p.Code, &p.ProductType, &p.UnitCode, &p.Label, &p.Price, &p.RealCapacity, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

const productSelectCols = `id, code, product_type, unit_code, label, price, real_capacity, created_at`

func (q *Queries) CreateProduct(ctx context.Context, p *Product) error {
	if p.ProductType == "" {
		p.ProductType = ProductTypeCylinder
	}
	id, err := q.insert(ctx, `INSERT INTO products (code, product_type, unit_code, label, price, real_capacity) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Code, p.ProductType, p.UnitCode, p.Label, p.Price, p.RealCapacity)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	return nil
}

func (q *Queries) UpdateProduct(ctx context.Context, p *Product) error {
	_, err := q.exec(ctx, `UPDATE products SET code=?, product_type=?, unit_code=?, label=?, price=?, real_capacity=? WHERE id=?`,
		p.Code, p.ProductType, p.UnitCode, p.Label, p.Price, p.RealCapacity, p.ID)
	return err
}

func (q *Queries) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id=?`, productSelectCols), id)
	return scanProduct(row)
}

func (q *Queries) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE code=?`, productSelectCols), code)
	return scanProduct(row)
}

func (q *Queries) ListProducts(ctx context.Context) ([]*Product, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM products ORDER BY label, id`, productSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const instanceSelectCols = `i.id, i.product_id, i.serial_number, i.barcode, i.ownership, i.valve_type, i.manufacturer,
	i.manufacture_date, i.expiration_date, i.last_test_date, i.state, i.status, i.location_category, i.location_id,
	i.last_inspection_date, i.next_inspection_date, i.created_at, i.updated_at,
	p.code, p.label, p.product_type`

const instanceFrom = `product_instances i JOIN products p ON p.id = i.product_id`

func scanInstance(row interface{ Scan(...any) error }) (*ProductInstance, error) {
	var in ProductInstance
	var locationID sql.NullInt64
	var manufactured, expires, lastTest, lastInspection, nextInspection, createdAt, updatedAt any
	err := row.Scan(&in.ID, &in.ProductID, &in.SerialNumber, &in.Barcode, &in.Ownership, &in.ValveType, &in.Manufacturer,
		&manufactured, &expires, &lastTest, &in.State, &in.Status, &in.LocationCategory, &locationID,
		&lastInspection, &nextInspection, &createdAt, &updatedAt,
		&in.ProductCode, &in.ProductLabel, &in.ProductType)
	if err != nil {
		return nil, err
	}
	in.LocationID = idPtr(locationID)
	in.ManufactureDate = parseTimePtr(manufactured)
	in.ExpirationDate = parseTimePtr(expires)
	in.LastTestDate = parseTimePtr(lastTest)
	in.LastInspectionDate = parseTimePtr(lastInspection)
	in.NextInspectionDate = parseTimePtr(nextInspection)
	in.CreatedAt = parseTime(createdAt)
	in.UpdatedAt = parseTime(updatedAt)
	return &in, nil
}

func scanInstances(rows *sql.Rows) ([]*ProductInstance, error) {
	var out []*ProductInstance
	for rows.Next() {
		in, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (q *Queries) CreateInstance(ctx context.Context, in *ProductInstance) error {
	if in.State == "" {
		in.State = StateActive
	}
	if in.Status == "" {
		in.Status = InstanceActive
	}
	if in.Ownership == "" {
		in.Ownership = "company"
	}
	id, err := q.insert(ctx, `INSERT INTO product_instances (product_id, serial_number, barcode, ownership, valve_type, manufacturer,
		manufacture_date, expiration_date, last_test_date, state, status, next_inspection_date) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ProductID, in.SerialNumber, in.Barcode, in.Ownership, in.ValveType, in.Manufacturer,
		q.datePtr(in.ManufactureDate), q.datePtr(in.ExpirationDate), q.datePtr(in.LastTestDate),
		in.State, in.Status, q.datePtr(in.NextInspectionDate))
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	in.ID = id
	return nil
}

// UpdateInstanceAttributes writes the registration attributes. Status,
// location and inspection dates belong to the lifecycle and are not touched.
func (q *Queries) UpdateInstanceAttributes(ctx context.Context, in *ProductInstance) error {
	_, err := q.exec(ctx, `UPDATE product_instances SET barcode=?, ownership=?, valve_type=?, manufacturer=?,
		manufacture_date=?, expiration_date=?, last_test_date=?, state=?, updated_at=datetime('now') WHERE id=?`,
		in.Barcode, in.Ownership, in.ValveType, in.Manufacturer,
		q.datePtr(in.ManufactureDate), q.datePtr(in.ExpirationDate), q.datePtr(in.LastTestDate), in.State, in.ID)
	return err
}

func (q *Queries) SetInstanceState(ctx context.Context, id int64, state string) error {
	_, err := q.exec(ctx, `UPDATE product_instances SET state=?, updated_at=datetime('now') WHERE id=?`, state, id)
	return err
}

// SetInstanceStatus updates lifecycle status and the cached location together.
func (q *Queries) SetInstanceStatus(ctx context.Context, id int64, status, category string, locationID *int64) error {
	_, err := q.exec(ctx, `UPDATE product_instances SET status=?, location_category=?, location_id=?, updated_at=datetime('now') WHERE id=?`,
		status, category, nullID(locationID), id)
	return err
}

// SetInstanceLocation refreshes only the cached location.
func (q *Queries) SetInstanceLocation(ctx context.Context, id int64, category string, locationID *int64) error {
	_, err := q.exec(ctx, `UPDATE product_instances SET location_category=?, location_id=?, updated_at=datetime('now') WHERE id=?`,
		category, nullID(locationID), id)
	return err
}

func (q *Queries) SetInstanceInspection(ctx context.Context, id int64, last time.Time, next *time.Time) error {
	_, err := q.exec(ctx, `UPDATE product_instances SET last_inspection_date=?, next_inspection_date=?, updated_at=datetime('now') WHERE id=?`,
		q.date(last), q.datePtr(next), id)
	return err
}

func (q *Queries) GetInstance(ctx context.Context, id int64) (*ProductInstance, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE i.id=?`, instanceSelectCols, instanceFrom), id)
	return scanInstance(row)
}

func (q *Queries) GetInstanceBySerial(ctx context.Context, serial string) (*ProductInstance, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE i.serial_number=?`, instanceSelectCols, instanceFrom), serial)
	return scanInstance(row)
}

type InstanceFilter struct {
	ProductID int64
	State     string
	Status    string
	Serial    string
	Category  string
}

func (q *Queries) ListInstances(ctx context.Context, f InstanceFilter) ([]*ProductInstance, error) {
	var where []string
	var args []any
	if f.ProductID > 0 {
		where = append(where, "i.product_id=?")
		args = append(args, f.ProductID)
	}
	if f.State != "" {
		where = append(where, "i.state=?")
		args = append(args, f.State)
	}
	if f.Status != "" {
		where = append(where, "i.status=?")
		args = append(args, f.Status)
	}
	if f.Serial != "" {
		where = append(where, "LOWER(i.serial_number) LIKE LOWER(?)")
		args = append(args, "%"+f.Serial+"%")
	}
	if f.Category != "" {
		where = append(where, "i.location_category=?")
		args = append(args, f.Category)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s`, instanceSelectCols, instanceFrom)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.serial_number, i.id"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

// ListInspectionDue returns cylinder instances whose next inspection falls
// on or before cutoff, or was never scheduled.
func (q *Queries) ListInspectionDue(ctx context.Context, cutoff time.Time) ([]*ProductInstance, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s
		WHERE p.product_type=? AND i.state<>? AND (i.next_inspection_date IS NULL OR i.next_inspection_date<=?)
		ORDER BY i.next_inspection_date, i.serial_number`, instanceSelectCols, instanceFrom),
		ProductTypeCylinder, StateRetired, q.date(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

func (q *Queries) ListDamagedInstances(ctx context.Context) ([]*ProductInstance, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE i.state IN (?, ?) ORDER BY i.serial_number`, instanceSelectCols, instanceFrom),
		StateDamaged, StateInRepair)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}
