package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	DepotTypeStorage     = "storage"
	DepotTypeMaintenance = "maintenance"
)

type Depot struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Label      string    `json:"label"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Phone      string    `json:"phone"`
	GPSX       float64   `json:"gps_x"`
	GPSY       float64   `json:"gps_y"`
	DepotType  string    `json:"depot_type"`
	CreatedAt  time.Time `json:"created_at"`
}

const depotSelectCols = `id, code, label, address, city, postal_code, phone, gps_x, gps_y, depot_type, created_at`

func scanDepot(row interface{ Scan(...any) error }) (*Depot, error) {
	var d Depot
	var createdAt any
	err := row.Scan(&d.ID, &d.Code, &d.Label, &d.Address, &d.City, &d.PostalCode, &d.Phone,
		&d.GPSX, &d.GPSY, &d.DepotType, &createdAt)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(createdAt)
	return &d, nil
}

func scanDepots(rows *sql.Rows) ([]*Depot, error) {
	var depots []*Depot
	for rows.Next() {
		d, err := scanDepot(rows)
		if err != nil {
			return nil, err
		}
		depots = append(depots, d)
	}
	return depots, rows.Err()
}

func (q *Queries) CreateDepot(ctx context.Context, d *Depot) error {
	if d.DepotType == "" {
		d.DepotType = DepotTypeStorage
	}
	id, err := q.insert(ctx, `INSERT INTO depots (code, label, address, city, postal_code, phone, gps_x, gps_y, depot_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Code, d.Label, d.Address, d.City, d.PostalCode, d.Phone, d.GPSX, d.GPSY, d.DepotType)
	if err != nil {
		return fmt.Errorf("create depot: %w", err)
	}
	d.ID = id
	return nil
}

func (q *Queries) UpdateDepot(ctx context.Context, d *Depot) error {
	_, err := q.exec(ctx, `UPDATE depots SET code=?, label=?, address=?, city=?, postal_code=?, phone=?, gps_x=?, gps_y=?, depot_type=? WHERE id=?`,
		d.Code, d.Label, d.Address, d.City, d.PostalCode, d.Phone, d.GPSX, d.GPSY, d.DepotType, d.ID)
	return err
}

func (q *Queries) DeleteDepot(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM depots WHERE id=?`, id)
	return err
}

func (q *Queries) GetDepot(ctx context.Context, id int64) (*Depot, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM depots WHERE id=?`, depotSelectCols), id)
	return scanDepot(row)
}

func (q *Queries) GetDepotByCode(ctx context.Context, code string) (*Depot, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM depots WHERE code=?`, depotSelectCols), code)
	return scanDepot(row)
}

func (q *Queries) ListDepots(ctx context.Context) ([]*Depot, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM depots ORDER BY label, id`, depotSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepots(rows)
}

// FirstDepot returns the depot with the lowest id, the fallback destination
// when a cancelled maintenance sends an instance back.
func (q *Queries) FirstDepot(ctx context.Context) (*Depot, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM depots ORDER BY id LIMIT 1`, depotSelectCols))
	return scanDepot(row)
}

// MaintenanceDepot returns the first depot flagged for maintenance, or the
// first depot when none is flagged.
func (q *Queries) MaintenanceDepot(ctx context.Context) (*Depot, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM depots WHERE depot_type=? ORDER BY id LIMIT 1`, depotSelectCols), DepotTypeMaintenance)
	d, err := scanDepot(row)
	if IsNotFound(err) {
		return q.FirstDepot(ctx)
	}
	return d, err
}

// DepotInUse reports whether inventory rows or employees still reference the depot.
func (q *Queries) DepotInUse(ctx context.Context, id int64) (bool, error) {
	var n int
	err := q.queryRow(ctx, `SELECT (SELECT COUNT(*) FROM inventory WHERE depot_id=?) + (SELECT COUNT(*) FROM employees WHERE depot_id=?)`, id, id).Scan(&n)
	return n > 0, err
}
