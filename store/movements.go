package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	MovementDelivery    = "delivery"
	MovementReturn      = "return"
	MovementTransfer    = "transfer"
	MovementMaintenance = "maintenance"
	MovementAcquisition = "acquisition"
)

const (
	MovementPending    = "pending"
	MovementInProgress = "in_progress"
	MovementCompleted  = "completed"
	MovementCancelled  = "cancelled"
)

type Movement struct {
	ID           int64        `json:"id"`
	InstanceID   int64        `json:"instance_id"`
	MovementType string       `json:"movement_type"`
	Status       string       `json:"status"`
	Source       *LocationRef `json:"source,omitempty"`
	Destination  LocationRef  `json:"destination"`
	RouteID      *int64       `json:"route_id,omitempty"`
	OrderID      *int64       `json:"order_id,omitempty"`
	MovementDate time.Time    `json:"movement_date"`
	Comments     string       `json:"comments"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	// Joined for listings.
	SerialNumber string `json:"serial_number"`
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
	ProductType  string `json:"product_type"`
}

const movementSelectCols = `m.id, m.instance_id, m.movement_type, m.status, m.source_kind, m.source_id,
	m.destination_kind, m.destination_id, m.route_id, m.order_id, m.movement_date, m.comments, m.created_by,
	m.created_at, m.updated_at, i.serial_number, p.code, p.label, p.product_type`

const movementFrom = `movements m JOIN product_instances i ON i.id = m.instance_id JOIN products p ON p.id = i.product_id`

func scanMovement(row interface{ Scan(...any) error }) (*Movement, error) {
	var m Movement
	var sourceKind, destKind string
	var sourceID, routeID, orderID sql.NullInt64
	var movementDate, createdAt, updatedAt any
	err := row.Scan(&m.ID, &m.InstanceID, &m.MovementType, &m.Status, &sourceKind, &sourceID,
		&destKind, &m.Destination.ID, &routeID, &orderID, &movementDate, &m.Comments, &m.CreatedBy,
		&createdAt, &updatedAt, &m.SerialNumber, &m.ProductCode, &m.ProductLabel, &m.ProductType)
	if err != nil {
		return nil, err
	}
	m.Source = scanLocation(sourceKind, sourceID)
	m.Destination.Kind = LocationKind(destKind)
	m.RouteID = idPtr(routeID)
	m.OrderID = idPtr(orderID)
	m.MovementDate = parseTime(movementDate)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func scanMovements(rows *sql.Rows) ([]*Movement, error) {
	var out []*Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) CreateMovement(ctx context.Context, m *Movement) error {
	if m.CreatedBy == "" {
		m.CreatedBy = "system"
	}
	srcKind, srcID := locationArgs(m.Source)
	id, err := q.insert(ctx, `INSERT INTO movements (instance_id, movement_type, status, source_kind, source_id,
		destination_kind, destination_id, route_id, order_id, movement_date, comments, created_by) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.InstanceID, m.MovementType, m.Status, srcKind, srcID,
		string(m.Destination.Kind), m.Destination.ID, nullID(m.RouteID), nullID(m.OrderID),
		q.ts(m.MovementDate), m.Comments, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	m.ID = id
	return nil
}

func (q *Queries) UpdateMovement(ctx context.Context, m *Movement) error {
	srcKind, srcID := locationArgs(m.Source)
	_, err := q.exec(ctx, `UPDATE movements SET instance_id=?, movement_type=?, status=?, source_kind=?, source_id=?,
		destination_kind=?, destination_id=?, route_id=?, order_id=?, movement_date=?, comments=?, updated_at=datetime('now') WHERE id=?`,
		m.InstanceID, m.MovementType, m.Status, srcKind, srcID,
		string(m.Destination.Kind), m.Destination.ID, nullID(m.RouteID), nullID(m.OrderID),
		q.ts(m.MovementDate), m.Comments, m.ID)
	return err
}

func (q *Queries) DeleteMovement(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM movements WHERE id=?`, id)
	return err
}

func (q *Queries) GetMovement(ctx context.Context, id int64) (*Movement, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE m.id=?`, movementSelectCols, movementFrom), id)
	return scanMovement(row)
}

// LatestMovement returns the most recent movement of an instance. Equal
// movement dates are broken by insertion id so the answer is deterministic.
func (q *Queries) LatestMovement(ctx context.Context, instanceID int64) (*Movement, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE m.instance_id=? ORDER BY m.movement_date DESC, m.id DESC LIMIT 1`,
		movementSelectCols, movementFrom), instanceID)
	return scanMovement(row)
}

func (q *Queries) ListInstanceMovements(ctx context.Context, instanceID int64) ([]*Movement, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE m.instance_id=? ORDER BY m.movement_date DESC, m.id DESC`,
		movementSelectCols, movementFrom), instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

type MovementFilter struct {
	MovementType string
	Status       string
	Serial       string
	ProductCode  string
	ProductLabel string
	ProductType  string
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func (f MovementFilter) where(q *Queries) (string, []any) {
	var where []string
	var args []any
	if f.MovementType != "" {
		where = append(where, "m.movement_type=?")
		args = append(args, f.MovementType)
	}
	if f.Status != "" {
		where = append(where, "m.status=?")
		args = append(args, f.Status)
	}
	if f.Serial != "" {
		where = append(where, "LOWER(i.serial_number) LIKE LOWER(?)")
		args = append(args, "%"+f.Serial+"%")
	}
	if f.ProductCode != "" {
		where = append(where, "p.code=?")
		args = append(args, f.ProductCode)
	}
	if f.ProductLabel != "" {
		where = append(where, "LOWER(p.label) LIKE LOWER(?)")
		args = append(args, "%"+f.ProductLabel+"%")
	}
	if f.ProductType != "" {
		where = append(where, "p.product_type=?")
		args = append(args, f.ProductType)
	}
	if f.From != nil {
		where = append(where, "m.movement_date>=?")
		args = append(args, q.ts(startOfDay(*f.From)))
	}
	if f.To != nil {
		where = append(where, "m.movement_date<?")
		args = append(args, q.ts(startOfDay(*f.To).AddDate(0, 0, 1)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListMovements returns movements newest first with the total row count for paging.
func (q *Queries) ListMovements(ctx context.Context, f MovementFilter) ([]*Movement, int, error) {
	where, args := f.where(q)
	var total int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM `+movementFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY m.movement_date DESC, m.id DESC`, movementSelectCols, movementFrom, where)
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := scanMovements(rows)
	return list, total, err
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
