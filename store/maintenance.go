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
	MaintenanceInspection    = "inspection"
	MaintenanceTest          = "test"
	MaintenanceRepair        = "repair"
	MaintenanceCertification = "certification"
)

const (
	MaintenancePlanned    = "planned"
	MaintenanceInProgress = "in_progress"
	MaintenanceCompleted  = "completed"
	MaintenanceCancelled  = "cancelled"
)

const (
	ResultPassed      = "passed"
	ResultFailed      = "failed"
	ResultNeedsRepair = "needs_repair"
)

type Maintenance struct {
	ID                  int64               `json:"id"`
	InstanceID          int64               `json:"instance_id"`
	MaintenanceType     string              `json:"maintenance_type"`
	Status              string              `json:"status"`
	PlannedDate         time.Time           `json:"planned_date"`
	ActualDate          *time.Time          `json:"actual_date,omitempty"`
	Result              string              `json:"maintenance_result"`
	Cost                decimal.NullDecimal `json:"cost"`
	NextMaintenanceDate *time.Time          `json:"next_maintenance_date,omitempty"`
	CertificateNumber   string              `json:"certificate_number"`
	PerformedBy         string              `json:"performed_by"`
	DestinationDepotID  *int64              `json:"destination_depot_id,omitempty"`
	Comments            string              `json:"comments"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`

	SerialNumber string `json:"serial_number"`
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

const maintenanceSelectCols = `mt.id, mt.instance_id, mt.maintenance_type, mt.status, mt.planned_date, mt.actual_date, mt.result,
	mt.cost, mt.next_maintenance_date, mt.certificate_number, mt.performed_by, mt.destination_depot_id, mt.comments,
	mt.created_at, mt.updated_at, i.serial_number, p.code, p.label`

const maintenanceFrom = `maintenances mt JOIN product_instances i ON i.id = mt.instance_id JOIN products p ON p.id = i.product_id`

func scanMaintenance(row interface{ Scan(...any) error }) (*Maintenance, error) {
	var m Maintenance
	var destDepot sql.NullInt64
	var planned, actual, next, createdAt, updatedAt any
	err := row.Scan(&m.ID, &m.InstanceID, &m.MaintenanceType, &m.Status, &planned, &actual, &m.Result,
		&m.Cost, &next, &m.CertificateNumber, &m.PerformedBy, &destDepot, &m.Comments,
		&createdAt, &updatedAt, &m.SerialNumber, &m.ProductCode, &m.ProductLabel)
	if err != nil {
		return nil, err
	}
	m.PlannedDate = parseTime(planned)
	m.ActualDate = parseTimePtr(actual)
	m.NextMaintenanceDate = parseTimePtr(next)
	m.DestinationDepotID = idPtr(destDepot)
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)
	return &m, nil
}

func scanMaintenances(rows *sql.Rows) ([]*Maintenance, error) {
	var out []*Maintenance
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (q *Queries) CreateMaintenance(ctx context.Context, m *Maintenance) error {
	id, err := q.insert(ctx, `INSERT INTO maintenances (instance_id, maintenance_type, status, planned_date, actual_date, result,
		cost, next_maintenance_date, certificate_number, performed_by, destination_depot_id, comments) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.InstanceID, m.MaintenanceType, m.Status, q.date(m.PlannedDate), q.datePtr(m.ActualDate), m.Result,
		m.Cost, q.datePtr(m.NextMaintenanceDate), m.CertificateNumber, m.PerformedBy, nullID(m.DestinationDepotID), m.Comments)
	if err != nil {
		return fmt.Errorf("create maintenance: %w", err)
	}
	m.ID = id
	return nil
}

func (q *Queries) UpdateMaintenance(ctx context.Context, m *Maintenance) error {
	_, err := q.exec(ctx, `UPDATE maintenances SET maintenance_type=?, status=?, planned_date=?, actual_date=?, result=?,
		cost=?, next_maintenance_date=?, certificate_number=?, performed_by=?, destination_depot_id=?, comments=?,
		updated_at=datetime('now') WHERE id=?`,
		m.MaintenanceType, m.Status, q.date(m.PlannedDate), q.datePtr(m.ActualDate), m.Result,
		m.Cost, q.datePtr(m.NextMaintenanceDate), m.CertificateNumber, m.PerformedBy, nullID(m.DestinationDepotID), m.Comments, m.ID)
	return err
}

func (q *Queries) DeleteMaintenance(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM maintenances WHERE id=?`, id)
	return err
}

func (q *Queries) GetMaintenance(ctx context.Context, id int64) (*Maintenance, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE mt.id=?`, maintenanceSelectCols, maintenanceFrom), id)
	return scanMaintenance(row)
}

func (q *Queries) ListInstanceMaintenances(ctx context.Context, instanceID int64) ([]*Maintenance, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE mt.instance_id=? ORDER BY mt.planned_date DESC, mt.id DESC`,
		maintenanceSelectCols, maintenanceFrom), instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMaintenances(rows)
}

// LatestMaintenance returns the newest maintenance row of an instance.
func (q *Queries) LatestMaintenance(ctx context.Context, instanceID int64) (*Maintenance, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE mt.instance_id=? ORDER BY mt.planned_date DESC, mt.id DESC LIMIT 1`,
		maintenanceSelectCols, maintenanceFrom), instanceID)
	return scanMaintenance(row)
}

// CountOpenMaintenances counts planned or in-progress rows for an instance,
// optionally excluding one maintenance id.
func (q *Queries) CountOpenMaintenances(ctx context.Context, instanceID, excludeID int64) (int, error) {
	var n int
	err := q.queryRow(ctx, `SELECT COUNT(*) FROM maintenances WHERE instance_id=? AND status IN (?, ?) AND id<>?`,
		instanceID, MaintenancePlanned, MaintenanceInProgress, excludeID).Scan(&n)
	return n, err
}

type MaintenanceFilter struct {
	MaintenanceType string
	Status          string
	Serial          string
	ProductID       int64
	Result          string
	PlannedFrom     *time.Time
	PlannedTo       *time.Time
	ActualFrom      *time.Time
	ActualTo        *time.Time
	// OverdueAt, when set, keeps only planned rows whose planned date is before it.
	OverdueAt *time.Time
	// Sort is one of planned_date, actual_date, created_at; a leading '-' sorts descending.
	Sort   string
	Limit  int
	Offset int
}

var maintenanceSortCols = map[string]string{
	"planned_date": "mt.planned_date",
	"actual_date":  "mt.actual_date",
	"created_at":   "mt.created_at",
	"status":       "mt.status",
}

func (f MaintenanceFilter) orderBy() string {
	sort := f.Sort
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := maintenanceSortCols[sort]
	if !ok {
		return " ORDER BY mt.planned_date DESC, mt.id DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, mt.id %s", col, dir, dir)
}

func (q *Queries) ListMaintenances(ctx context.Context, f MaintenanceFilter) ([]*Maintenance, int, error) {
	var where []string
	var args []any
	add := func(clause string, v any) {
		where = append(where, clause)
		args = append(args, v)
	}
	if f.MaintenanceType != "" {
		add("mt.maintenance_type=?", f.MaintenanceType)
	}
	if f.Status != "" {
		add("mt.status=?", f.Status)
	}
	if f.Serial != "" {
		add("LOWER(i.serial_number) LIKE LOWER(?)", "%"+f.Serial+"%")
	}
	if f.ProductID > 0 {
		add("i.product_id=?", f.ProductID)
	}
	if f.Result != "" {
		add("mt.result=?", f.Result)
	}
	if f.PlannedFrom != nil {
		add("mt.planned_date>=?", q.date(*f.PlannedFrom))
	}
	if f.PlannedTo != nil {
		add("mt.planned_date<=?", q.date(*f.PlannedTo))
	}
	if f.ActualFrom != nil {
		add("mt.actual_date>=?", q.date(*f.ActualFrom))
	}
	if f.ActualTo != nil {
		add("mt.actual_date<=?", q.date(*f.ActualTo))
	}
	if f.OverdueAt != nil {
		add("mt.status=?", MaintenancePlanned)
		add("mt.planned_date<?", q.date(*f.OverdueAt))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM `+maintenanceFrom+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s%s%s`, maintenanceSelectCols, maintenanceFrom, whereSQL, f.orderBy())
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list, err := scanMaintenances(rows)
	return list, total, err
}
