package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InventoryItem is the on-hand count of one product in one depot.
type InventoryItem struct {
	ID            int64     `json:"id"`
	DepotID       int64     `json:"depot_id"`
	ProductID     int64     `json:"product_id"`
	Quantity      int       `json:"quantity"`
	LastUpdated   time.Time `json:"last_updated"`
	LastUpdatedBy string    `json:"last_updated_by"`

	DepotLabel   string `json:"depot_label"`
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

type InventoryAdjustment struct {
	ID          int64     `json:"id"`
	DepotID     int64     `json:"depot_id"`
	ProductID   int64     `json:"product_id"`
	OldQuantity int       `json:"old_quantity"`
	NewQuantity int       `json:"new_quantity"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
}

const inventoryJoinCols = `inv.id, inv.depot_id, inv.product_id, inv.quantity, inv.last_updated, inv.last_updated_by, d.label, p.code, p.label`

const inventoryFrom = `inventory inv JOIN depots d ON d.id = inv.depot_id JOIN products p ON p.id = inv.product_id`

func scanInventoryItem(row interface{ Scan(...any) error }) (*InventoryItem, error) {
	var item InventoryItem
	var lastUpdated any
	err := row.Scan(&item.ID, &item.DepotID, &item.ProductID, &item.Quantity, &lastUpdated, &item.LastUpdatedBy,
		&item.DepotLabel, &item.ProductCode, &item.ProductLabel)
	if err != nil {
		return nil, err
	}
	item.LastUpdated = parseTime(lastUpdated)
	return &item, nil
}

func scanInventoryItems(rows *sql.Rows) ([]*InventoryItem, error) {
	var items []*InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// InventoryQuantity returns the on-hand count for a depot/product pair, zero
// when no row exists yet.
func (q *Queries) InventoryQuantity(ctx context.Context, depotID, productID int64) (int, error) {
	var qty int
	err := q.queryRow(ctx, `SELECT quantity FROM inventory WHERE depot_id=? AND product_id=?`, depotID, productID).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return qty, err
}

// SetInventoryQuantity upserts the count for a depot/product pair.
func (q *Queries) SetInventoryQuantity(ctx context.Context, depotID, productID int64, quantity int, actor string) error {
	_, err := q.exec(ctx, `INSERT INTO inventory (depot_id, product_id, quantity, last_updated, last_updated_by) VALUES (?, ?, ?, datetime('now'), ?)
		ON CONFLICT (depot_id, product_id) DO UPDATE SET quantity=excluded.quantity, last_updated=excluded.last_updated, last_updated_by=excluded.last_updated_by`,
		depotID, productID, quantity, actor)
	if err != nil {
		return fmt.Errorf("set inventory: %w", err)
	}
	return nil
}

func (q *Queries) CreateInventoryAdjustment(ctx context.Context, a *InventoryAdjustment) error {
	id, err := q.insert(ctx, `INSERT INTO inventory_adjustments (depot_id, product_id, old_quantity, new_quantity, reason, actor) VALUES (?, ?, ?, ?, ?, ?)`,
		a.DepotID, a.ProductID, a.OldQuantity, a.NewQuantity, a.Reason, a.Actor)
	if err != nil {
		return fmt.Errorf("create adjustment: %w", err)
	}
	a.ID = id
	return nil
}

func (q *Queries) ListInventoryAdjustments(ctx context.Context, depotID, productID int64, limit int) ([]*InventoryAdjustment, error) {
	rows, err := q.query(ctx, `SELECT id, depot_id, product_id, old_quantity, new_quantity, reason, actor, created_at
		FROM inventory_adjustments WHERE depot_id=? AND product_id=? ORDER BY id DESC LIMIT ?`, depotID, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InventoryAdjustment
	for rows.Next() {
		var a InventoryAdjustment
		var createdAt any
		if err := rows.Scan(&a.ID, &a.DepotID, &a.ProductID, &a.OldQuantity, &a.NewQuantity, &a.Reason, &a.Actor, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (q *Queries) ListInventory(ctx context.Context) ([]*InventoryItem, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s ORDER BY d.label, p.label`, inventoryJoinCols, inventoryFrom))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInventoryItems(rows)
}

func (q *Queries) ListDepotInventory(ctx context.Context, depotID int64) ([]*InventoryItem, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE inv.depot_id=? ORDER BY p.label`, inventoryJoinCols, inventoryFrom), depotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInventoryItems(rows)
}

// ProductStock is the total on-hand count of a product across depots,
// joined with its active alert threshold if one exists.
type ProductStock struct {
	ProductID    int64  `json:"product_id"`
	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
	Total        int    `json:"total"`
	Threshold    *int   `json:"threshold,omitempty"`
	BelowAlert   bool   `json:"below_alert"`
}

func (q *Queries) StockByProduct(ctx context.Context) ([]*ProductStock, error) {
	rows, err := q.query(ctx, `SELECT p.id, p.code, p.label, COALESCE(SUM(inv.quantity), 0), a.threshold
		FROM products p
		LEFT JOIN inventory inv ON inv.product_id = p.id
		LEFT JOIN stock_alerts a ON a.product_id = p.id AND a.active=?
		GROUP BY p.id, p.code, p.label, a.threshold
		ORDER BY p.label`, q.boolArg(true))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*ProductStock
	for rows.Next() {
		var s ProductStock
		var threshold sql.NullInt64
		if err := rows.Scan(&s.ProductID, &s.ProductCode, &s.ProductLabel, &s.Total, &threshold); err != nil {
			return nil, err
		}
		if threshold.Valid {
			t := int(threshold.Int64)
			s.Threshold = &t
			s.BelowAlert = s.Total < t
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

type StockStats struct {
	Products     int `json:"products"`
	TotalStock   int `json:"total_stock"`
	LowStock     int `json:"low_stock"`
	DamagedUnits int `json:"damaged_units"`
}

func (q *Queries) StockStats(ctx context.Context) (*StockStats, error) {
	stock, err := q.StockByProduct(ctx)
	if err != nil {
		return nil, err
	}
	var s StockStats
	s.Products = len(stock)
	for _, p := range stock {
		s.TotalStock += p.Total
		if p.BelowAlert {
			s.LowStock++
		}
	}
	err = q.queryRow(ctx, `SELECT COUNT(*) FROM product_instances WHERE state IN (?, ?)`, StateDamaged, StateInRepair).Scan(&s.DamagedUnits)
	return &s, err
}

// --- Stock alerts ---

type StockAlert struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Threshold int       `json:"threshold"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`

	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

// UpsertStockAlert creates the product's alert or replaces its threshold and flag.
func (q *Queries) UpsertStockAlert(ctx context.Context, a *StockAlert) error {
	_, err := q.exec(ctx, `INSERT INTO stock_alerts (product_id, threshold, active) VALUES (?, ?, ?)
		ON CONFLICT (product_id) DO UPDATE SET threshold=excluded.threshold, active=excluded.active`,
		a.ProductID, a.Threshold, q.boolArg(a.Active))
	if err != nil {
		return fmt.Errorf("upsert stock alert: %w", err)
	}
	return q.queryRow(ctx, `SELECT id FROM stock_alerts WHERE product_id=?`, a.ProductID).Scan(&a.ID)
}

func (q *Queries) UpdateStockAlert(ctx context.Context, a *StockAlert) error {
	_, err := q.exec(ctx, `UPDATE stock_alerts SET threshold=?, active=? WHERE id=?`, a.Threshold, q.boolArg(a.Active), a.ID)
	return err
}

func (q *Queries) DeleteStockAlert(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM stock_alerts WHERE id=?`, id)
	return err
}

func scanStockAlert(row interface{ Scan(...any) error }) (*StockAlert, error) {
	var a StockAlert
	var active, createdAt any
	if err := row.Scan(&a.ID, &a.ProductID, &a.Threshold, &active, &createdAt, &a.ProductCode, &a.ProductLabel); err != nil {
		return nil, err
	}
	a.Active = parseBool(active)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (q *Queries) GetStockAlert(ctx context.Context, id int64) (*StockAlert, error) {
	row := q.queryRow(ctx, `SELECT a.id, a.product_id, a.threshold, a.active, a.created_at, p.code, p.label
		FROM stock_alerts a JOIN products p ON p.id = a.product_id WHERE a.id=?`, id)
	return scanStockAlert(row)
}

func (q *Queries) ListStockAlerts(ctx context.Context) ([]*StockAlert, error) {
	rows, err := q.query(ctx, `SELECT a.id, a.product_id, a.threshold, a.active, a.created_at, p.code, p.label
		FROM stock_alerts a JOIN products p ON p.id = a.product_id ORDER BY p.label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*StockAlert
	for rows.Next() {
		a, err := scanStockAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- Inventory count orders ---

const (
	CountPending    = "pending"
	CountInProgress = "in_progress"
	CountCompleted  = "completed"
	CountCancelled  = "cancelled"
)

type InventoryOrder struct {
	ID          int64      `json:"id"`
	Reference   string     `json:"reference"`
	DepotID     int64      `json:"depot_id"`
	Status      string     `json:"status"`
	PlannedDate time.Time  `json:"planned_date"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Comments    string     `json:"comments"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`

	DepotLabel string                `json:"depot_label"`
	Lines      []*InventoryOrderLine `json:"lines,omitempty"`
}

type InventoryOrderLine struct {
	ID               int64 `json:"id"`
	InventoryOrderID int64 `json:"inventory_order_id"`
	ProductID        int64 `json:"product_id"`
	ExpectedQuantity int   `json:"expected_quantity"`
	CountedQuantity  *int  `json:"counted_quantity,omitempty"`
	Difference       *int  `json:"difference,omitempty"`

	ProductCode  string `json:"product_code"`
	ProductLabel string `json:"product_label"`
}

func (q *Queries) CreateInventoryOrder(ctx context.Context, o *InventoryOrder) error {
	id, err := q.insert(ctx, `INSERT INTO inventory_orders (reference, depot_id, status, planned_date, comments, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		o.Reference, o.DepotID, o.Status, q.date(o.PlannedDate), o.Comments, o.CreatedBy)
	if err != nil {
		return fmt.Errorf("create inventory order: %w", err)
	}
	o.ID = id
	return nil
}

func (q *Queries) CreateInventoryOrderLine(ctx context.Context, l *InventoryOrderLine) error {
	id, err := q.insert(ctx, `INSERT INTO inventory_order_lines (inventory_order_id, product_id, expected_quantity) VALUES (?, ?, ?)`,
		l.InventoryOrderID, l.ProductID, l.ExpectedQuantity)
	if err != nil {
		return fmt.Errorf("create inventory order line: %w", err)
	}
	l.ID = id
	return nil
}

func (q *Queries) SetInventoryOrderStatus(ctx context.Context, id int64, status string, at time.Time) error {
	var col string
	switch status {
	case CountInProgress:
		col = ", started_at=?"
	case CountCompleted:
		col = ", completed_at=?"
	}
	if col == "" {
		_, err := q.exec(ctx, `UPDATE inventory_orders SET status=? WHERE id=?`, status, id)
		return err
	}
	_, err := q.exec(ctx, `UPDATE inventory_orders SET status=?`+col+` WHERE id=?`, status, q.ts(at), id)
	return err
}

func (q *Queries) SetInventoryOrderLineCount(ctx context.Context, lineID int64, counted, difference int) error {
	_, err := q.exec(ctx, `UPDATE inventory_order_lines SET counted_quantity=?, difference=? WHERE id=?`, counted, difference, lineID)
	return err
}

const inventoryOrderCols = `o.id, o.reference, o.depot_id, o.status, o.planned_date, o.started_at, o.completed_at, o.comments, o.created_by, o.created_at, d.label`

func scanInventoryOrder(row interface{ Scan(...any) error }) (*InventoryOrder, error) {
	var o InventoryOrder
	var planned, started, completed, createdAt any
	err := row.Scan(&o.ID, &o.Reference, &o.DepotID, &o.Status, &planned, &started, &completed, &o.Comments, &o.CreatedBy, &createdAt, &o.DepotLabel)
	if err != nil {
		return nil, err
	}
	o.PlannedDate = parseTime(planned)
	o.StartedAt = parseTimePtr(started)
	o.CompletedAt = parseTimePtr(completed)
	o.CreatedAt = parseTime(createdAt)
	return &o, nil
}

func (q *Queries) GetInventoryOrder(ctx context.Context, id int64) (*InventoryOrder, error) {
	row := q.queryRow(ctx, `SELECT `+inventoryOrderCols+` FROM inventory_orders o JOIN depots d ON d.id = o.depot_id WHERE o.id=?`, id)
	o, err := scanInventoryOrder(row)
	if err != nil {
		return nil, err
	}
	o.Lines, err = q.ListInventoryOrderLines(ctx, id)
	return o, err
}

func (q *Queries) ListInventoryOrders(ctx context.Context, status string) ([]*InventoryOrder, error) {
	query := `SELECT ` + inventoryOrderCols + ` FROM inventory_orders o JOIN depots d ON d.id = o.depot_id`
	var args []any
	if status != "" {
		query += " WHERE o.status=?"
		args = append(args, status)
	}
	query += " ORDER BY o.planned_date DESC, o.id DESC"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InventoryOrder
	for rows.Next() {
		o, err := scanInventoryOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) ListInventoryOrderLines(ctx context.Context, orderID int64) ([]*InventoryOrderLine, error) {
	rows, err := q.query(ctx, `SELECT l.id, l.inventory_order_id, l.product_id, l.expected_quantity, l.counted_quantity, l.difference, p.code, p.label
		FROM inventory_order_lines l JOIN products p ON p.id = l.product_id WHERE l.inventory_order_id=? ORDER BY l.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*InventoryOrderLine
	for rows.Next() {
		var l InventoryOrderLine
		var counted, diff sql.NullInt64
		if err := rows.Scan(&l.ID, &l.InventoryOrderID, &l.ProductID, &l.ExpectedQuantity, &counted, &diff, &l.ProductCode, &l.ProductLabel); err != nil {
			return nil, err
		}
		if counted.Valid {
			c := int(counted.Int64)
			l.CountedQuantity = &c
		}
		if diff.Valid {
			d := int(diff.Int64)
			l.Difference = &d
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// ListCompletedInventoryOrders returns the counts completed in
// [from, to), oldest first, each with its lines. A zero depotID covers
// every depot.
func (q *Queries) ListCompletedInventoryOrders(ctx context.Context, from, to time.Time, depotID int64) ([]*InventoryOrder, error) {
	query := `SELECT ` + inventoryOrderCols + ` FROM inventory_orders o JOIN depots d ON d.id = o.depot_id
		WHERE o.status=? AND o.completed_at>=? AND o.completed_at<?`
	args := []any{CountCompleted, q.ts(from), q.ts(to)}
	if depotID > 0 {
		query += " AND o.depot_id=?"
		args = append(args, depotID)
	}
	query += " ORDER BY o.completed_at, o.id"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var out []*InventoryOrder
	for rows.Next() {
		o, err := scanInventoryOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, o := range out {
		if o.Lines, err = q.ListInventoryOrderLines(ctx, o.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MonthlyCount is the number of counts completed in one "YYYY-MM" month.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyCompletedCounts returns how many counts were completed per month,
// oldest month first.
func (q *Queries) MonthlyCompletedCounts(ctx context.Context) ([]*MonthlyCount, error) {
	month := "substr(completed_at, 1, 7)"
	if q.driver == "postgres" {
		month = "to_char(completed_at, 'YYYY-MM')"
	}
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s AS month, COUNT(*) FROM inventory_orders
		WHERE status=? AND completed_at IS NOT NULL GROUP BY month ORDER BY month`, month), CountCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MonthlyCount
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
