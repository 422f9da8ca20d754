package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	RoutePlanned    = "planned"
	RouteInProgress = "in_progress"
	RouteCompleted  = "completed"
	RouteCancelled  = "cancelled"
)

const (
	StopPending   = "pending"
	StopCompleted = "completed"
	StopFailed    = "failed"
)

type DeliveryRoute struct {
	ID          int64     `json:"id"`
	RouteNumber string    `json:"route_number"`
	RouteDate   time.Time `json:"route_date"`
	VehicleID   int64     `json:"vehicle_id"`
	DriverID    int64     `json:"driver_id"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
	Status      string    `json:"status"`
	Comments    string    `json:"comments"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	DriverName  string       `json:"driver_name"`
	VehicleName string       `json:"vehicle_name"`
	Stops       []*RouteStop `json:"stops,omitempty"`
}

// IsTerminal reports whether the route can no longer be edited.
func (r *DeliveryRoute) IsTerminal() bool {
	return r.Status == RouteCompleted || r.Status == RouteCancelled
}

type RouteStop struct {
	ID             int64      `json:"id"`
	RouteID        int64      `json:"route_id"`
	OrderID        int64      `json:"order_id"`
	StopOrder      int        `json:"stop_order"`
	PlannedArrival string     `json:"planned_arrival"`
	ActualArrival  *time.Time `json:"actual_arrival,omitempty"`
	Status         string     `json:"status"`
	Comments       string     `json:"comments"`

	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name"`
}

const routeSelectCols = `r.id, r.route_number, r.route_date, r.vehicle_id, r.driver_id, r.start_time, r.end_time,
	r.status, r.comments, r.created_at, r.updated_at, d.name, v.name`

const routeFrom = `delivery_routes r JOIN drivers d ON d.id = r.driver_id JOIN vehicles v ON v.id = r.vehicle_id`

func scanRoute(row interface{ Scan(...any) error }) (*DeliveryRoute, error) {
	var r DeliveryRoute
	var routeDate, createdAt, updatedAt any
	err := row.Scan(&r.ID, &r.RouteNumber, &routeDate, &r.VehicleID, &r.DriverID, &r.StartTime, &r.EndTime,
		&r.Status, &r.Comments, &createdAt, &updatedAt, &r.DriverName, &r.VehicleName)
	if err != nil {
		return nil, err
	}
	r.RouteDate = parseTime(routeDate)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func scanRoutes(rows *sql.Rows) ([]*DeliveryRoute, error) {
	var out []*DeliveryRoute
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *Queries) CreateRoute(ctx context.Context, r *DeliveryRoute) error {
	id, err := q.insert(ctx, `INSERT INTO delivery_routes (route_number, route_date, vehicle_id, driver_id, start_time, end_time, status, comments) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RouteNumber, q.date(r.RouteDate), r.VehicleID, r.DriverID, r.StartTime, r.EndTime, r.Status, r.Comments)
	if err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	r.ID = id
	return nil
}

func (q *Queries) UpdateRoute(ctx context.Context, r *DeliveryRoute) error {
	_, err := q.exec(ctx, `UPDATE delivery_routes SET route_date=?, vehicle_id=?, driver_id=?, start_time=?, end_time=?, status=?, comments=?,
		updated_at=datetime('now') WHERE id=?`,
		q.date(r.RouteDate), r.VehicleID, r.DriverID, r.StartTime, r.EndTime, r.Status, r.Comments, r.ID)
	return err
}

func (q *Queries) DeleteRoute(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, `DELETE FROM delivery_routes WHERE id=?`, id)
	return err
}

func (q *Queries) GetRoute(ctx context.Context, id int64) (*DeliveryRoute, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE r.id=?`, routeSelectCols, routeFrom), id)
	return scanRoute(row)
}

func (q *Queries) GetRouteWithStops(ctx context.Context, id int64) (*DeliveryRoute, error) {
	r, err := q.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Stops, err = q.ListRouteStops(ctx, id)
	return r, err
}

type RouteFilter struct {
	Status   string
	DriverID int64
	From     *time.Time
	To       *time.Time
}

func (q *Queries) ListRoutes(ctx context.Context, f RouteFilter) ([]*DeliveryRoute, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1=1`, routeSelectCols, routeFrom)
	var args []any
	if f.Status != "" {
		query += " AND r.status=?"
		args = append(args, f.Status)
	}
	if f.DriverID > 0 {
		query += " AND r.driver_id=?"
		args = append(args, f.DriverID)
	}
	if f.From != nil {
		query += " AND r.route_date>=?"
		args = append(args, q.date(*f.From))
	}
	if f.To != nil {
		query += " AND r.route_date<=?"
		args = append(args, q.date(*f.To))
	}
	query += " ORDER BY r.route_date DESC, r.start_time, r.id"
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

// ListDriverRoutes returns non-cancelled routes of a driver dated today or later.
func (q *Queries) ListDriverRoutes(ctx context.Context, driverID int64, today time.Time) ([]*DeliveryRoute, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE r.driver_id=? AND r.route_date>=? AND r.status<>?
		ORDER BY r.route_date, r.start_time, r.id`, routeSelectCols, routeFrom),
		driverID, q.date(today), RouteCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoutes(rows)
}

const stopSelectCols = `s.id, s.route_id, s.order_id, s.stop_order, s.planned_arrival, s.actual_arrival, s.status, s.comments,
	o.order_number, c.name`

const stopFrom = `route_stops s JOIN orders o ON o.id = s.order_id JOIN customers c ON c.id = o.customer_id`

func scanStop(row interface{ Scan(...any) error }) (*RouteStop, error) {
	var s RouteStop
	var actual any
	err := row.Scan(&s.ID, &s.RouteID, &s.OrderID, &s.StopOrder, &s.PlannedArrival, &actual, &s.Status, &s.Comments,
		&s.OrderNumber, &s.CustomerName)
	if err != nil {
		return nil, err
	}
	s.ActualArrival = parseTimePtr(actual)
	return &s, nil
}

func (q *Queries) CreateRouteStop(ctx context.Context, s *RouteStop) error {
	id, err := q.insert(ctx, `INSERT INTO route_stops (route_id, order_id, stop_order, planned_arrival, status, comments) VALUES (?, ?, ?, ?, ?, ?)`,
		s.RouteID, s.OrderID, s.StopOrder, s.PlannedArrival, s.Status, s.Comments)
	if err != nil {
		return fmt.Errorf("create route stop: %w", err)
	}
	s.ID = id
	return nil
}

func (q *Queries) UpdateRouteStop(ctx context.Context, s *RouteStop) error {
	_, err := q.exec(ctx, `UPDATE route_stops SET stop_order=?, planned_arrival=?, actual_arrival=?, status=?, comments=? WHERE id=?`,
		s.StopOrder, s.PlannedArrival, q.tsPtr(s.ActualArrival), s.Status, s.Comments, s.ID)
	return err
}

func (q *Queries) DeleteRouteStops(ctx context.Context, routeID int64) error {
	_, err := q.exec(ctx, `DELETE FROM route_stops WHERE route_id=?`, routeID)
	return err
}

func (q *Queries) GetRouteStop(ctx context.Context, id int64) (*RouteStop, error) {
	row := q.queryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE s.id=?`, stopSelectCols, stopFrom), id)
	return scanStop(row)
}

func (q *Queries) ListRouteStops(ctx context.Context, routeID int64) ([]*RouteStop, error) {
	rows, err := q.query(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE s.route_id=? ORDER BY s.stop_order, s.id`, stopSelectCols, stopFrom), routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*RouteStop
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
