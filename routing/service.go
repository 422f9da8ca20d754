// Package routing sequences delivery routes: which orders a driver visits,
// in what order, and how each visit moves the order along.
package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

const clockLayout = "15:04"

type StopInput struct {
	OrderID        int64  `json:"order_id" validate:"required,gt=0"`
	StopOrder      int    `json:"stop_order" validate:"required,min=1"`
	PlannedArrival string `json:"planned_arrival" validate:"omitempty,datetime=15:04"`
}

type RouteInput struct {
	RouteDate time.Time   `json:"route_date"`
	VehicleID int64       `json:"vehicle_id" validate:"required,gt=0"`
	DriverID  int64       `json:"driver_id" validate:"required,gt=0"`
	StartTime string      `json:"start_time" validate:"required,datetime=15:04"`
	EndTime   string      `json:"end_time" validate:"omitempty,datetime=15:04"`
	Status    string      `json:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	Comments  string      `json:"comments" validate:"max=2000"`
	Stops     []StopInput `json:"stops" validate:"required,min=1,dive"`
}

type StopUpdate struct {
	Status        string `json:"status" validate:"required,oneof=pending completed failed"`
	ActualArrival string `json:"actual_arrival" validate:"omitempty,datetime=15:04"`
	Comments      string `json:"comments" validate:"max=500"`
}

type Service struct {
	db       *store.DB
	emitter  Emitter
	locker   lifecycle.Locker
	validate *validator.Validate
	lockTTL  time.Duration
	now      func() time.Time
}

func NewService(db *store.DB, emitter Emitter, locker lifecycle.Locker, lockTTL time.Duration) *Service {
	if locker == nil {
		locker = lifecycle.NewLocalLocker()
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Service{
		db:       db,
		emitter:  emitter,
		locker:   locker,
		validate: lifecycle.NewValidator(),
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

func (s *Service) check(in *RouteInput) error {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(in)); err != nil {
		return err
	}
	if in.RouteDate.IsZero() {
		return lifecycle.Invalid("route_date", "required")
	}
	if in.EndTime != "" && in.EndTime <= in.StartTime {
		return lifecycle.Invalid("end_time", "must be after start_time")
	}
	return checkStopOrder(in.Stops)
}

// checkStopOrder requires stop orders 1..n, each used once, and each order
// visited once.
func checkStopOrder(stops []StopInput) error {
	orders := make([]int, 0, len(stops))
	seen := make(map[int64]bool, len(stops))
	for _, st := range stops {
		if seen[st.OrderID] {
			return lifecycle.Invalid("stops", fmt.Sprintf("order %d appears twice", st.OrderID))
		}
		seen[st.OrderID] = true
		orders = append(orders, st.StopOrder)
	}
	sort.Ints(orders)
	for i, n := range orders {
		if n != i+1 {
			return lifecycle.Invalid("stops", "stop orders must run 1..n without gaps or repeats")
		}
	}
	return nil
}

func (s *Service) checkRefs(ctx context.Context, q *store.Queries, in *RouteInput) error {
	if _, err := q.GetDriver(ctx, in.DriverID); err != nil {
		if store.IsNotFound(err) {
			return lifecycle.Invalid("driver_id", "unknown driver")
		}
		return err
	}
	if _, err := q.GetVehicle(ctx, in.VehicleID); err != nil {
		if store.IsNotFound(err) {
			return lifecycle.Invalid("vehicle_id", "unknown vehicle")
		}
		return err
	}
	return nil
}

func (s *Service) withLock(ctx context.Context, id int64, fn func() error) error {
	key := fmt.Sprintf("gasflow:route:%d", id)
	release, err := s.locker.Obtain(ctx, key, s.lockTTL)
	if err != nil {
		if err == lifecycle.ErrLockBusy {
			return lifecycle.ConflictError("route %d is being modified by someone else", id)
		}
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer release()
	return fn()
}

// orderChange is one order status change to announce after commit.
type orderChange struct {
	id       int64
	number   string
	from, to string
}

type changes []orderChange

// setOrder moves an order to status/date and remembers the change.
func (c *changes) setOrder(ctx context.Context, q *store.Queries, o *store.Order, status string, date *time.Time) error {
	if err := q.SetOrderDelivery(ctx, o.ID, status, date); err != nil {
		return err
	}
	if o.Status != status {
		*c = append(*c, orderChange{o.ID, o.OrderNumber, o.Status, status})
		o.Status = status
	}
	o.DeliveryDate = date
	return nil
}

func (s *Service) announce(c changes, actor string) {
	for _, ch := range c {
		s.emitter.EmitOrderStatusChanged(ch.id, ch.number, ch.from, ch.to, actor)
	}
}

// writeStops inserts the submitted stops and moves their orders into
// delivery on the route date. A completed route delivers every order
// still in delivery.
func (s *Service) writeStops(ctx context.Context, q *store.Queries, r *store.DeliveryRoute, stops []StopInput, c *changes) error {
	for _, st := range stops {
		o, err := q.GetOrder(ctx, st.OrderID)
		if store.IsNotFound(err) {
			return lifecycle.Invalid("stops", fmt.Sprintf("unknown order %d", st.OrderID))
		}
		if err != nil {
			return err
		}
		stop := &store.RouteStop{
			RouteID:        r.ID,
			OrderID:        o.ID,
			StopOrder:      st.StopOrder,
			PlannedArrival: st.PlannedArrival,
			Status:         store.StopPending,
		}
		if err := q.CreateRouteStop(ctx, stop); err != nil {
			return err
		}
		if o.Status == store.OrderConfirmed || o.Status == store.OrderInDelivery {
			date := r.RouteDate
			if err := c.setOrder(ctx, q, o, store.OrderInDelivery, &date); err != nil {
				return err
			}
		}
		if r.Status == store.RouteCompleted && o.Status == store.OrderInDelivery {
			if err := c.setOrder(ctx, q, o, store.OrderDelivered, o.DeliveryDate); err != nil {
				return err
			}
		}
	}
	return nil
}

// releaseOrders puts orders that were in delivery back to confirmed with no
// delivery date. Delivered or cancelled orders are left alone.
func releaseOrders(ctx context.Context, q *store.Queries, orderIDs []int64, c *changes) error {
	for _, id := range orderIDs {
		o, err := q.GetOrder(ctx, id)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return err
		}
		if o.Status != store.OrderInDelivery {
			continue
		}
		if err := c.setOrder(ctx, q, o, store.OrderConfirmed, nil); err != nil {
			return err
		}
	}
	return nil
}

func (in *RouteInput) apply(r *store.DeliveryRoute) {
	r.RouteDate = in.RouteDate
	r.VehicleID = in.VehicleID
	r.DriverID = in.DriverID
	r.StartTime = in.StartTime
	r.EndTime = in.EndTime
	r.Status = in.Status
	r.Comments = in.Comments
}

// Create writes a route and its stops in one transaction.
func (s *Service) Create(ctx context.Context, in RouteInput, actor string) (*store.DeliveryRoute, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	r := &store.DeliveryRoute{RouteNumber: store.NewNumber("TRN", in.RouteDate)}
	in.apply(r)
	var c changes
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := s.checkRefs(ctx, q, &in); err != nil {
			return err
		}
		if err := q.CreateRoute(ctx, r); err != nil {
			return err
		}
		return s.writeStops(ctx, q, r, in.Stops, &c)
	})
	if err != nil {
		logError("create route", err)
		return nil, err
	}
	s.emitter.EmitRouteSaved(r.ID, r.RouteNumber, r.Status, actor)
	s.announce(c, actor)
	return s.db.GetRouteWithStops(ctx, r.ID)
}

// Update replaces the route's fields and stops. Orders dropped from the
// route go back to confirmed if they were in delivery.
func (s *Service) Update(ctx context.Context, id int64, in RouteInput, actor string) (*store.DeliveryRoute, error) {
	if err := s.check(&in); err != nil {
		return nil, err
	}
	var r *store.DeliveryRoute
	var c changes
	err := s.withLock(ctx, id, func() error {
		return s.db.WithTx(ctx, func(q *store.Queries) error {
			var err error
			r, err = q.GetRouteWithStops(ctx, id)
			if err != nil {
				return err
			}
			if r.IsTerminal() {
				return lifecycle.ConflictError("route %s is %s and can no longer be edited", r.RouteNumber, r.Status)
			}
			if err := s.checkRefs(ctx, q, &in); err != nil {
				return err
			}
			kept := make(map[int64]bool, len(in.Stops))
			for _, st := range in.Stops {
				kept[st.OrderID] = true
			}
			var removed []int64
			for _, st := range r.Stops {
				if !kept[st.OrderID] {
					removed = append(removed, st.OrderID)
				}
			}
			if err := q.DeleteRouteStops(ctx, id); err != nil {
				return err
			}
			if err := releaseOrders(ctx, q, removed, &c); err != nil {
				return err
			}
			in.apply(r)
			if err := q.UpdateRoute(ctx, r); err != nil {
				return err
			}
			return s.writeStops(ctx, q, r, in.Stops, &c)
		})
	})
	if err != nil {
		logError("update route", err)
		return nil, err
	}
	s.emitter.EmitRouteSaved(r.ID, r.RouteNumber, r.Status, actor)
	s.announce(c, actor)
	return s.db.GetRouteWithStops(ctx, id)
}

// Delete removes a route and releases its orders.
func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	var number string
	var c changes
	err := s.withLock(ctx, id, func() error {
		return s.db.WithTx(ctx, func(q *store.Queries) error {
			r, err := q.GetRouteWithStops(ctx, id)
			if err != nil {
				return err
			}
			if r.IsTerminal() {
				return lifecycle.ConflictError("route %s is %s and cannot be deleted", r.RouteNumber, r.Status)
			}
			number = r.RouteNumber
			orderIDs := make([]int64, 0, len(r.Stops))
			for _, st := range r.Stops {
				orderIDs = append(orderIDs, st.OrderID)
			}
			if err := q.DeleteRouteStops(ctx, id); err != nil {
				return err
			}
			if err := releaseOrders(ctx, q, orderIDs, &c); err != nil {
				return err
			}
			return q.DeleteRoute(ctx, id)
		})
	})
	if err != nil {
		logError("delete route", err)
		return err
	}
	s.emitter.EmitRouteDeleted(id, number, actor)
	s.announce(c, actor)
	return nil
}

// UpdateStopStatus records a visit. A completed stop delivers the order; a
// failed one sends it back to confirmed without a delivery date.
func (s *Service) UpdateStopStatus(ctx context.Context, routeID, stopID int64, in StopUpdate, actor string) (*store.RouteStop, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	var stop *store.RouteStop
	var c changes
	err := s.withLock(ctx, routeID, func() error {
		return s.db.WithTx(ctx, func(q *store.Queries) error {
			r, err := q.GetRoute(ctx, routeID)
			if err != nil {
				return err
			}
			if r.Status == store.RouteCancelled {
				return lifecycle.ConflictError("route %s is cancelled", r.RouteNumber)
			}
			stop, err = q.GetRouteStop(ctx, stopID)
			if err != nil {
				return err
			}
			if stop.RouteID != routeID {
				return store.ErrNotFound
			}
			stop.Status = in.Status
			stop.Comments = in.Comments
			stop.ActualArrival = nil
			if in.ActualArrival != "" {
				at, err := arrivalOn(r.RouteDate, in.ActualArrival)
				if err != nil {
					return lifecycle.Invalid("actual_arrival", "datetime=15:04")
				}
				stop.ActualArrival = &at
			}
			if err := q.UpdateRouteStop(ctx, stop); err != nil {
				return err
			}
			o, err := q.GetOrder(ctx, stop.OrderID)
			if err != nil {
				return err
			}
			if o.Status == store.OrderCancelled {
				return nil
			}
			switch in.Status {
			case store.StopCompleted:
				return c.setOrder(ctx, q, o, store.OrderDelivered, o.DeliveryDate)
			case store.StopFailed:
				if o.Status == store.OrderDelivered {
					return nil
				}
				return c.setOrder(ctx, q, o, store.OrderConfirmed, nil)
			}
			return nil
		})
	})
	if err != nil {
		logError("update stop", err)
		return nil, err
	}
	s.emitter.EmitStopUpdated(routeID, stopID, stop.OrderID, stop.Status, actor)
	s.announce(c, actor)
	return s.db.GetRouteStop(ctx, stopID)
}

func arrivalOn(day time.Time, clock string) (time.Time, error) {
	hm, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, time.UTC), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*store.DeliveryRoute, error) {
	return s.db.GetRouteWithStops(ctx, id)
}

func (s *Service) List(ctx context.Context, f store.RouteFilter) ([]*store.DeliveryRoute, error) {
	return s.db.ListRoutes(ctx, f)
}

// DriverRoutes returns the driver's routes from today on, with their stops.
func (s *Service) DriverRoutes(ctx context.Context, driverID int64) ([]*store.DeliveryRoute, error) {
	y, m, d := s.now().Date()
	routes, err := s.db.ListDriverRoutes(ctx, driverID, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		if r.Stops, err = s.db.ListRouteStops(ctx, r.ID); err != nil {
			return nil, err
		}
	}
	return routes, nil
}

// Deliverable lists orders a new route can pick up.
func (s *Service) Deliverable(ctx context.Context) ([]*store.Order, error) {
	y, m, d := s.now().Date()
	return s.db.ListDeliverableOrders(ctx, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func logError(op string, err error) {
	if lifecycle.IsConflict(err) || store.IsNotFound(err) {
		return
	}
	if _, ok := lifecycle.AsValidation(err); ok {
		return
	}
	log.WithError(err).Errorf("routing: %s", op)
}
