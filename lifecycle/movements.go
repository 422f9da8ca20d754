package lifecycle

import (
	"context"
	"fmt"
	"time"

	"gasflow/store"
)

type MovementInput struct {
	InstanceID   int64              `json:"instance_id" validate:"required,gt=0"`
	MovementType string             `json:"movement_type" validate:"required,oneof=delivery return transfer maintenance acquisition"`
	Status       string             `json:"status" validate:"required,oneof=pending in_progress completed cancelled"`
	Source       *store.LocationRef `json:"source,omitempty"`
	Destination  store.LocationRef  `json:"destination"`
	RouteID      *int64             `json:"route_id,omitempty"`
	OrderID      *int64             `json:"order_id,omitempty"`
	MovementDate time.Time          `json:"movement_date"`
	Comments     string             `json:"comments" validate:"max=2000"`
}

// DestinationKind is the kind of location a movement of the given type must end at.
func DestinationKind(movementType string) store.LocationKind {
	if movementType == store.MovementDelivery {
		return store.LocationCustomer
	}
	return store.LocationDepot
}

func (s *Service) checkMovement(in *MovementInput) error {
	if err := ValidationFromValidator(s.validate.Struct(in)); err != nil {
		return err
	}
	want := DestinationKind(in.MovementType)
	if in.Destination.Kind == "" {
		in.Destination.Kind = want
	}
	if in.Destination.ID <= 0 {
		return Invalid("destination", "required")
	}
	if in.Destination.Kind != want {
		return Invalid("destination", fmt.Sprintf("a %s movement must end at a %s", in.MovementType, want))
	}
	if in.Source != nil && !in.Source.Valid() {
		return Invalid("source", "must be a depot or a customer")
	}
	if in.MovementDate.IsZero() {
		in.MovementDate = s.now()
	}
	return nil
}

// checkMovementRefs verifies every referenced row exists before any write.
func checkMovementRefs(ctx context.Context, q *store.Queries, in *MovementInput) error {
	if _, err := q.GetInstance(ctx, in.InstanceID); err != nil {
		if store.IsNotFound(err) {
			return Invalid("instance_id", "unknown instance")
		}
		return err
	}
	ok, err := refExists(ctx, q, in.Destination)
	if err != nil {
		return err
	}
	if !ok {
		return Invalid("destination", "unknown "+string(in.Destination.Kind))
	}
	if in.Source != nil {
		ok, err := refExists(ctx, q, *in.Source)
		if err != nil {
			return err
		}
		if !ok {
			return Invalid("source", "unknown "+string(in.Source.Kind))
		}
	}
	if in.RouteID != nil {
		if _, err := q.GetRoute(ctx, *in.RouteID); err != nil {
			if store.IsNotFound(err) {
				return Invalid("route_id", "unknown route")
			}
			return err
		}
	}
	if in.OrderID != nil {
		if _, err := q.GetOrder(ctx, *in.OrderID); err != nil {
			if store.IsNotFound(err) {
				return Invalid("order_id", "unknown order")
			}
			return err
		}
	}
	return nil
}

func (in *MovementInput) apply(m *store.Movement) {
	m.InstanceID = in.InstanceID
	m.MovementType = in.MovementType
	m.Status = in.Status
	m.Source = in.Source
	m.Destination = in.Destination
	m.RouteID = in.RouteID
	m.OrderID = in.OrderID
	m.MovementDate = in.MovementDate
	m.Comments = in.Comments
}

// RecordMovement appends a movement and refreshes the instance's cached
// location in the same transaction.
func (s *Service) RecordMovement(ctx context.Context, in MovementInput, actor string) (*store.Movement, error) {
	if err := s.checkMovement(&in); err != nil {
		return nil, err
	}
	m := &store.Movement{CreatedBy: actor}
	in.apply(m)
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := checkMovementRefs(ctx, q, &in); err != nil {
			return err
		}
		if err := q.CreateMovement(ctx, m); err != nil {
			return err
		}
		_, err := refreshCachedLocation(ctx, q, m.InstanceID)
		return err
	})
	logTx("record movement", err)
	if err != nil {
		return nil, err
	}
	s.emitter.EmitMovementRecorded(m.ID, m.InstanceID, m.MovementType, m.Status, m.Destination.String(), actor)
	return s.db.GetMovement(ctx, m.ID)
}

// UpdateMovement rewrites every field of a movement. When the instance
// changes, both the old and new instance caches are refreshed. A completed
// movement stays completed.
func (s *Service) UpdateMovement(ctx context.Context, id int64, in MovementInput, actor string) (*store.Movement, error) {
	if err := s.checkMovement(&in); err != nil {
		return nil, err
	}
	var oldStatus string
	var oldInstance int64
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		m, err := q.GetMovement(ctx, id)
		if err != nil {
			return err
		}
		oldStatus, oldInstance = m.Status, m.InstanceID
		if oldStatus == store.MovementCompleted && in.Status != store.MovementCompleted {
			return ConflictError("a completed movement cannot be moved back to %s", in.Status)
		}
		if err := checkMovementRefs(ctx, q, &in); err != nil {
			return err
		}
		in.apply(m)
		if err := q.UpdateMovement(ctx, m); err != nil {
			return err
		}
		if oldInstance != m.InstanceID {
			if _, err := refreshCachedLocation(ctx, q, oldInstance); err != nil {
				return err
			}
		}
		_, err = refreshCachedLocation(ctx, q, m.InstanceID)
		return err
	})
	logTx("update movement", err)
	if err != nil {
		return nil, err
	}
	s.emitter.EmitMovementUpdated(id, in.InstanceID, oldStatus, in.Status, actor)
	return s.db.GetMovement(ctx, id)
}

// DeleteMovement removes a movement unless it is completed.
func (s *Service) DeleteMovement(ctx context.Context, id int64, actor string) error {
	var instanceID int64
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		m, err := q.GetMovement(ctx, id)
		if err != nil {
			return err
		}
		if m.Status == store.MovementCompleted {
			return ConflictError("a completed movement cannot be deleted")
		}
		instanceID = m.InstanceID
		if err := q.DeleteMovement(ctx, id); err != nil {
			return err
		}
		_, err = refreshCachedLocation(ctx, q, instanceID)
		return err
	})
	logTx("delete movement", err)
	if err != nil {
		return err
	}
	s.emitter.EmitMovementDeleted(id, instanceID, actor)
	return nil
}

func (s *Service) GetMovement(ctx context.Context, id int64) (*store.Movement, error) {
	return s.db.GetMovement(ctx, id)
}

// ListMovements returns one page of movements, newest first.
func (s *Service) ListMovements(ctx context.Context, f store.MovementFilter, page int) (Page[*store.Movement], error) {
	page, offset := pageOffset(page)
	f.Limit, f.Offset = PageSize, offset
	items, total, err := s.db.ListMovements(ctx, f)
	if err != nil {
		return Page[*store.Movement]{}, err
	}
	return newPage(items, total, page), nil
}

// MovementView is a movement with its endpoints resolved to display names.
type MovementView struct {
	*store.Movement
	SourceName      string `json:"source_name"`
	DestinationName string `json:"destination_name"`
}

type InstanceHistory struct {
	Instance     *store.ProductInstance `json:"instance"`
	Location     DerivedLocation        `json:"location"`
	Movements    []*MovementView        `json:"movements"`
	Maintenances []*store.Maintenance   `json:"maintenances"`
}

// History returns the full ledger of one instance with its derived location.
func (s *Service) History(ctx context.Context, instanceID int64) (*InstanceHistory, error) {
	inst, err := s.db.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	h := &InstanceHistory{Instance: inst}
	if h.Location, err = s.Location(ctx, instanceID); err != nil {
		return nil, err
	}
	movements, err := s.db.ListInstanceMovements(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	names := make(map[store.LocationRef]string)
	resolve := func(ref store.LocationRef) (string, error) {
		if n, ok := names[ref]; ok {
			return n, nil
		}
		n, err := refName(ctx, s.db.Queries, ref)
		names[ref] = n
		return n, err
	}
	for _, m := range movements {
		v := &MovementView{Movement: m}
		if m.Source != nil {
			if v.SourceName, err = resolve(*m.Source); err != nil {
				return nil, err
			}
		}
		if v.DestinationName, err = resolve(m.Destination); err != nil {
			return nil, err
		}
		h.Movements = append(h.Movements, v)
	}
	h.Maintenances, err = s.db.ListInstanceMaintenances(ctx, instanceID)
	return h, err
}

type TrackedInstance struct {
	Instance *store.ProductInstance `json:"instance"`
	Location DerivedLocation        `json:"location"`
}

// Tracking derives the location of every instance matching f. A non-empty
// category keeps only instances currently in that category.
func (s *Service) Tracking(ctx context.Context, f store.InstanceFilter, category string) ([]*TrackedInstance, error) {
	instances, err := s.db.ListInstances(ctx, f)
	if err != nil {
		return nil, err
	}
	var out []*TrackedInstance
	for _, inst := range instances {
		loc, err := s.Location(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		if category != "" && loc.Category != category {
			continue
		}
		out = append(out, &TrackedInstance{Instance: inst, Location: loc})
	}
	return out, nil
}
