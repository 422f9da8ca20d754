package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"gasflow/store"
)

type MaintenanceInput struct {
	InstanceID          int64            `json:"instance_id" validate:"required,gt=0"`
	MaintenanceType     string           `json:"maintenance_type" validate:"required,oneof=inspection test repair certification"`
	Status              string           `json:"status" validate:"required,oneof=planned in_progress completed cancelled"`
	PlannedDate         time.Time        `json:"planned_date"`
	ActualDate          *time.Time       `json:"actual_date,omitempty"`
	Result              string           `json:"maintenance_result" validate:"omitempty,oneof=passed failed needs_repair"`
	Cost                *decimal.Decimal `json:"cost,omitempty"`
	NextMaintenanceDate *time.Time       `json:"next_maintenance_date,omitempty"`
	CertificateNumber   string           `json:"certificate_number" validate:"max=50"`
	PerformedBy         string           `json:"performed_by" validate:"max=100"`
	DestinationDepotID  *int64           `json:"destination_depot_id,omitempty"`
	Comments            string           `json:"comments" validate:"max=2000"`
}

// CompletionInput is what a technician submits when closing a maintenance.
type CompletionInput struct {
	ActualDate          time.Time        `json:"actual_date"`
	Result              string           `json:"maintenance_result" validate:"required,oneof=passed failed needs_repair"`
	PerformedBy         string           `json:"performed_by" validate:"required,max=100"`
	Cost                *decimal.Decimal `json:"cost,omitempty"`
	NextMaintenanceDate *time.Time       `json:"next_maintenance_date"`
	CertificateNumber   string           `json:"certificate_number" validate:"max=50"`
	Comments            string           `json:"comments" validate:"max=2000"`
	DestinationDepotID  int64            `json:"destination_depot_id" validate:"required,gt=0"`
}

// transitions lists the statuses reachable from each non-terminal status.
var transitions = map[string][]string{
	store.MaintenancePlanned:    {store.MaintenanceInProgress, store.MaintenanceCompleted, store.MaintenanceCancelled},
	store.MaintenanceInProgress: {store.MaintenanceCompleted, store.MaintenanceCancelled},
}

// CanTransition reports whether a maintenance may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a maintenance status accepts no further transition.
func IsTerminal(status string) bool {
	return status == store.MaintenanceCompleted || status == store.MaintenanceCancelled
}

func maintenanceLockKey(id int64) string {
	return fmt.Sprintf("gasflow:maintenance:%d", id)
}

func checkCost(c *decimal.Decimal) error {
	if c != nil && c.IsNegative() {
		return Invalid("cost", "min")
	}
	return nil
}

func nullCost(c *decimal.Decimal) decimal.NullDecimal {
	if c == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*c)
}

func (s *Service) checkMaintenance(in *MaintenanceInput) error {
	if err := ValidationFromValidator(s.validate.Struct(in)); err != nil {
		return err
	}
	if in.PlannedDate.IsZero() {
		return Invalid("planned_date", "required")
	}
	return checkCost(in.Cost)
}

func requireInstance(ctx context.Context, q *store.Queries, id int64) (*store.ProductInstance, error) {
	inst, err := q.GetInstance(ctx, id)
	if store.IsNotFound(err) {
		return nil, Invalid("instance_id", "unknown instance")
	}
	return inst, err
}

func requireDepot(ctx context.Context, q *store.Queries, field string, id int64) error {
	_, err := q.GetDepot(ctx, id)
	if store.IsNotFound(err) {
		return Invalid(field, "unknown depot")
	}
	return err
}

// CreateMaintenance schedules a maintenance. Creating it directly in
// progress parks the instance at the maintenance depot.
func (s *Service) CreateMaintenance(ctx context.Context, in MaintenanceInput, actor string) (*store.Maintenance, error) {
	if err := s.checkMaintenance(&in); err != nil {
		return nil, err
	}
	if in.Status != store.MaintenancePlanned && in.Status != store.MaintenanceInProgress {
		return nil, Invalid("status", "oneof=planned in_progress")
	}
	m := &store.Maintenance{
		InstanceID:      in.InstanceID,
		MaintenanceType: in.MaintenanceType,
		Status:          in.Status,
		PlannedDate:     in.PlannedDate,
		Cost:            nullCost(in.Cost),
		Comments:        in.Comments,
	}
	var after afterCommit
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		inst, err := requireInstance(ctx, q, in.InstanceID)
		if err != nil {
			return err
		}
		if err := q.CreateMaintenance(ctx, m); err != nil {
			return err
		}
		after.add(func() {
			s.emitter.EmitMaintenanceCreated(m.ID, m.InstanceID, m.MaintenanceType, m.Status, actor)
		})
		if m.Status == store.MaintenanceInProgress {
			return s.startMaintenance(ctx, q, m, inst, actor, &after)
		}
		return nil
	})
	logTx("create maintenance", err)
	if err != nil {
		return nil, err
	}
	after.run()
	return s.db.GetMaintenance(ctx, m.ID)
}

// UpdateMaintenance persists every field and, when the status changes,
// runs the side effects of that transition. Resubmitting the current status
// only persists the fields.
func (s *Service) UpdateMaintenance(ctx context.Context, id int64, in MaintenanceInput, actor string) (*store.Maintenance, error) {
	if err := s.checkMaintenance(&in); err != nil {
		return nil, err
	}
	err := s.withLock(ctx, maintenanceLockKey(id), func() error {
		var after afterCommit
		err := s.db.WithTx(ctx, func(q *store.Queries) error {
			m, err := q.GetMaintenance(ctx, id)
			if err != nil {
				return err
			}
			from := m.Status
			changed := from != in.Status
			if changed && !CanTransition(from, in.Status) {
				return ConflictError("maintenance cannot go from %s to %s", from, in.Status)
			}
			inst, err := requireInstance(ctx, q, in.InstanceID)
			if err != nil {
				return err
			}
			if changed && in.Status == store.MaintenanceCompleted {
				if in.Result == "" {
					return Invalid("maintenance_result", "required")
				}
				if in.DestinationDepotID == nil {
					return Invalid("destination_depot_id", "required")
				}
				if err := requireDepot(ctx, q, "destination_depot_id", *in.DestinationDepotID); err != nil {
					return err
				}
				if in.ActualDate == nil {
					now := today(s.now())
					in.ActualDate = &now
				}
				if in.NextMaintenanceDate == nil {
					next := in.ActualDate.Add(s.opts.InspectionPeriod)
					in.NextMaintenanceDate = &next
				}
			}

			m.InstanceID = in.InstanceID
			m.MaintenanceType = in.MaintenanceType
			m.Status = in.Status
			m.PlannedDate = in.PlannedDate
			m.ActualDate = in.ActualDate
			m.Result = in.Result
			m.Cost = nullCost(in.Cost)
			m.NextMaintenanceDate = in.NextMaintenanceDate
			m.CertificateNumber = in.CertificateNumber
			m.PerformedBy = in.PerformedBy
			m.DestinationDepotID = in.DestinationDepotID
			m.Comments = in.Comments
			if err := q.UpdateMaintenance(ctx, m); err != nil {
				return err
			}
			if !changed {
				return nil
			}
			return s.transition(ctx, q, m, inst, from, actor, &after)
		})
		if err == nil {
			after.run()
		}
		return err
	})
	logTx("update maintenance", err)
	if err != nil {
		return nil, err
	}
	return s.db.GetMaintenance(ctx, id)
}

// StartMaintenance moves a planned maintenance to in progress.
func (s *Service) StartMaintenance(ctx context.Context, id int64, actor string) (*store.Maintenance, error) {
	return s.changeStatus(ctx, id, store.MaintenanceInProgress, actor, nil)
}

// CompleteMaintenance closes a planned or in-progress maintenance with its result.
func (s *Service) CompleteMaintenance(ctx context.Context, id int64, in CompletionInput, actor string) (*store.Maintenance, error) {
	if err := ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	if in.ActualDate.IsZero() {
		return nil, Invalid("actual_date", "required")
	}
	if in.NextMaintenanceDate == nil {
		return nil, Invalid("next_maintenance_date", "required")
	}
	if err := checkCost(in.Cost); err != nil {
		return nil, err
	}
	return s.changeStatus(ctx, id, store.MaintenanceCompleted, actor, func(ctx context.Context, q *store.Queries, m *store.Maintenance) error {
		if err := requireDepot(ctx, q, "destination_depot_id", in.DestinationDepotID); err != nil {
			return err
		}
		actual := in.ActualDate
		dest := in.DestinationDepotID
		m.ActualDate = &actual
		m.Result = in.Result
		m.PerformedBy = in.PerformedBy
		m.Cost = nullCost(in.Cost)
		m.NextMaintenanceDate = in.NextMaintenanceDate
		m.CertificateNumber = in.CertificateNumber
		m.Comments = in.Comments
		m.DestinationDepotID = &dest
		return nil
	})
}

// CancelMaintenance cancels a planned or in-progress maintenance.
func (s *Service) CancelMaintenance(ctx context.Context, id int64, actor string) (*store.Maintenance, error) {
	return s.changeStatus(ctx, id, store.MaintenanceCancelled, actor, nil)
}

func (s *Service) changeStatus(ctx context.Context, id int64, to, actor string,
	prepare func(ctx context.Context, q *store.Queries, m *store.Maintenance) error) (*store.Maintenance, error) {
	err := s.withLock(ctx, maintenanceLockKey(id), func() error {
		var after afterCommit
		err := s.db.WithTx(ctx, func(q *store.Queries) error {
			m, err := q.GetMaintenance(ctx, id)
			if err != nil {
				return err
			}
			from := m.Status
			if !CanTransition(from, to) {
				return ConflictError("maintenance cannot go from %s to %s", from, to)
			}
			inst, err := requireInstance(ctx, q, m.InstanceID)
			if err != nil {
				return err
			}
			if prepare != nil {
				if err := prepare(ctx, q, m); err != nil {
					return err
				}
			}
			m.Status = to
			if err := q.UpdateMaintenance(ctx, m); err != nil {
				return err
			}
			return s.transition(ctx, q, m, inst, from, actor, &after)
		})
		if err == nil {
			after.run()
		}
		return err
	})
	logTx("maintenance "+to, err)
	if err != nil {
		return nil, err
	}
	return s.db.GetMaintenance(ctx, id)
}

// transition applies the side effects of m having moved from `from` to m.Status.
func (s *Service) transition(ctx context.Context, q *store.Queries, m *store.Maintenance, inst *store.ProductInstance,
	from, actor string, after *afterCommit) error {
	var err error
	switch m.Status {
	case store.MaintenanceInProgress:
		err = s.startMaintenance(ctx, q, m, inst, actor, after)
	case store.MaintenanceCompleted:
		err = s.completeMaintenance(ctx, q, m, inst, actor, after)
	case store.MaintenanceCancelled:
		err = s.cancelMaintenance(ctx, q, m, inst, actor, after)
	}
	if err != nil {
		return err
	}
	after.add(func() {
		s.emitter.EmitMaintenanceTransitioned(m.ID, m.InstanceID, from, m.Status, m.Result, actor)
	})
	return nil
}

// currentRef is the instance's cached location as a movement source, if it
// points at a depot or customer.
func currentRef(inst *store.ProductInstance) *store.LocationRef {
	if inst.LocationID == nil {
		return nil
	}
	switch inst.LocationCategory {
	case CategoryCustomer:
		ref := store.CustomerRef(*inst.LocationID)
		return &ref
	case CategoryDepot, CategoryMaintenance:
		ref := store.DepotRef(*inst.LocationID)
		return &ref
	}
	return nil
}

// autoMovement records a completed system movement and refreshes the cache.
func (s *Service) autoMovement(ctx context.Context, q *store.Queries, inst *store.ProductInstance, movementType string,
	dest store.LocationRef, comments, actor string, after *afterCommit) error {
	mv := &store.Movement{
		InstanceID:   inst.ID,
		MovementType: movementType,
		Status:       store.MovementCompleted,
		Source:       currentRef(inst),
		Destination:  dest,
		MovementDate: s.now(),
		Comments:     comments,
		CreatedBy:    actor,
	}
	if err := q.CreateMovement(ctx, mv); err != nil {
		return err
	}
	if _, err := refreshCachedLocation(ctx, q, inst.ID); err != nil {
		return err
	}
	after.add(func() {
		s.emitter.EmitMovementRecorded(mv.ID, mv.InstanceID, mv.MovementType, mv.Status, mv.Destination.String(), actor)
	})
	return nil
}

func (s *Service) setStatus(ctx context.Context, q *store.Queries, inst *store.ProductInstance, status, actor string, after *afterCommit) error {
	if err := q.SetInstanceStatus(ctx, inst.ID, status, "", nil); err != nil {
		return err
	}
	// SetInstanceStatus cleared the cached location; rebuild it from the ledger.
	if _, err := refreshCachedLocation(ctx, q, inst.ID); err != nil {
		return err
	}
	if status != inst.Status {
		old := inst.Status
		after.add(func() {
			s.emitter.EmitInstanceStatusChanged(inst.ID, inst.SerialNumber, old, status, actor)
		})
	}
	return nil
}

func (s *Service) startMaintenance(ctx context.Context, q *store.Queries, m *store.Maintenance, inst *store.ProductInstance,
	actor string, after *afterCommit) error {
	depot, err := q.MaintenanceDepot(ctx)
	if store.IsNotFound(err) {
		log.Printf("lifecycle: no depot configured, maintenance %d starts without a movement", m.ID)
		return nil
	}
	if err != nil {
		return err
	}
	comments := fmt.Sprintf("Automatic movement for %s maintenance", m.MaintenanceType)
	if err := s.autoMovement(ctx, q, inst, store.MovementMaintenance, store.DepotRef(depot.ID), comments, actor, after); err != nil {
		return err
	}
	return s.setStatus(ctx, q, inst, store.InstanceMaintenance, actor, after)
}

func (s *Service) completeMaintenance(ctx context.Context, q *store.Queries, m *store.Maintenance, inst *store.ProductInstance,
	actor string, after *afterCommit) error {
	status := store.InstanceActive
	switch m.Result {
	case store.ResultFailed:
		status = store.InstanceInactive
	case store.ResultNeedsRepair:
		status = store.InstanceInactive
		repair := &store.Maintenance{
			InstanceID:      inst.ID,
			MaintenanceType: store.MaintenanceRepair,
			Status:          store.MaintenancePlanned,
			PlannedDate:     today(s.now()).Add(s.opts.RepairFollowUp),
			Comments:        fmt.Sprintf("Repair required after %s", m.MaintenanceType),
		}
		if err := q.CreateMaintenance(ctx, repair); err != nil {
			return fmt.Errorf("schedule repair: %w", err)
		}
		after.add(func() {
			s.emitter.EmitMaintenanceCreated(repair.ID, repair.InstanceID, repair.MaintenanceType, repair.Status, actor)
		})
	}

	if m.DestinationDepotID == nil {
		return Invalid("destination_depot_id", "required")
	}
	comments := fmt.Sprintf("Automatic return after %s maintenance", m.MaintenanceType)
	if err := s.autoMovement(ctx, q, inst, store.MovementReturn, store.DepotRef(*m.DestinationDepotID), comments, actor, after); err != nil {
		return err
	}
	if err := s.setStatus(ctx, q, inst, status, actor, after); err != nil {
		return err
	}
	last := today(s.now())
	if m.ActualDate != nil {
		last = *m.ActualDate
	}
	return q.SetInstanceInspection(ctx, inst.ID, last, m.NextMaintenanceDate)
}

func (s *Service) cancelMaintenance(ctx context.Context, q *store.Queries, m *store.Maintenance, inst *store.ProductInstance,
	actor string, after *afterCommit) error {
	if inst.Status != store.InstanceMaintenance {
		return nil
	}
	depot, err := q.FirstDepot(ctx)
	if store.IsNotFound(err) {
		log.Printf("lifecycle: no depot configured, instance %d stays in maintenance after cancelling %d", inst.ID, m.ID)
		return nil
	}
	if err != nil {
		return err
	}
	comments := "Automatic return after maintenance cancellation"
	if err := s.autoMovement(ctx, q, inst, store.MovementReturn, store.DepotRef(depot.ID), comments, actor, after); err != nil {
		return err
	}
	return s.setStatus(ctx, q, inst, store.InstanceActive, actor, after)
}

// DeleteMaintenance removes a planned or cancelled maintenance.
func (s *Service) DeleteMaintenance(ctx context.Context, id int64, actor string) error {
	var instanceID int64
	err := s.withLock(ctx, maintenanceLockKey(id), func() error {
		return s.db.WithTx(ctx, func(q *store.Queries) error {
			m, err := q.GetMaintenance(ctx, id)
			if err != nil {
				return err
			}
			if m.Status == store.MaintenanceInProgress || m.Status == store.MaintenanceCompleted {
				return ConflictError("an in-progress or completed maintenance cannot be deleted")
			}
			instanceID = m.InstanceID
			return q.DeleteMaintenance(ctx, id)
		})
	})
	logTx("delete maintenance", err)
	if err != nil {
		return err
	}
	s.emitter.EmitMaintenanceDeleted(id, instanceID, actor)
	return nil
}

func (s *Service) GetMaintenance(ctx context.Context, id int64) (*store.Maintenance, error) {
	return s.db.GetMaintenance(ctx, id)
}

// ListMaintenance returns one page of maintenances. overdue restricts the
// list to planned rows whose planned date has passed.
func (s *Service) ListMaintenance(ctx context.Context, f store.MaintenanceFilter, overdue bool, page int) (Page[*store.Maintenance], error) {
	page, offset := pageOffset(page)
	f.Limit, f.Offset = PageSize, offset
	if overdue {
		now := today(s.now())
		f.OverdueAt = &now
	}
	items, total, err := s.db.ListMaintenances(ctx, f)
	if err != nil {
		return Page[*store.Maintenance]{}, err
	}
	return newPage(items, total, page), nil
}

// Overdue returns every planned maintenance whose planned date has passed.
func (s *Service) Overdue(ctx context.Context) ([]*store.Maintenance, error) {
	now := today(s.now())
	items, _, err := s.db.ListMaintenances(ctx, store.MaintenanceFilter{OverdueAt: &now, Sort: "planned_date"})
	return items, err
}
