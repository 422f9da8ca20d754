package lifecycle

import (
	"context"
	"time"

	"gasflow/store"
)

type InstanceInput struct {
	ProductID       int64      `json:"product_id" validate:"required,gt=0"`
	SerialNumber    string     `json:"serial_number" validate:"required,max=50"`
	Barcode         string     `json:"barcode" validate:"max=100"`
	Ownership       string     `json:"ownership" validate:"omitempty,oneof=company customer"`
	ValveType       string     `json:"valve_type" validate:"max=50"`
	Manufacturer    string     `json:"manufacturer" validate:"max=100"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	ExpirationDate  *time.Time `json:"expiration_date,omitempty"`
	LastTestDate    *time.Time `json:"last_test_date,omitempty"`
	State           string     `json:"state" validate:"omitempty,oneof=active damaged in_repair retired"`
	// InitialDepotID, when set on registration, records an acquisition
	// movement into that depot.
	InitialDepotID *int64 `json:"initial_depot_id,omitempty"`
}

func (s *Service) checkInstance(in *InstanceInput) error {
	if err := ValidationFromValidator(s.validate.Struct(in)); err != nil {
		return err
	}
	if in.ManufactureDate != nil && in.ExpirationDate != nil && in.ExpirationDate.Before(*in.ManufactureDate) {
		return Invalid("expiration_date", "before manufacture_date")
	}
	return nil
}

func (in *InstanceInput) apply(inst *store.ProductInstance) {
	inst.Barcode = in.Barcode
	inst.Ownership = in.Ownership
	inst.ValveType = in.ValveType
	inst.Manufacturer = in.Manufacturer
	inst.ManufactureDate = in.ManufactureDate
	inst.ExpirationDate = in.ExpirationDate
	inst.LastTestDate = in.LastTestDate
	inst.State = in.State
}

// RegisterInstance adds a serialized unit. With an initial depot the
// acquisition movement is written in the same transaction.
func (s *Service) RegisterInstance(ctx context.Context, in InstanceInput, actor string) (*store.ProductInstance, error) {
	if err := s.checkInstance(&in); err != nil {
		return nil, err
	}
	inst := &store.ProductInstance{ProductID: in.ProductID, SerialNumber: in.SerialNumber}
	in.apply(inst)
	if inst.ExpirationDate == nil && inst.ManufactureDate != nil {
		// Pressure vessels are requalified every ten years.
		exp := inst.ManufactureDate.AddDate(10, 0, 0)
		inst.ExpirationDate = &exp
	}
	var mv *store.Movement
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if _, err := q.GetProduct(ctx, in.ProductID); err != nil {
			if store.IsNotFound(err) {
				return Invalid("product_id", "unknown product")
			}
			return err
		}
		if _, err := q.GetInstanceBySerial(ctx, in.SerialNumber); err == nil {
			return Invalid("serial_number", "already registered")
		} else if !store.IsNotFound(err) {
			return err
		}
		if err := q.CreateInstance(ctx, inst); err != nil {
			return err
		}
		if in.InitialDepotID == nil {
			return nil
		}
		if err := requireDepot(ctx, q, "initial_depot_id", *in.InitialDepotID); err != nil {
			return err
		}
		mv = &store.Movement{
			InstanceID:   inst.ID,
			MovementType: store.MovementAcquisition,
			Status:       store.MovementCompleted,
			Destination:  store.DepotRef(*in.InitialDepotID),
			MovementDate: s.now(),
			Comments:     "Initial registration",
			CreatedBy:    actor,
		}
		if err := q.CreateMovement(ctx, mv); err != nil {
			return err
		}
		_, err := refreshCachedLocation(ctx, q, inst.ID)
		return err
	})
	logTx("register instance", err)
	if err != nil {
		return nil, err
	}
	if mv != nil {
		s.emitter.EmitMovementRecorded(mv.ID, mv.InstanceID, mv.MovementType, mv.Status, mv.Destination.String(), actor)
	}
	return s.db.GetInstance(ctx, inst.ID)
}

// UpdateInstance rewrites the registration attributes. Product and serial
// number are fixed once registered.
func (s *Service) UpdateInstance(ctx context.Context, id int64, in InstanceInput, actor string) (*store.ProductInstance, error) {
	if err := s.checkInstance(&in); err != nil {
		return nil, err
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		inst, err := q.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		if in.State == "" {
			in.State = inst.State
		}
		if in.Ownership == "" {
			in.Ownership = inst.Ownership
		}
		in.apply(inst)
		return q.UpdateInstanceAttributes(ctx, inst)
	})
	logTx("update instance", err)
	if err != nil {
		return nil, err
	}
	return s.db.GetInstance(ctx, id)
}

// SetState changes the safety state. A retired instance stays retired.
func (s *Service) SetState(ctx context.Context, id int64, state, actor string) error {
	switch state {
	case store.StateActive, store.StateDamaged, store.StateInRepair, store.StateRetired:
	default:
		return Invalid("state", "oneof=active damaged in_repair retired")
	}
	var old *store.ProductInstance
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		inst, err := q.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		if inst.State == store.StateRetired && state != store.StateRetired {
			return ConflictError("instance %s is retired", inst.SerialNumber)
		}
		old = inst
		return q.SetInstanceState(ctx, id, state)
	})
	logTx("set instance state", err)
	if err != nil {
		return err
	}
	if old.State != state {
		s.emitter.EmitInstanceStatusChanged(id, old.SerialNumber, old.State, state, actor)
	}
	return nil
}

// Retire takes an instance out of service. Instances are never deleted.
func (s *Service) Retire(ctx context.Context, id int64, actor string) error {
	return s.SetState(ctx, id, store.StateRetired, actor)
}

func (s *Service) GetInstance(ctx context.Context, id int64) (*store.ProductInstance, error) {
	return s.db.GetInstance(ctx, id)
}

func (s *Service) GetInstanceBySerial(ctx context.Context, serial string) (*store.ProductInstance, error) {
	return s.db.GetInstanceBySerial(ctx, serial)
}

func (s *Service) ListInstances(ctx context.Context, f store.InstanceFilter) ([]*store.ProductInstance, error) {
	return s.db.ListInstances(ctx, f)
}

// ScheduleCandidates lists cylinders whose next inspection falls within the
// scheduling horizon or was never set.
func (s *Service) ScheduleCandidates(ctx context.Context) ([]*store.ProductInstance, error) {
	return s.db.ListInspectionDue(ctx, today(s.now()).Add(s.opts.ScheduleHorizon))
}

// DamagedInstance pairs a damaged or in-repair unit with its latest maintenance.
type DamagedInstance struct {
	Instance          *store.ProductInstance `json:"instance"`
	LatestMaintenance *store.Maintenance     `json:"latest_maintenance,omitempty"`
}

func (s *Service) Damaged(ctx context.Context) ([]*DamagedInstance, error) {
	instances, err := s.db.ListDamagedInstances(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*DamagedInstance, 0, len(instances))
	for _, inst := range instances {
		d := &DamagedInstance{Instance: inst}
		m, err := s.db.LatestMaintenance(ctx, inst.ID)
		switch {
		case err == nil:
			d.LatestMaintenance = m
		case !store.IsNotFound(err):
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
