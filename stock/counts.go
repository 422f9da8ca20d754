package stock

import (
	"context"
	"fmt"

	"gasflow/lifecycle"
	"gasflow/store"
)

// CreateCountOrder opens a physical count of a depot. A line without an
// expected quantity takes the depot's current on-hand count.
func (s *Service) CreateCountOrder(ctx context.Context, in CountOrderInput, actor string) (*store.InventoryOrder, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	if in.PlannedDate.IsZero() {
		in.PlannedDate = s.now()
	}
	o := &store.InventoryOrder{
		Reference:   store.NewNumber("INV", in.PlannedDate),
		DepotID:     in.DepotID,
		Status:      store.CountPending,
		PlannedDate: in.PlannedDate,
		Comments:    in.Comments,
		CreatedBy:   actor,
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := requireDepot(ctx, q, in.DepotID); err != nil {
			return err
		}
		seen := make(map[int64]bool, len(in.Lines))
		for i, l := range in.Lines {
			field := fmt.Sprintf("lines[%d].product_id", i)
			if seen[l.ProductID] {
				return lifecycle.Invalid(field, "product listed twice")
			}
			seen[l.ProductID] = true
			if err := requireProduct(ctx, q, field, l.ProductID); err != nil {
				return err
			}
		}
		if err := q.CreateInventoryOrder(ctx, o); err != nil {
			return err
		}
		for _, l := range in.Lines {
			expected := 0
			if l.ExpectedQuantity != nil {
				expected = *l.ExpectedQuantity
			} else {
				qty, err := q.InventoryQuantity(ctx, in.DepotID, l.ProductID)
				if err != nil {
					return err
				}
				expected = qty
			}
			line := &store.InventoryOrderLine{InventoryOrderID: o.ID, ProductID: l.ProductID, ExpectedQuantity: expected}
			if err := q.CreateInventoryOrderLine(ctx, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logError("create count order", err)
		return nil, err
	}
	return s.db.GetInventoryOrder(ctx, o.ID)
}

// StartCountOrder moves a pending count to in_progress.
func (s *Service) StartCountOrder(ctx context.Context, id int64) (*store.InventoryOrder, error) {
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		o, err := q.GetInventoryOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != store.CountPending {
			return countConflict(o, "started")
		}
		return q.SetInventoryOrderStatus(ctx, id, store.CountInProgress, s.now())
	})
	if err != nil {
		logError("start count order", err)
		return nil, err
	}
	return s.db.GetInventoryOrder(ctx, id)
}

// CompleteCountOrder records the counted quantity of every line, stores the
// difference against the expected quantity and overwrites the depot's
// inventory with the counted figures.
func (s *Service) CompleteCountOrder(ctx context.Context, id int64, results []CountResult, actor string) (*store.InventoryOrder, error) {
	for i := range results {
		if err := lifecycle.ValidationFromValidator(s.validate.Struct(&results[i])); err != nil {
			return nil, err
		}
	}
	var o *store.InventoryOrder
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		var err error
		o, err = q.GetInventoryOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != store.CountInProgress {
			return countConflict(o, "completed")
		}
		counted := make(map[int64]int, len(results))
		for _, r := range results {
			counted[r.LineID] = r.Counted
		}
		for i, l := range o.Lines {
			c, ok := counted[l.ID]
			if !ok {
				return lifecycle.Invalid(fmt.Sprintf("lines[%d].counted_quantity", i), "required")
			}
			delete(counted, l.ID)
			if err := q.SetInventoryOrderLineCount(ctx, l.ID, c, c-l.ExpectedQuantity); err != nil {
				return err
			}
			if err := q.SetInventoryQuantity(ctx, o.DepotID, l.ProductID, c, actor); err != nil {
				return err
			}
		}
		if len(counted) > 0 {
			return lifecycle.Invalid("line_id", "unknown line for this order")
		}
		return q.SetInventoryOrderStatus(ctx, id, store.CountCompleted, s.now())
	})
	if err != nil {
		logError("complete count order", err)
		return nil, err
	}
	s.refresh(ctx, o.DepotID)
	s.emitter.EmitCountCompleted(o.ID, o.Reference, o.DepotID, actor)
	return s.db.GetInventoryOrder(ctx, id)
}

// CancelCountOrder cancels a pending or in-progress count. Inventory is left
// untouched.
func (s *Service) CancelCountOrder(ctx context.Context, id int64) (*store.InventoryOrder, error) {
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		o, err := q.GetInventoryOrder(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != store.CountPending && o.Status != store.CountInProgress {
			return countConflict(o, "cancelled")
		}
		return q.SetInventoryOrderStatus(ctx, id, store.CountCancelled, s.now())
	})
	if err != nil {
		logError("cancel count order", err)
		return nil, err
	}
	return s.db.GetInventoryOrder(ctx, id)
}

func (s *Service) GetCountOrder(ctx context.Context, id int64) (*store.InventoryOrder, error) {
	return s.db.GetInventoryOrder(ctx, id)
}

func (s *Service) CountOrders(ctx context.Context, status string) ([]*store.InventoryOrder, error) {
	return s.db.ListInventoryOrders(ctx, status)
}
