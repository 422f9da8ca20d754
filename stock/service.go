// Package stock keeps per-depot inventory counts: manual adjustments,
// low-stock alerts, the sales forecast and physical count orders.
package stock

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
	"gasflow/store"
)

type AdjustInput struct {
	DepotID   int64  `json:"depot_id" validate:"required,gt=0"`
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"min=0"`
	Reason    string `json:"reason" validate:"max=500"`
}

type AlertInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Threshold int   `json:"threshold" validate:"required,min=1"`
	Active    bool  `json:"active"`
}

type CountLineInput struct {
	ProductID        int64 `json:"product_id" validate:"required,gt=0"`
	ExpectedQuantity *int  `json:"expected_quantity,omitempty" validate:"omitempty,min=0"`
}

type CountOrderInput struct {
	DepotID     int64            `json:"depot_id" validate:"required,gt=0"`
	PlannedDate time.Time        `json:"planned_date"`
	Comments    string           `json:"comments" validate:"max=2000"`
	Lines       []CountLineInput `json:"lines" validate:"required,min=1,dive"`
}

type CountResult struct {
	LineID  int64 `json:"line_id" validate:"required,gt=0"`
	Counted int   `json:"counted_quantity" validate:"min=0"`
}

type Service struct {
	db       *store.DB
	emitter  EventEmitter
	cache    Cache
	validate *validator.Validate
	now      func() time.Time
}

func NewService(db *store.DB, emitter EventEmitter, cache Cache) *Service {
	return &Service{
		db:       db,
		emitter:  emitter,
		cache:    cache,
		validate: lifecycle.NewValidator(),
		now:      time.Now,
	}
}

func (s *Service) refresh(ctx context.Context, depotID int64) {
	if s.cache != nil {
		s.cache.RefreshDepot(ctx, depotID)
	}
}

func requireDepot(ctx context.Context, q *store.Queries, id int64) error {
	if _, err := q.GetDepot(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return lifecycle.Invalid("depot_id", "unknown depot")
		}
		return err
	}
	return nil
}

func requireProduct(ctx context.Context, q *store.Queries, field string, id int64) error {
	if _, err := q.GetProduct(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return lifecycle.Invalid(field, "unknown product")
		}
		return err
	}
	return nil
}

// Adjust sets the on-hand count of a product in a depot and records the
// old and new quantities in the adjustment history.
func (s *Service) Adjust(ctx context.Context, in AdjustInput, actor string) (*store.InventoryAdjustment, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	adj := &store.InventoryAdjustment{
		DepotID:     in.DepotID,
		ProductID:   in.ProductID,
		NewQuantity: in.Quantity,
		Reason:      in.Reason,
		Actor:       actor,
	}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := requireDepot(ctx, q, in.DepotID); err != nil {
			return err
		}
		if err := requireProduct(ctx, q, "product_id", in.ProductID); err != nil {
			return err
		}
		old, err := q.InventoryQuantity(ctx, in.DepotID, in.ProductID)
		if err != nil {
			return err
		}
		adj.OldQuantity = old
		if err := q.SetInventoryQuantity(ctx, in.DepotID, in.ProductID, in.Quantity, actor); err != nil {
			return err
		}
		return q.CreateInventoryAdjustment(ctx, adj)
	})
	if err != nil {
		logError("adjust", err)
		return nil, err
	}
	s.refresh(ctx, in.DepotID)
	s.emitter.EmitStockAdjusted(adj.DepotID, adj.ProductID, adj.OldQuantity, adj.NewQuantity, adj.Reason, actor)
	return adj, nil
}

func (s *Service) Adjustments(ctx context.Context, depotID, productID int64, limit int) ([]*store.InventoryAdjustment, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.ListInventoryAdjustments(ctx, depotID, productID, limit)
}

func (s *Service) Inventory(ctx context.Context) ([]*store.InventoryItem, error) {
	return s.db.ListInventory(ctx)
}

func (s *Service) DepotInventory(ctx context.Context, depotID int64) ([]*store.InventoryItem, error) {
	return s.db.ListDepotInventory(ctx, depotID)
}

// Overview is the per-product stock total with alert state.
func (s *Service) Overview(ctx context.Context) ([]*store.ProductStock, error) {
	return s.db.StockByProduct(ctx)
}

func (s *Service) Stats(ctx context.Context) (*store.StockStats, error) {
	return s.db.StockStats(ctx)
}

// LowStock returns the products whose total is under their active threshold.
func (s *Service) LowStock(ctx context.Context) ([]*store.ProductStock, error) {
	all, err := s.db.StockByProduct(ctx)
	if err != nil {
		return nil, err
	}
	var out []*store.ProductStock
	for _, p := range all {
		if p.BelowAlert {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Alerts ---

// SetAlert creates or replaces the alert of a product.
func (s *Service) SetAlert(ctx context.Context, in AlertInput) (*store.StockAlert, error) {
	if err := lifecycle.ValidationFromValidator(s.validate.Struct(&in)); err != nil {
		return nil, err
	}
	a := &store.StockAlert{ProductID: in.ProductID, Threshold: in.Threshold, Active: in.Active}
	err := s.db.WithTx(ctx, func(q *store.Queries) error {
		if err := requireProduct(ctx, q, "product_id", in.ProductID); err != nil {
			return err
		}
		return q.UpsertStockAlert(ctx, a)
	})
	if err != nil {
		logError("set alert", err)
		return nil, err
	}
	return s.db.GetStockAlert(ctx, a.ID)
}

func (s *Service) UpdateAlert(ctx context.Context, id int64, threshold int, active bool) (*store.StockAlert, error) {
	if threshold < 1 {
		return nil, lifecycle.Invalid("threshold", "min")
	}
	a, err := s.db.GetStockAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Threshold, a.Active = threshold, active
	if err := s.db.UpdateStockAlert(ctx, a); err != nil {
		logError("update alert", err)
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAlert(ctx context.Context, id int64) error {
	if _, err := s.db.GetStockAlert(ctx, id); err != nil {
		return err
	}
	return s.db.DeleteStockAlert(ctx, id)
}

func (s *Service) Alerts(ctx context.Context) ([]*store.StockAlert, error) {
	return s.db.ListStockAlerts(ctx)
}

func logError(op string, err error) {
	if lifecycle.IsConflict(err) || store.IsNotFound(err) {
		return
	}
	if _, ok := lifecycle.AsValidation(err); ok {
		return
	}
	log.WithError(err).Errorf("stock: %s", op)
}

func countConflict(o *store.InventoryOrder, action string) error {
	return lifecycle.ConflictError("inventory order %s is %s and cannot be %s", o.Reference, o.Status, action)
}
