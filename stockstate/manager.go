// Package stockstate caches per-depot stock in Redis and provides the
// Redis-backed distributed lock.
package stockstate

import (
	"context"

	log "github.com/sirupsen/logrus"

	"gasflow/store"
)

// Manager provides write-through depot stock caching: SQL first, then Redis.
// A nil RedisStore makes every read go to SQL.
type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// RefreshDepot rebuilds the cached stock of a depot from its inventory rows.
func (m *Manager) RefreshDepot(ctx context.Context, depotID int64) {
	if m.redis == nil {
		return
	}
	rows, err := m.db.ListDepotInventory(ctx, depotID)
	if err != nil {
		log.Printf("stockstate: refresh redis for depot %d: %v", depotID, err)
		return
	}
	if err := m.redis.SetDepotStock(ctx, depotID, toItems(rows)); err != nil {
		log.Printf("stockstate: write redis for depot %d: %v", depotID, err)
	}
}

// RefreshDepotMeta updates the cached label and type of a depot.
func (m *Manager) RefreshDepotMeta(ctx context.Context, depotID int64) {
	if m.redis == nil {
		return
	}
	d, err := m.db.GetDepot(ctx, depotID)
	if err != nil {
		return
	}
	if err := m.redis.UpdateDepotMeta(ctx, depotMeta(d)); err != nil {
		log.Printf("stockstate: write meta for depot %d: %v", depotID, err)
	}
}

// ForgetDepot drops a deleted depot from the cache.
func (m *Manager) ForgetDepot(ctx context.Context, depotID int64) {
	if m.redis == nil {
		return
	}
	if err := m.redis.RemoveDepot(ctx, depotID); err != nil {
		log.Printf("stockstate: remove depot %d: %v", depotID, err)
	}
}

// GetDepotStock reads depot stock from Redis, falls back to SQL.
func (m *Manager) GetDepotStock(ctx context.Context, depotID int64) (*DepotStock, error) {
	if m.redis != nil {
		meta, err := m.redis.GetDepotMeta(ctx, depotID)
		if err == nil && meta != nil {
			items, _ := m.redis.GetDepotStock(ctx, depotID)
			total, _ := m.redis.GetTotal(ctx, depotID)
			return &DepotStock{
				DepotID:    meta.DepotID,
				DepotCode:  meta.DepotCode,
				DepotLabel: meta.DepotLabel,
				DepotType:  meta.DepotType,
				Items:      items,
				Total:      total,
			}, nil
		}
	}
	return m.depotStockFromSQL(ctx, depotID)
}

// GetAllDepotStocks reads the stock of every depot, preferring Redis.
func (m *Manager) GetAllDepotStocks(ctx context.Context) (map[int64]*DepotStock, error) {
	out := make(map[int64]*DepotStock)
	if m.redis != nil {
		ids, err := m.redis.GetAllDepotIDs(ctx)
		if err == nil && len(ids) > 0 {
			for _, id := range ids {
				s, err := m.GetDepotStock(ctx, id)
				if err == nil {
					out[id] = s
				}
			}
			return out, nil
		}
	}

	depots, err := m.db.ListDepots(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range depots {
		s, err := m.depotStockFromSQL(ctx, d.ID)
		if err != nil {
			continue
		}
		out[d.ID] = s
	}
	return out, nil
}

// SyncRedisFromSQL rebuilds all Redis state from SQL. Called on startup.
func (m *Manager) SyncRedisFromSQL(ctx context.Context) error {
	if m.redis == nil {
		return nil
	}
	if err := m.redis.FlushAll(ctx); err != nil {
		return err
	}
	depots, err := m.db.ListDepots(ctx)
	if err != nil {
		return err
	}
	for _, d := range depots {
		if err := m.redis.UpdateDepotMeta(ctx, depotMeta(d)); err != nil {
			log.Printf("stockstate: sync meta for depot %d: %v", d.ID, err)
			continue
		}
		m.RefreshDepot(ctx, d.ID)
	}
	log.Printf("stockstate: synced %d depots to redis", len(depots))
	return nil
}

func (m *Manager) depotStockFromSQL(ctx context.Context, depotID int64) (*DepotStock, error) {
	d, err := m.db.GetDepot(ctx, depotID)
	if err != nil {
		return nil, err
	}
	rows, err := m.db.ListDepotInventory(ctx, depotID)
	if err != nil {
		return nil, err
	}
	items := toItems(rows)
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	return &DepotStock{
		DepotID:    d.ID,
		DepotCode:  d.Code,
		DepotLabel: d.Label,
		DepotType:  d.DepotType,
		Items:      items,
		Total:      total,
	}, nil
}

func depotMeta(d *store.Depot) *DepotMeta {
	return &DepotMeta{DepotID: d.ID, DepotCode: d.Code, DepotLabel: d.Label, DepotType: d.DepotType}
}

func toItems(rows []*store.InventoryItem) []StockItem {
	items := make([]StockItem, len(rows))
	for i, r := range rows {
		items[i] = StockItem{
			ProductID:     r.ProductID,
			ProductCode:   r.ProductCode,
			ProductLabel:  r.ProductLabel,
			Quantity:      r.Quantity,
			LastUpdated:   r.LastUpdated,
			LastUpdatedBy: r.LastUpdatedBy,
		}
	}
	return items
}
