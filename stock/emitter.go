package stock

import "context"

// EventEmitter is the interface adapters must satisfy to bridge stock events to the engine.
type EventEmitter interface {
	EmitStockAdjusted(depotID, productID int64, oldQty, newQty int, reason, actor string)
	EmitCountCompleted(orderID int64, reference string, depotID int64, actor string)
}

// Cache is refreshed after every committed inventory write. The Redis
// write-through cache implements it; nil disables refreshing.
type Cache interface {
	RefreshDepot(ctx context.Context, depotID int64)
}
