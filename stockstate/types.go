package stockstate

import "time"

// DepotStock is the cached on-hand inventory of one depot.
type DepotStock struct {
	DepotID    int64
	DepotCode  string
	DepotLabel string
	DepotType  string
	Items      []StockItem
	Total      int
}

type StockItem struct {
	ProductID     int64     `json:"product_id"`
	ProductCode   string    `json:"product_code"`
	ProductLabel  string    `json:"product_label"`
	Quantity      int       `json:"quantity"`
	LastUpdated   time.Time `json:"last_updated"`
	LastUpdatedBy string    `json:"last_updated_by,omitempty"`
}

type DepotMeta struct {
	DepotID    int64  `json:"depot_id"`
	DepotCode  string `json:"depot_code"`
	DepotLabel string `json:"depot_label"`
	DepotType  string `json:"depot_type"`
}
