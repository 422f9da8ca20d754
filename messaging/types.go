package messaging

import "time"

// Envelope is the typed wrapper of every event published on the events topic.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

const (
	TypeMovementRecorded        = "movement.recorded"
	TypeMovementUpdated         = "movement.updated"
	TypeMovementDeleted         = "movement.deleted"
	TypeMaintenanceCreated      = "maintenance.created"
	TypeMaintenanceTransitioned = "maintenance.transitioned"
	TypeMaintenanceDeleted      = "maintenance.deleted"
	TypeInstanceStatusChanged   = "instance.status_changed"
	TypeRouteSaved              = "route.saved"
	TypeRouteDeleted            = "route.deleted"
	TypeStopUpdated             = "route.stop_updated"
	TypeOrderCreated            = "order.created"
	TypeOrderStatusChanged      = "order.status_changed"
	TypeStockAdjusted           = "stock.adjusted"
	TypeCountCompleted          = "stock.count_completed"
	TypeDepositCreated          = "deposit.created"
	TypeDepositReturned         = "deposit.returned"
	TypeDocumentCreated         = "document.created"
	TypeDocumentPaid            = "document.paid"
)

// --- Lifecycle ---

type MovementEvent struct {
	MovementID   int64  `json:"movement_id"`
	InstanceID   int64  `json:"instance_id"`
	MovementType string `json:"movement_type,omitempty"`
	Status       string `json:"status,omitempty"`
	OldStatus    string `json:"old_status,omitempty"`
	Destination  string `json:"destination,omitempty"`
	Actor        string `json:"actor"`
}

type MaintenanceEvent struct {
	MaintenanceID   int64  `json:"maintenance_id"`
	InstanceID      int64  `json:"instance_id"`
	MaintenanceType string `json:"maintenance_type,omitempty"`
	From            string `json:"from,omitempty"`
	To              string `json:"to,omitempty"`
	Result          string `json:"result,omitempty"`
	Actor           string `json:"actor"`
}

type InstanceEvent struct {
	InstanceID   int64  `json:"instance_id"`
	SerialNumber string `json:"serial_number"`
	OldStatus    string `json:"old_status"`
	NewStatus    string `json:"new_status"`
	Actor        string `json:"actor"`
}

// --- Routes and orders ---

type RouteEvent struct {
	RouteID     int64  `json:"route_id"`
	RouteNumber string `json:"route_number"`
	Status      string `json:"status,omitempty"`
	Actor       string `json:"actor"`
}

type StopEvent struct {
	RouteID int64  `json:"route_id"`
	StopID  int64  `json:"stop_id"`
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Actor   string `json:"actor"`
}

type OrderEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  int64  `json:"customer_id,omitempty"`
	Total       string `json:"total,omitempty"`
	OldStatus   string `json:"old_status,omitempty"`
	NewStatus   string `json:"new_status,omitempty"`
	Actor       string `json:"actor"`
}

// --- Stock ---

type StockEvent struct {
	DepotID     int64  `json:"depot_id"`
	ProductID   int64  `json:"product_id"`
	OldQuantity int    `json:"old_quantity"`
	NewQuantity int    `json:"new_quantity"`
	Reason      string `json:"reason,omitempty"`
	Actor       string `json:"actor"`
}

type CountEvent struct {
	InventoryOrderID int64  `json:"inventory_order_id"`
	Reference        string `json:"reference"`
	DepotID          int64  `json:"depot_id"`
	Actor            string `json:"actor"`
}

// --- Billing ---

type DepositEvent struct {
	DepositID  int64  `json:"deposit_id"`
	CustomerID int64  `json:"customer_id"`
	Amount     string `json:"amount"`
	Paid       bool   `json:"paid"`
	Actor      string `json:"actor"`
}

type DocumentEvent struct {
	DocumentID    int64  `json:"document_id"`
	Number        string `json:"number"`
	DocType       string `json:"doc_type,omitempty"`
	Amount        string `json:"amount,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Actor         string `json:"actor"`
}
