package engine

const (
	EventMovementRecorded EventType = iota + 1
	EventMovementUpdated
	EventMovementDeleted
	EventMaintenanceCreated
	EventMaintenanceTransitioned
	EventMaintenanceDeleted
	EventInstanceStatusChanged
	EventRouteSaved
	EventRouteDeleted
	EventStopUpdated
	EventOrderCreated
	EventOrderStatusChanged
	EventStockAdjusted
	EventCountCompleted
	EventDepositCreated
	EventDepositReturned
	EventDocumentCreated
	EventDocumentPaid
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type MovementRecordedEvent struct {
	MovementID   int64
	InstanceID   int64
	MovementType string
	Status       string
	Destination  string
	Actor        string
}

type MovementUpdatedEvent struct {
	MovementID int64
	InstanceID int64
	OldStatus  string
	NewStatus  string
	Actor      string
}

type MovementDeletedEvent struct {
	MovementID int64
	InstanceID int64
	Actor      string
}

type MaintenanceCreatedEvent struct {
	MaintenanceID   int64
	InstanceID      int64
	MaintenanceType string
	Status          string
	Actor           string
}

type MaintenanceTransitionedEvent struct {
	MaintenanceID int64
	InstanceID    int64
	From          string
	To            string
	Result        string
	Actor         string
}

type MaintenanceDeletedEvent struct {
	MaintenanceID int64
	InstanceID    int64
	Actor         string
}

type InstanceStatusChangedEvent struct {
	InstanceID int64
	Serial     string
	OldStatus  string
	NewStatus  string
	Actor      string
}

type RouteSavedEvent struct {
	RouteID     int64
	RouteNumber string
	Status      string
	Actor       string
}

type RouteDeletedEvent struct {
	RouteID     int64
	RouteNumber string
	Actor       string
}

type StopUpdatedEvent struct {
	RouteID int64
	StopID  int64
	OrderID int64
	Status  string
	Actor   string
}

type OrderCreatedEvent struct {
	OrderID     int64
	OrderNumber string
	CustomerID  int64
	Total       string
	Actor       string
}

type OrderStatusChangedEvent struct {
	OrderID     int64
	OrderNumber string
	OldStatus   string
	NewStatus   string
	Actor       string
}

type StockAdjustedEvent struct {
	DepotID     int64
	ProductID   int64
	OldQuantity int
	NewQuantity int
	Reason      string
	Actor       string
}

type CountCompletedEvent struct {
	OrderID   int64
	Reference string
	DepotID   int64
	Actor     string
}

type DepositCreatedEvent struct {
	DepositID  int64
	CustomerID int64
	Amount     string
	Paid       bool
	Actor      string
}

type DepositReturnedEvent struct {
	DepositID  int64
	CustomerID int64
	Amount     string
	Actor      string
}

type DocumentCreatedEvent struct {
	DocumentID int64
	Number     string
	DocType    string
	Amount     string
	Actor      string
}

type DocumentPaidEvent struct {
	DocumentID int64
	Number     string
	Method     string
	Actor      string
}

type ConnectionEvent struct {
	Detail string
}
