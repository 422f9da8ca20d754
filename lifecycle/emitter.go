package lifecycle

// Emitter is the interface adapters must satisfy to bridge lifecycle events to the engine.
type Emitter interface {
	EmitMovementRecorded(movementID, instanceID int64, movementType, status, destination, actor string)
	EmitMovementUpdated(movementID, instanceID int64, oldStatus, newStatus, actor string)
	EmitMovementDeleted(movementID, instanceID int64, actor string)
	EmitMaintenanceCreated(maintenanceID, instanceID int64, maintenanceType, status, actor string)
	EmitMaintenanceTransitioned(maintenanceID, instanceID int64, from, to, result, actor string)
	EmitMaintenanceDeleted(maintenanceID, instanceID int64, actor string)
	EmitInstanceStatusChanged(instanceID int64, serial, oldStatus, newStatus, actor string)
}
