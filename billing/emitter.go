package billing

// EventEmitter is the interface adapters must satisfy to bridge billing events to the engine.
type EventEmitter interface {
	EmitDepositCreated(depositID, customerID int64, amount string, paid bool, actor string)
	EmitDepositReturned(depositID, customerID int64, amount string, actor string)
	EmitDocumentCreated(documentID int64, number, docType, amount, actor string)
	EmitDocumentPaid(documentID int64, number, method, actor string)
}
