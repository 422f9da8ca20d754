package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RawEnvelope is used for two-stage unmarshalling: first decode the envelope,
// then decode payload based on msg_type.
type RawEnvelope struct {
	MsgType   string          `json:"msg_type"`
	MsgID     string          `json:"msg_id"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// payloadFor returns a pointer to a zero payload of the type carried by msgType.
func payloadFor(msgType string) (any, bool) {
	switch msgType {
	case TypeMovementRecorded, TypeMovementUpdated, TypeMovementDeleted:
		return &MovementEvent{}, true
	case TypeMaintenanceCreated, TypeMaintenanceTransitioned, TypeMaintenanceDeleted:
		return &MaintenanceEvent{}, true
	case TypeInstanceStatusChanged:
		return &InstanceEvent{}, true
	case TypeRouteSaved, TypeRouteDeleted:
		return &RouteEvent{}, true
	case TypeStopUpdated:
		return &StopEvent{}, true
	case TypeOrderCreated, TypeOrderStatusChanged:
		return &OrderEvent{}, true
	case TypeStockAdjusted:
		return &StockEvent{}, true
	case TypeCountCompleted:
		return &CountEvent{}, true
	case TypeDepositCreated, TypeDepositReturned:
		return &DepositEvent{}, true
	case TypeDocumentCreated, TypeDocumentPaid:
		return &DocumentEvent{}, true
	}
	return nil, false
}

// DecodeEnvelope unmarshals a raw message into an Envelope whose Payload is
// the concrete event struct (not a pointer) for its msg_type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	p, ok := payloadFor(raw.MsgType)
	if !ok {
		return nil, fmt.Errorf("unknown msg_type: %s", raw.MsgType)
	}
	if err := json.Unmarshal(raw.Payload, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.MsgType, err)
	}
	env := &Envelope{
		MsgType:   raw.MsgType,
		MsgID:     raw.MsgID,
		Source:    raw.Source,
		Timestamp: raw.Timestamp,
	}
	switch v := p.(type) {
	case *MovementEvent:
		env.Payload = *v
	case *MaintenanceEvent:
		env.Payload = *v
	case *InstanceEvent:
		env.Payload = *v
	case *RouteEvent:
		env.Payload = *v
	case *StopEvent:
		env.Payload = *v
	case *OrderEvent:
		env.Payload = *v
	case *StockEvent:
		env.Payload = *v
	case *CountEvent:
		env.Payload = *v
	case *DepositEvent:
		env.Payload = *v
	case *DocumentEvent:
		env.Payload = *v
	}
	return env, nil
}

// NewEnvelope creates an outbound envelope with a new UUID and timestamp.
func NewEnvelope(msgType, source string, payload any) *Envelope {
	return &Envelope{
		MsgType:   msgType,
		MsgID:     uuid.New().String(),
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Encode marshals an envelope to JSON.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}
