package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// LedgerEventMessage is the wire form of a committed ledger mutation. It
// carries the full record so consumers never need to read the dataset.
type LedgerEventMessage struct {
	Type      ledger.EventType `json:"type"`
	UserID    string           `json:"user_id"`
	Kind      core.Kind        `json:"kind"`
	Record    core.Record      `json:"record"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewLedgerEventMessage converts a store event into a message.
func NewLedgerEventMessage(e ledger.Event) *LedgerEventMessage {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return &LedgerEventMessage{
		Type:      e.Type,
		UserID:    e.UserID,
		Kind:      e.Kind,
		Record:    e.Record,
		Timestamp: at.UTC(),
	}
}

// Event converts the message back into a store event.
func (m *LedgerEventMessage) Event() ledger.Event {
	return ledger.Event{Type: m.Type, UserID: m.UserID, Kind: m.Kind, Record: m.Record, At: m.Timestamp}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and sanity-checks a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case ledger.RecordAdded, ledger.RecordDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if !msg.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidKind, msg.Kind)
	}
	if msg.UserID == "" || msg.Record.ID == "" {
		return nil, fmt.Errorf("message missing user or record id")
	}
	return &msg, nil
}
