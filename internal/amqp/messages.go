package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger mutation.
type EventType string

const (
	EventTransactionAppended EventType = "transaction.appended"
	EventLedgerReset         EventType = "ledger.reset"
)

var ErrUnknownEventType = errors.New("unknown event type")

// LedgerEvent announces that the persisted ledger changed. It carries only
// the version and row count; consumers reload the ledger from storage.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Version   int64     `json:"version"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(typ EventType, version int64, count int) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Version:   version,
		Count:     count,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	switch e.Type {
	case EventTransactionAppended, EventLedgerReset:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	return &e, nil
}
