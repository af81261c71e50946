package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record kinds carried by events.
const (
	KindExpense = "expense"
	KindIncome  = "income"
	KindBudget  = "budget"
)

// Operations carried by events.
const (
	OpCreated   = "created"
	OpUpdated   = "updated"
	OpDeleted   = "deleted"
	OpConverted = "converted"
	OpImported  = "imported"
)

// RecordEvent announces a committed change to the record store. It carries
// enough to identify the record; consumers re-read the store for details.
type RecordEvent struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Op        string    `json:"op"`
	Key       string    `json:"key"`
	Category  string    `json:"category,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordEvent stamps a new event with a random id and the current time.
func NewRecordEvent(kind, op, key string) RecordEvent {
	return RecordEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		Op:        op,
		Key:       key,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey is "record.<kind>.<op>".
func (e RecordEvent) RoutingKey() string {
	return fmt.Sprintf("record.%s.%s", e.Kind, e.Op)
}

func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// RecordEventFromJSON decodes an event and rejects ones missing kind or op.
func RecordEventFromJSON(data []byte) (*RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Kind == "" || e.Op == "" {
		return nil, fmt.Errorf("event %q missing kind or op", e.ID)
	}
	return &e, nil
}
