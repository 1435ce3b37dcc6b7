package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"spendtrack/internal/core"
)

type EventType string

const (
	EventExpenseCreated EventType = "expense.created"
	EventExpenseUpdated EventType = "expense.updated"
	EventExpenseDeleted EventType = "expense.deleted"
)

// BindingKey matches every expense event on the topic exchange.
const BindingKey = "expense.*"

func (t EventType) Valid() bool {
	switch t {
	case EventExpenseCreated, EventExpenseUpdated, EventExpenseDeleted:
		return true
	}
	return false
}

// ExpenseEvent carries the full record so consumers never read back from
// the database. Delete events carry the last stored state.
type ExpenseEvent struct {
	Type       EventType          `json:"type"`
	OwnerID    string             `json:"ownerId"`
	Expense    core.ExpenseRecord `json:"expense"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func NewExpenseEvent(t EventType, e core.ExpenseRecord) *ExpenseEvent {
	return &ExpenseEvent{
		Type:       t,
		OwnerID:    e.OwnerID,
		Expense:    e,
		OccurredAt: time.Now().UTC(),
	}
}

func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and sanity-checks an event body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.Expense.ID == "" {
		return nil, errors.New("event without expense id")
	}
	return &msg, nil
}
