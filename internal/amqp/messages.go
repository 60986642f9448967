package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Refresh scopes carried in RefreshMessage.Kind.
const (
	RefreshAll     = "all"
	RefreshExpense = "expense"
	RefreshIncome  = "income"
)

// RefreshMessage asks the worker to refetch and persist the snapshot.
// It carries no transaction data; the worker always reads the backend.
type RefreshMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRefreshMessage(kind, reason string) *RefreshMessage {
	if kind == "" {
		kind = RefreshAll
	}
	return &RefreshMessage{
		ID:        uuid.NewString(),
		Kind:      kind,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RefreshMessageFromJSON decodes and validates a message body.
func RefreshMessageFromJSON(data []byte) (*RefreshMessage, error) {
	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", msg.ID, err)
	}
	switch msg.Kind {
	case RefreshAll, RefreshExpense, RefreshIncome:
	case "":
		msg.Kind = RefreshAll
	default:
		return nil, fmt.Errorf("invalid refresh kind %q", msg.Kind)
	}
	return &msg, nil
}
