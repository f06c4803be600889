package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"evergreen/internal/core"
)

// ActivityMessage carries one dashboard action to the activity worker.
type ActivityMessage struct {
	UserEmail  string            `json:"user_email"`
	Kind       core.ActivityKind `json:"kind"`
	Detail     string            `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Timestamp  time.Time         `json:"timestamp"`
}

func NewActivityMessage(a core.Activity) *ActivityMessage {
	occurred := a.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return &ActivityMessage{
		UserEmail:  a.UserEmail,
		Kind:       a.Kind,
		Detail:     a.Detail,
		OccurredAt: occurred,
		Timestamp:  time.Now(),
	}
}

func (m *ActivityMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Activity converts the message back into the domain type.
func (m *ActivityMessage) Activity() core.Activity {
	return core.Activity{
		UserEmail:  m.UserEmail,
		Kind:       m.Kind,
		Detail:     m.Detail,
		OccurredAt: m.OccurredAt,
	}
}

// ActivityMessageFromJSON decodes and sanity-checks a message body.
func ActivityMessageFromJSON(data []byte) (*ActivityMessage, error) {
	var msg ActivityMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserEmail == "" || msg.Kind == "" {
		return nil, errors.New("activity message missing user or kind")
	}
	return &msg, nil
}
