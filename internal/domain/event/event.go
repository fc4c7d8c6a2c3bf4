package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a user-facing notice raised by a review session
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Level     Level                  `json:"level"`
	SessionID string                 `json:"session_id,omitempty"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a generated ID, the type's default level
// and the current time
func NewEvent(eventType Type, sessionID, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Level:     eventType.DefaultLevel(),
		SessionID: sessionID,
		Message:   message,
		Payload:   map[string]interface{}{},
		Timestamp: time.Now(),
	}
}

// WithPayload returns a copy of the event with key set in its payload
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	c := *e
	c.Payload = payload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an integer value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// IsError reports whether the event is displayed as an error
func (e *Event) IsError() bool {
	return e.Level == LevelError
}
