package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionChanged EventType = "session_changed"
)

// Event represents a notification emitted by the session layer.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Namespace string      `json:"namespace"`
	Origin    string      `json:"origin"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}
