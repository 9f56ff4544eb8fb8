package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one audit record emitted by the client.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Endpoint  string            `json:"endpoint,omitempty"`
	UserID    string            `json:"user_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent builds an event with a fresh ID and the current timestamp.
func NewEvent(eventType string, success bool) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Success:   success,
	}
}

// Sink receives dispatched events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
