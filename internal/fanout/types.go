// Package fanout keeps the registry of live real-time sessions per identity
// and delivers events to every session of a recipient.
package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindUser Kind = "user"
	KindPro  Kind = "pro"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUser, KindPro:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown identity kind %q", s)
}

// Identity addresses a recipient: a customer or a pro.
type Identity struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Key is the registry key, "kind:id".
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

func (i Identity) String() string {
	return i.Key()
}

func (i Identity) Validate() error {
	if _, err := ParseKind(string(i.Kind)); err != nil {
		return err
	}
	if i.ID == "" {
		return fmt.Errorf("identity id is required")
	}
	return nil
}

const (
	EventConnected      = "connected"
	EventMessageCreated = "message.created"
	EventNotification   = "notification"
)

// Event is a transient delivery unit. Payload must be JSON encodable.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Handle is one physical connection. Deliver must be safe for concurrent
// use; an error means the connection is dead.
type Handle interface {
	ID() string
	Deliver(ctx context.Context, event Event) error
}

// Dispatcher is what producers depend on to push events.
type Dispatcher interface {
	Send(ctx context.Context, identity Identity, event Event) int
	Broadcast(ctx context.Context, a, b Identity, event Event) int
}
