// Package events publishes graph change notifications.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names a change.
type Kind string

const (
	SystemCreated    Kind = "system.created"
	SystemUpdated    Kind = "system.updated"
	SystemDeleted    Kind = "system.deleted"
	InterfaceCreated Kind = "interface.created"
	InterfaceUpdated Kind = "interface.updated"
	InterfaceDeleted Kind = "interface.deleted"
	GraphLoaded      Kind = "graph.loaded"
)

// Event is one confirmed change to the graph. Subject is the system name
// or interface id the change is about; Payload is the resulting record.
type Event struct {
	ID      string    `json:"id"`
	Kind    Kind      `json:"kind"`
	Subject string    `json:"subject"`
	Payload any       `json:"payload,omitempty"`
	Time    time.Time `json:"time"`
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, subject string, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		Subject: subject,
		Payload: payload,
		Time:    time.Now().UTC(),
	}
}

// Publisher delivers events. Publishing happens after a change is applied;
// a failed publish never undoes the change.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

// Compile-time check that Nop satisfies Publisher.
var _ Publisher = Nop{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
