// Package events carries the in-process pub/sub plumbing the booking
// modules communicate over. It knows nothing about appointments; the
// concrete event types live with the domain packages that publish them.
package events

import (
	"context"
	"time"
)

// Event is what the bus routes. EventName doubles as the subscription key.
type Event interface {
	EventName() string
	// OccurredAt is the publish-side wall clock, not a delivery time.
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp so event structs only declare their
// payload fields.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events. A handler subscribed to one name still receives
// the Event interface and must assert its concrete type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function subscribe without a wrapper type.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus pairs fire-and-forget publication with a synchronous variant for
// callers that must see handler errors.
type Bus interface {
	// Publish dispatches to every handler registered for the event's name,
	// each on its own goroutine. Errors are logged by the bus.
	Publish(ctx context.Context, event Event)

	// PublishSync runs handlers in registration order and returns their
	// joined errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under Event.EventName().
	Subscribe(eventName string, handler Handler)
}
