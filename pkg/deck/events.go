package deck

import (
	"context"
	"time"
)

// Event is a typed notification a module publishes to the host, e.g. a
// refreshed device list for dropdown choices or a feedback invalidation.
type Event struct {
	// Topic routes the event to subscribers, e.g. "omada.devices".
	Topic string
	// Source names the publishing component.
	Source string
	// Timestamp is when the event was published.
	Timestamp time.Time
	// Payload is the topic-specific body.
	Payload any
}

// EventHandler consumes events. Handlers must not block for long; slow
// consumers should hand off to their own goroutine.
type EventHandler func(ctx context.Context, e Event)

// EventBus distributes events from modules to host subscribers.
// Implementations must be safe for concurrent use and must isolate
// subscribers from each other: a panicking handler may not prevent
// delivery to the rest.
type EventBus interface {
	// Publish delivers e synchronously to all matching subscribers.
	Publish(ctx context.Context, e Event) error
	// PublishAsync delivers e on a separate goroutine and returns
	// immediately.
	PublishAsync(ctx context.Context, e Event)
	// Subscribe registers h for events on topic and returns a function
	// that removes the registration.
	Subscribe(topic string, h EventHandler) func()
	// SubscribeAll registers h for every event regardless of topic.
	SubscribeAll(h EventHandler) func()
}
