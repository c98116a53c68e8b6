// Package event provides the in-process publish/subscribe bus that
// carries module events to host subscribers. Delivery is per-topic with
// optional wildcard subscription, synchronous by default, and isolates
// subscribers: a panicking handler is logged and skipped without
// affecting the others.
package event

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soltegren/poedeck/pkg/deck"
)

// Bus is the concrete deck.EventBus used by the runner and tests.
type Bus struct {
	logger *zap.Logger

	mu     sync.RWMutex
	nextID int
	topics map[string]map[int]deck.EventHandler
	all    map[int]deck.EventHandler
}

// Compile-time interface guard.
var _ deck.EventBus = (*Bus)(nil)

// NewBus returns an empty bus logging handler panics to logger.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		logger: logger.Named("bus"),
		topics: make(map[string]map[int]deck.EventHandler),
		all:    make(map[int]deck.EventHandler),
	}
}

// Subscribe registers h for events on topic. The returned function
// removes the registration and is safe to call more than once.
func (b *Bus) Subscribe(topic string, h deck.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[int]deck.EventHandler)
	}
	b.topics[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if subs, ok := b.topics[topic]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.topics, topic)
			}
		}
	}
}

// SubscribeAll registers h for every event regardless of topic.
func (b *Bus) SubscribeAll(h deck.EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.all[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers e synchronously to topic and wildcard subscribers.
// It returns the context error if ctx is already done, otherwise nil.
func (b *Bus) Publish(ctx context.Context, e deck.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	for _, h := range b.handlers(e.Topic) {
		b.invoke(ctx, h, e)
	}
	return nil
}

// PublishAsync delivers e on a separate goroutine and returns
// immediately. Delivery order relative to other events is not
// guaranteed.
func (b *Bus) PublishAsync(ctx context.Context, e deck.Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	handlers := b.handlers(e.Topic)
	go func() {
		for _, h := range handlers {
			b.invoke(ctx, h, e)
		}
	}()
}

// handlers snapshots the matching handler set so delivery runs without
// holding the lock.
func (b *Bus) handlers(topic string) []deck.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]deck.EventHandler, 0, len(b.topics[topic])+len(b.all))
	for _, h := range b.topics[topic] {
		out = append(out, h)
	}
	for _, h := range b.all {
		out = append(out, h)
	}
	return out
}

func (b *Bus) invoke(ctx context.Context, h deck.EventHandler, e deck.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", e.Topic),
				zap.Any("panic", r))
		}
	}()
	h(ctx, e)
}
