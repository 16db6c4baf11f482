// Package bus provides the in-process publish/subscribe mechanism connecting
// the reconciliation engine, the in-memory registry, and the UI layer.
package bus

import (
	"sync"

	"github.com/okatsu/habitask/internal/domain"
)

// Handler receives every event emitted on a subscribed topic.
type Handler func(domain.Event)

// subscription tracks one handler. The removed flag makes unsubscribe
// idempotent and safe to call while an emission is iterating.
type subscription struct {
	handler Handler
	removed bool
}

// Bus delivers events to subscribers synchronously, in subscription order.
// It is an explicit dependency: construct one per process and pass it to
// every component that needs it.
type Bus struct {
	subs map[domain.Topic][]*subscription
	mu   sync.Mutex
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs: make(map[domain.Topic][]*subscription),
	}
}

// On registers a handler for a topic and returns its unsubscribe function.
// Unsubscribing is idempotent; after it returns, the handler is never
// invoked again, even by an emission already in progress.
func (b *Bus) On(topic domain.Topic, h Handler) (unsubscribe func()) {
	sub := &subscription{handler: h}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub.removed {
			return
		}
		sub.removed = true
		list := b.subs[topic]
		for i, s := range list {
			if s == sub {
				b.subs[topic] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Emit delivers the event to all handlers subscribed to its topic before
// returning. Handlers registered during delivery do not receive the current
// event; handlers unsubscribed during delivery are skipped.
func (b *Bus) Emit(ev domain.Event) {
	b.mu.Lock()
	list := b.subs[ev.Topic()]
	snapshot := make([]*subscription, len(list))
	copy(snapshot, list)
	b.mu.Unlock()

	for _, sub := range snapshot {
		b.mu.Lock()
		removed := sub.removed
		b.mu.Unlock()
		if removed {
			continue
		}
		sub.handler(ev)
	}
}

// Clear drops all subscriptions on all topics.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, list := range b.subs {
		for _, s := range list {
			s.removed = true
		}
		delete(b.subs, topic)
	}
}
