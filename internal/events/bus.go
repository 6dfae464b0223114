// Package events provides the in-process publish/subscribe bus used to
// decouple the cache coordinator from its observers. Events are keyed
// by string topics and carry small key/value payloads; the publisher
// has no knowledge of subscribers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a single published notification.
type Event struct {
	ID        string
	Topic     string
	Timestamp time.Time
	Data      map[string]interface{}
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Subscription identifies one registered handler and can cancel it.
type Subscription struct {
	bus   *Bus
	topic string
	id    string
}

// Unsubscribe removes the handler. Safe to call multiple times.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.topic, s.id)
}

// Bus is a synchronous topic-based publish/subscribe bus. A Bus is
// injected into the coordinator rather than reached through a global,
// so tests can observe emissions in isolation.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
	logger   *zap.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[string]map[string]Handler),
		logger:   logger.Named("events"),
	}
}

// Subscribe registers a handler for a topic.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[string]Handler)
	}
	b.handlers[topic][id] = handler

	return &Subscription{bus: b, topic: topic, id: id}
}

// Publish delivers an event to every subscriber of the topic. Delivery
// is synchronous and in no particular order. A topic with no
// subscribers is a no-op.
func (b *Bus) Publish(topic string, data map[string]interface{}) {
	event := Event{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	subs := make([]Handler, 0, len(b.handlers[topic]))
	for _, h := range b.handlers[topic] {
		subs = append(subs, h)
	}
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("no subscribers", zap.String("topic", topic))
		return
	}

	for _, h := range subs {
		h(event)
	}
}

// SubscriberCount returns the number of handlers registered for a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[topic])
}

func (b *Bus) unsubscribe(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[topic]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, topic)
		}
	}
}
