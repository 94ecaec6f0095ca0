// Package eventbus provides the in-process domain event transport. Events
// drained from session trees are dispatched synchronously to subscribed
// handlers; a failing handler is logged and skipped so one bad subscriber
// cannot starve the rest.
package eventbus

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"lifetree-backend/application/ports"
	"lifetree-backend/domain/events"
)

// InMemoryBus is an in-process implementation of ports.EventBus
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]ports.EventHandler
	logger   *zap.Logger
}

// NewInMemoryBus creates a new in-memory event bus
func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]ports.EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type. The type "*" receives
// every event the handler reports it can handle.
func (b *InMemoryBus) Subscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Unsubscribe removes a previously registered handler
func (b *InMemoryBus) Unsubscribe(eventType string, handler ports.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	registered := b.handlers[eventType]
	for i, h := range registered {
		if h == handler {
			b.handlers[eventType] = append(registered[:i], registered[i+1:]...)
			return nil
		}
	}
	return nil
}

// Publish delivers an event to every matching handler
func (b *InMemoryBus) Publish(ctx context.Context, event events.DomainEvent) error {
	eventType := event.GetEventType()

	b.mu.RLock()
	targets := make([]ports.EventHandler, 0, len(b.handlers[eventType])+len(b.handlers["*"]))
	targets = append(targets, b.handlers[eventType]...)
	targets = append(targets, b.handlers["*"]...)
	b.mu.RUnlock()

	var lastErr error
	for _, handler := range targets {
		if !handler.CanHandle(eventType) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Warn("Event handler failed",
				zap.String("event_type", eventType),
				zap.String("aggregate_id", event.GetAggregateID()),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

// PublishBatch delivers a batch of events in order
func (b *InMemoryBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	var lastErr error
	for _, event := range batch {
		if err := b.Publish(ctx, event); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
