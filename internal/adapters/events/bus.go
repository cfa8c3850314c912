// Package events provides an in-process publish/subscribe bus for domain
// events.
package events

import (
	"context"
	"sync"

	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
)

// HandlerFunc consumes one published event.
type HandlerFunc func(ctx context.Context, evt domain.Event)

// InMemoryBus dispatches events synchronously to subscribed handlers.
// Publishing never fails the publishing unit of work: handler panics are
// recovered and logged.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   ports.Logger
}

// NewInMemoryBus creates an empty bus.
func NewInMemoryBus(logger ports.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

// Subscribe registers a handler for the named event.
func (b *InMemoryBus) Subscribe(eventName string, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish delivers the event to every subscribed handler in order.
func (b *InMemoryBus) Publish(ctx context.Context, evt domain.Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.EventName()]
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.dispatch(ctx, evt, handler)
	}
}

func (b *InMemoryBus) dispatch(ctx context.Context, evt domain.Event, handler HandlerFunc) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event handler panicked",
				ports.String("event", evt.EventName()))
		}
	}()
	handler(ctx, evt)
}
