package eventbus

import (
	"context"
	"sync"

	"github.com/c360/widgetflow/errors"
	"github.com/c360/widgetflow/metric"
)

var _ Bus = (*MemoryBus)(nil)

// MemoryBus delivers events synchronously to in-process subscribers, in
// subscription order, before Publish returns.
type MemoryBus struct {
	handlers map[uint64]Handler
	order    []uint64
	next     uint64
	metrics  *metric.Metrics
	mu       sync.RWMutex
}

// NewMemoryBus creates a bus; metrics may be nil
func NewMemoryBus(metrics *metric.Metrics) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[uint64]Handler),
		metrics:  metrics,
	}
}

// Publish implements Bus
func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		b.metrics.RecordEventPublished(ev.Type, err)
		return err
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx, ev)
	}
	b.metrics.RecordEventPublished(ev.Type, nil)
	return nil
}

// Subscribe implements Bus
func (b *MemoryBus) Subscribe(handler Handler) (func(), error) {
	if handler == nil {
		return nil, errors.WrapInvalid(errors.New("handler cannot be nil"), "MemoryBus", "Subscribe", "check handler")
	}

	b.mu.Lock()
	b.next++
	id := b.next
	b.handlers[id] = handler
	b.order = append(b.order, id)
	b.mu.Unlock()
	b.metrics.AddEventSubscribers(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			b.metrics.AddEventSubscribers(-1)
		})
	}, nil
}

// Subscribers returns the number of active subscriptions
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}
