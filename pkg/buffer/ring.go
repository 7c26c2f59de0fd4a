package buffer

import (
	"sync"

	"github.com/c360/widgetflow/errors"
)

// ErrClosed is returned by Write after Close
var ErrClosed = errors.New("buffer closed")

// OverflowPolicy decides which item is lost when the ring is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest item to make room
	DropOldest OverflowPolicy = iota
	// DropNewest discards the item being written
	DropNewest
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop_oldest"
	case DropNewest:
		return "drop_newest"
	default:
		return "unknown"
	}
}

// Option configures a Ring
type Option[T any] func(*Ring[T])

// WithOverflowPolicy sets the overflow policy, DropOldest by default
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(r *Ring[T]) { r.policy = policy }
}

// WithDropCallback is called, outside the lock, for every dropped item
func WithDropCallback[T any](fn func(item T)) Option[T] {
	return func(r *Ring[T]) { r.onDrop = fn }
}

// Ring is a fixed-capacity FIFO
type Ring[T any] struct {
	mu      sync.Mutex
	items   []T
	head    int // next read
	size    int
	policy  OverflowPolicy
	onDrop  func(T)
	dropped uint64
	closed  bool
	ready   chan struct{}
}

// NewRing creates a ring holding at most capacity items. Capacities below
// one are raised to one.
func NewRing[T any](capacity int, opts ...Option[T]) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	r := &Ring[T]{
		items: make([]T, capacity),
		ready: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Write appends item, dropping according to the overflow policy when full.
func (r *Ring[T]) Write(item T) error {
	var (
		dropped T
		drop    bool
	)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errors.WrapInvalid(ErrClosed, "Ring", "Write", "write after close")
	}

	if r.size == len(r.items) {
		drop = true
		r.dropped++
		if r.policy == DropNewest {
			dropped = item
			r.mu.Unlock()
			r.notifyDrop(dropped)
			return nil
		}
		dropped = r.items[r.head]
		r.head = (r.head + 1) % len(r.items)
		r.size--
	}

	r.items[(r.head+r.size)%len(r.items)] = item
	r.size++
	r.mu.Unlock()

	if drop {
		r.notifyDrop(dropped)
	}
	r.signal()
	return nil
}

func (r *Ring[T]) notifyDrop(item T) {
	if r.onDrop != nil {
		r.onDrop(item)
	}
}

func (r *Ring[T]) signal() {
	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// ReadBatch removes and returns up to max items, oldest first.
func (r *Ring[T]) ReadBatch(max int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(max, r.size)
	if n <= 0 {
		return nil
	}
	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = r.items[r.head]
		r.items[r.head] = zero
		r.head = (r.head + 1) % len(r.items)
	}
	r.size -= n
	return out
}

// Ready is signalled after writes. A reader that drained fewer items than
// were buffered should not wait on it before reading again.
func (r *Ring[T]) Ready() <-chan struct{} {
	return r.ready
}

// Size returns the number of buffered items
func (r *Ring[T]) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the maximum number of items
func (r *Ring[T]) Capacity() int {
	return len(r.items)
}

// Dropped returns how many items were lost to overflow
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close rejects further writes. Buffered items can still be read.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}
