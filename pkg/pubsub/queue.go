package pubsub

import "sync"

// Queue is a bounded FIFO sink read by a single consumer through C.
type Queue[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// NewQueue creates a queue holding up to size pending events (at least 1).
func NewQueue[T any](size int) *Queue[T] {
	return &Queue[T]{ch: make(chan T, max(size, 1))}
}

// Deliver enqueues event without blocking.
func (q *Queue[T]) Deliver(event T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// C returns the receive channel. Close closes it immediately; events already
// buffered can still be received before the reader sees the close.
func (q *Queue[T]) C() <-chan T {
	return q.ch
}

// Len reports the number of pending events.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Close is idempotent.
func (q *Queue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	return nil
}
