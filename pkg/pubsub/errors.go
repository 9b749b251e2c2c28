package pubsub

import (
	"errors"
	"fmt"
)

var (
	ErrQueueFull   = errors.New("pubsub: queue is full")
	ErrQueueClosed = errors.New("pubsub: queue is closed")
	ErrSinkPanic   = errors.New("pubsub: sink panicked")
)

// DeliveryError reports a failed hand-off of one event to one sink.
type DeliveryError struct {
	Key string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("pubsub: delivery under key %q failed: %v", e.Key, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
