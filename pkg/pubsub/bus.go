package pubsub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Sink receives events from a Bus. Deliver is called with the bus mutex held
// and must return without blocking. Sinks are compared by identity, so
// implementations should be pointers.
type Sink[T any] interface {
	Deliver(event T) error
}

// SinkFunc adapts a function to Sink. Func values are not comparable, so
// register a pointer: bus.Subscribe(key, &fn).
type SinkFunc[T any] func(event T) error

// Deliver calls f.
func (f *SinkFunc[T]) Deliver(event T) error { return (*f)(event) }

// Bus is a keyed registry of sinks. The zero value is not usable; use NewBus.
type Bus[T any] struct {
	mu     sync.Mutex
	sinks  map[string]map[Sink[T]]struct{}
	closed bool
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for delivery failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewBus creates an empty bus. Delivery failures are logged to slog.Default
// unless WithLogger is given.
func NewBus[T any](opts ...Option) *Bus[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus[T]{
		sinks:  make(map[string]map[Sink[T]]struct{}),
		logger: o.logger.With(logger.Component("pubsub")),
	}
}

// Subscribe registers sink under key. Registering the same pair twice is a
// no-op. On a closed bus the sink is not registered and, if it implements
// io.Closer, it is closed right away.
func (b *Bus[T]) Subscribe(key string, sink Sink[T]) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = closeSink(sink)
		return
	}

	set, ok := b.sinks[key]
	if !ok {
		set = make(map[Sink[T]]struct{})
		b.sinks[key] = set
	}
	set[sink] = struct{}{}
	b.mu.Unlock()
}

// Unsubscribe removes the pair. The key disappears once its last sink is
// gone. Unknown pairs are ignored.
func (b *Bus[T]) Unsubscribe(key string, sink Sink[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.sinks[key]
	if !ok {
		return
	}
	delete(set, sink)
	if len(set) == 0 {
		delete(b.sinks, key)
	}
}

// Publish delivers event to every sink registered under key and returns how
// many accepted it. Failing sinks do not affect the others.
func (b *Bus[T]) Publish(ctx context.Context, key string, event T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.publishLocked(ctx, key, event)
}

// PublishAll delivers event under every key.
func (b *Bus[T]) PublishAll(ctx context.Context, event T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for key := range b.sinks {
		delivered += b.publishLocked(ctx, key, event)
	}
	return delivered
}

func (b *Bus[T]) publishLocked(ctx context.Context, key string, event T) int {
	delivered := 0
	for sink := range b.sinks[key] {
		if err := deliver(sink, event); err != nil {
			derr := &DeliveryError{Key: key, Err: err}
			b.logger.LogAttrs(ctx, slog.LevelWarn, "event dropped for subscriber",
				logger.Key(key),
				logger.Error(derr),
			)
			continue
		}
		delivered++
	}
	return delivered
}

func deliver[T any](sink Sink[T], event T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSinkPanic, r)
		}
	}()
	return sink.Deliver(event)
}

// Subscribers returns the number of sinks registered under key.
func (b *Bus[T]) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks[key])
}

// Keys returns the number of keys with at least one sink.
func (b *Bus[T]) Keys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}

// Close drops every registration and closes sinks implementing io.Closer.
// Later calls return nil.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	all := b.sinks
	b.sinks = make(map[string]map[Sink[T]]struct{})
	b.mu.Unlock()

	var errs []error
	for _, set := range all {
		for sink := range set {
			if err := closeSink(sink); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func closeSink[T any](sink Sink[T]) error {
	if c, ok := sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
