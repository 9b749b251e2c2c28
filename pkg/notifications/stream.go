package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/pubsub"
)

const (
	DefaultHeartbeat  = 25 * time.Second
	DefaultStreamSize = 64

	heartbeatComment = "heartbeat"
)

// FrameWriter encodes stream frames onto one client connection.
// *sse.Writer satisfies it.
type FrameWriter interface {
	Data(v any) error
	Comment(text string) error
}

// Subscriber is the registration side of the bus.
type Subscriber interface {
	Subscribe(key string, sink pubsub.Sink[Notification])
	Unsubscribe(key string, sink pubsub.Sink[Notification])
}

// StreamTransport binds client connections to bus subscriptions.
type StreamTransport struct {
	bus       Subscriber
	heartbeat time.Duration
	size      int
	logger    *slog.Logger
	active    atomic.Int64
}

// StreamOption configures a StreamTransport.
type StreamOption func(*StreamTransport)

// WithHeartbeat sets the interval between heartbeat comments.
func WithHeartbeat(d time.Duration) StreamOption {
	return func(t *StreamTransport) {
		if d > 0 {
			t.heartbeat = d
		}
	}
}

// WithStreamBuffer sets how many undelivered events one connection may queue
// before new events are dropped for it.
func WithStreamBuffer(n int) StreamOption {
	return func(t *StreamTransport) {
		if n > 0 {
			t.size = n
		}
	}
}

// WithStreamLogger sets the logger for connection and write errors. Nil is ignored.
func WithStreamLogger(l *slog.Logger) StreamOption {
	return func(t *StreamTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewStreamTransport serves streams from bus with DefaultHeartbeat and
// DefaultStreamSize unless overridden.
func NewStreamTransport(bus Subscriber, opts ...StreamOption) *StreamTransport {
	t := &StreamTransport{
		bus:       bus,
		heartbeat: DefaultHeartbeat,
		size:      DefaultStreamSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With(logger.Component("stream"))
	return t
}

// Active returns the number of open streams.
func (t *StreamTransport) Active() int {
	return int(t.active.Load())
}

// Serve streams notifications published under key to w until ctx is done or
// the bus shuts down. A failed frame write ends this stream only and is not
// reported as an error: the client is gone. The subscription and heartbeat
// timer are released together on every exit path.
func (t *StreamTransport) Serve(ctx context.Context, w FrameWriter, key string) error {
	if key == "" {
		return errors.Join(ErrValidation, errors.New("stream key is required"))
	}

	s := t.open(key)
	defer s.close()

	log := t.logger.With(logger.UserID(key))
	log.LogAttrs(ctx, slog.LevelDebug, "stream opened", logger.Count(t.Active()))

	for {
		select {
		case <-ctx.Done():
			log.LogAttrs(ctx, slog.LevelDebug, "stream closed by client")
			return nil

		case n, ok := <-s.queue.C():
			if !ok {
				log.LogAttrs(ctx, slog.LevelDebug, "stream closed by shutdown")
				return nil
			}
			if err := w.Data(n); err != nil {
				log.LogAttrs(ctx, slog.LevelInfo, "stream write failed",
					logger.NotificationID(n.ID),
					logger.Error(err),
				)
				return nil
			}

		case <-s.ticker.C:
			if err := w.Comment(heartbeatComment); err != nil {
				log.LogAttrs(ctx, slog.LevelInfo, "stream heartbeat failed", logger.Error(err))
				return nil
			}
		}
	}
}

// session is the subscription and heartbeat timer of one connection.
// Both are acquired in open and released together by close.
type session struct {
	bus    Subscriber
	key    string
	queue  *pubsub.Queue[Notification]
	ticker *time.Ticker
	done   func()
	once   sync.Once
}

func (t *StreamTransport) open(key string) *session {
	s := &session{
		bus:    t.bus,
		key:    key,
		queue:  pubsub.NewQueue[Notification](t.size),
		ticker: time.NewTicker(t.heartbeat),
		done:   func() { t.active.Add(-1) },
	}
	t.active.Add(1)
	t.bus.Subscribe(key, s.queue)
	return s
}

func (s *session) close() {
	s.once.Do(func() {
		s.bus.Unsubscribe(s.key, s.queue)
		s.ticker.Stop()
		_ = s.queue.Close()
		s.done()
	})
}
