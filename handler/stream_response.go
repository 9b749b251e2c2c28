package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/sse"
)

// StreamFunc produces events until the client leaves or it has nothing more
// to send.
type StreamFunc func(w *sse.Writer) error

type streamResponse struct {
	fn StreamFunc
}

// Stream opens a text/event-stream response and hands its writer to fn.
// The server write deadline is lifted for this response only. Errors from fn
// are wrapped with ErrStreamAborted since the status is already sent.
func Stream(fn StreamFunc) Response {
	return streamResponse{fn: fn}
}

func (s streamResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		return errors.Join(ErrStreamAborted, err)
	}
	if err := s.fn(sw); err != nil {
		return errors.Join(ErrStreamAborted, err)
	}
	return nil
}
