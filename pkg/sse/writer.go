package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Writer frames events onto an HTTP response.
type Writer struct {
	mu sync.Mutex
	w  http.ResponseWriter
	rc *http.ResponseController
}

// NewWriter sends the event-stream headers with a 200 status and flushes them
// so the client sees the stream open immediately.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := &Writer{w: w, rc: http.NewResponseController(w)}
	if err := sw.flush(); err != nil {
		return nil, err
	}
	return sw, nil
}

// Data writes v as a JSON data frame.
func (s *Writer) Data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}
	if bytes.ContainsAny(payload, "\r\n") {
		return ErrInvalidPayload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.flush()
}

// Comment writes a comment frame. Clients ignore comments, which makes them
// suitable as heartbeats.
func (s *Writer) Comment(text string) error {
	var b strings.Builder
	for line := range strings.Lines(text) {
		b.WriteString(": ")
		b.WriteString(strings.TrimRight(line, "\r\n"))
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		b.WriteString(":\n")
	}
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		return err
	}
	return s.flush()
}

func (s *Writer) flush() error {
	if err := s.rc.Flush(); err != nil {
		if errors.Is(err, http.ErrNotSupported) {
			return ErrStreamingUnsupported
		}
		return err
	}
	return nil
}
