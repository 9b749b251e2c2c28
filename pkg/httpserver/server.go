package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type config struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	server          *http.Server
	logger          *slog.Logger
	startHooks      []func(*slog.Logger)
	drainHooks      []func(context.Context)
	stopHooks       []func(*slog.Logger)
}

// Server runs an http.Server until its context ends or the process receives
// SIGINT or SIGTERM, then shuts it down gracefully.
type Server struct {
	cfg *config

	mu   sync.Mutex
	srv  *http.Server
	once sync.Once
}

// New listens on :8080 with a 10s shutdown timeout unless options say
// otherwise. A nil logger discards.
func New(opts ...Option) *Server {
	cfg := &config{
		addr:            ":8080",
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cfg: cfg}
}

func (s *Server) prepare(handler http.Handler) (*http.Server, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return nil, ErrAlreadyRunning
	}

	srv := s.cfg.server
	if srv == nil {
		srv = &http.Server{}
	}
	if srv.Addr == "" {
		srv.Addr = s.cfg.addr
	}
	if srv.ReadTimeout == 0 {
		srv.ReadTimeout = s.cfg.readTimeout
	}
	if srv.WriteTimeout == 0 {
		srv.WriteTimeout = s.cfg.writeTimeout
	}
	if srv.IdleTimeout == 0 {
		srv.IdleTimeout = s.cfg.idleTimeout
	}
	srv.Handler = handler

	s.srv = srv
	return srv, nil
}

// Run serves handler and blocks until shutdown. Listen failures are wrapped
// with ErrStart.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	if handler == nil {
		handler = http.NotFoundHandler()
	}

	srv, err := s.prepare(handler)
	if err != nil {
		return errors.Join(ErrStart, err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, h := range s.cfg.startHooks {
		h(s.cfg.logger)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	var runErr error
	select {
	case <-sigCtx.Done():
		if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.cfg.logger.Error("graceful shutdown failed", slog.Any("error", err))
		}
		runErr = <-errCh
	case runErr = <-errCh:
	}

	if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
		return errors.Join(ErrStart, runErr)
	}
	return nil
}

// Shutdown runs drain hooks, waits for in-flight requests and runs stop
// hooks, all within the shutdown timeout. Repeated calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()

		for _, h := range s.cfg.drainHooks {
			h(ctx)
		}
		err = srv.Shutdown(ctx)
		for _, h := range s.cfg.stopHooks {
			h(s.cfg.logger)
		}
	})

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
