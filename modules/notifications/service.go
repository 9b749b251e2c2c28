package notifications

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// Service exposes the notification gateway and the live stream over HTTP.
// Routes expect an identity in the request context; mount them behind
// identity.Middleware.
type Service struct {
	gateway      *notifications.Gateway
	transport    *notifications.StreamTransport
	errorHandler handler.ErrorHandler[handler.Context]
}

// Option configures a Service.
type Option func(*Service)

// WithErrorHandler replaces the default handler, which logs to slog.Default.
// Pass one built with MapError so domain errors get their status codes.
func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// NewService serves gateway operations and live streams from transport.
func NewService(gateway *notifications.Gateway, transport *notifications.StreamTransport, opts ...Option) *Service {
	s := &Service{
		gateway:      gateway,
		transport:    transport,
		errorHandler: handler.NewErrorHandler(slog.Default(), MapError),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle serves the user facing routes, mounted at /notifications.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/", wrap(s, s.list, queryBinder))
	r.Post("/", wrap(s, s.create, jsonBinder))
	r.Get("/unread-count", wrap(s, s.unreadCount))
	r.Post("/read-all", wrap(s, s.markAllRead))
	r.Post("/broadcast", wrap(s, s.broadcast, jsonBinder))
	r.Get("/preferences", wrap(s, s.getPreferences))
	r.Put("/preferences", wrap(s, s.setPreferences, jsonBinder))
	r.Get("/stream", wrap(s, s.stream, queryBinder))
	r.Post("/{id}/read", wrap(s, s.markRead, pathBinder))
	r.Patch("/{id}", wrap(s, s.update, pathBinder, jsonBinder))
	r.Delete("/{id}", wrap(s, s.delete, pathBinder))

	return r
}

// HandleAdmin serves the administrative routes, mounted at /admin/notifications.
func (s *Service) HandleAdmin() http.Handler {
	r := chi.NewRouter()
	r.Get("/", wrap(s, s.listAll, queryBinder))
	return r
}

// Router mounts both route sets: /notifications and /admin/notifications.
func Router(s *Service) chi.Router {
	r := chi.NewRouter()
	r.Mount("/notifications", s.Handle())
	r.Mount("/admin/notifications", s.HandleAdmin())
	return r
}
