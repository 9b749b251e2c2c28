package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/binder"
)

type binderKind int

const (
	jsonBinder binderKind = iota
	queryBinder
	pathBinder
)

func (k binderKind) bind() handler.Bind {
	switch k {
	case queryBinder:
		return binder.Query()
	case pathBinder:
		return binder.Path(chi.URLParam)
	default:
		return binder.JSON()
	}
}

func wrap[R any](s *Service, h handler.HandlerFunc[handler.Context, R], kinds ...binderKind) http.HandlerFunc {
	binders := make([]handler.Bind, len(kinds))
	for i, k := range kinds {
		binders[i] = k.bind()
	}
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binders...),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}
