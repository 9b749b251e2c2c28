package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/notifyhub/pkg/binder"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

// ErrorMapper translates an application error into an HTTPError. It reports
// false for errors it does not recognise.
type ErrorMapper func(err error) (HTTPError, bool)

type errorInfo struct {
	Status  int
	Key     string
	Message string
	Fields  map[string][]string
}

func (i errorInfo) Detail() *ErrorDetail {
	return &ErrorDetail{Code: i.Key, Message: i.Message, Details: i.Fields}
}

// classify resolves err in this order: validation errors, the mappers,
// HTTPError, binder failures. Anything else is an internal error whose
// message is not exposed.
func classify(err error, mappers []ErrorMapper) errorInfo {
	if verrs := validator.ExtractValidationErrors(err); verrs != nil {
		return errorInfo{
			Status:  http.StatusUnprocessableEntity,
			Key:     ErrUnprocessable.Key,
			Message: "Validation failed",
			Fields:  verrs.Fields(),
		}
	}

	for _, m := range mappers {
		if he, ok := m(err); ok {
			return fromHTTPError(he)
		}
	}

	var he HTTPError
	if errors.As(err, &he) {
		return fromHTTPError(he)
	}

	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return fromHTTPError(NewHTTPError(http.StatusUnsupportedMediaType, ErrUnsupportedMediaType.Key, err.Error()))
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, binder.ErrFailedToParsePath):
		return fromHTTPError(NewHTTPError(http.StatusBadRequest, ErrBadRequest.Key, err.Error()))
	}

	return fromHTTPError(ErrInternal)
}

func fromHTTPError(he HTTPError) errorInfo {
	return errorInfo{Status: he.Code, Key: he.Key, Message: he.Error()}
}

func renderError(w http.ResponseWriter, r *http.Request, err error, mappers []ErrorMapper) errorInfo {
	info := classify(err, mappers)
	if errors.Is(err, ErrStreamAborted) {
		return info
	}
	resp := &jsonResponse{status: info.Status, body: JSONResponse{Error: info.Detail()}}
	_ = resp.Render(w, r)
	return info
}

// NewErrorHandler logs every error with the request id and renders it as a
// JSON error body. Client errors log at warn, server errors at error. Errors
// from streams that already started are logged only.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(logger.Component("http"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := renderError(ctx.ResponseWriter(), r, err, mappers)

		level := slog.LevelError
		if info.Status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		if errors.Is(err, ErrStreamAborted) {
			level = slog.LevelInfo
		}

		log.LogAttrs(r.Context(), level, "request failed",
			logger.RequestID(requestid.FromContext(r.Context())),
			logger.Error(err),
			slog.Int("status", info.Status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
}
