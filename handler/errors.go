package handler

import (
	"errors"
	"net/http"
)

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response.
	ErrNilResponse = errors.New("handler returned nil response")

	// ErrStreamAborted wraps failures that happen after a stream response
	// has committed its headers. Error handlers must only log these.
	ErrStreamAborted = errors.New("stream aborted after headers were sent")
)

// HTTPError is an error with an HTTP status and a machine readable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

// NewHTTPError builds an HTTPError; message defaults to the status text.
func NewHTTPError(code int, key string, message ...string) HTTPError {
	e := HTTPError{Code: code, Key: key}
	if len(message) > 0 {
		e.Message = message[0]
	}
	return e
}

var (
	ErrBadRequest           = NewHTTPError(http.StatusBadRequest, "bad_request")
	ErrUnauthorized         = NewHTTPError(http.StatusUnauthorized, "unauthorized")
	ErrForbidden            = NewHTTPError(http.StatusForbidden, "forbidden")
	ErrNotFound             = NewHTTPError(http.StatusNotFound, "not_found")
	ErrUnsupportedMediaType = NewHTTPError(http.StatusUnsupportedMediaType, "unsupported_media_type")
	ErrUnprocessable        = NewHTTPError(http.StatusUnprocessableEntity, "validation_error")
	ErrInternal             = NewHTTPError(http.StatusInternalServerError, "internal_error", "An error occurred processing your request")
	ErrServiceUnavailable   = NewHTTPError(http.StatusServiceUnavailable, "service_unavailable")
)

type errorResponse struct {
	err error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error { return e.err }

// Error hands err to the ErrorHandler configured on Wrap, so domain errors
// go through its mappers.
func Error(err error) Response {
	return errorResponse{err: err}
}
