package notifications

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/identity"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// MapError is a handler.ErrorMapper for notification and identity errors.
// Storage failures fall through to 500.
func MapError(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, notifications.ErrNotFound):
		return handler.ErrNotFound, true
	case errors.Is(err, notifications.ErrForbidden):
		return handler.ErrForbidden, true
	case errors.Is(err, notifications.ErrValidation):
		return handler.NewHTTPError(http.StatusUnprocessableEntity, handler.ErrUnprocessable.Key, "Validation failed"), true
	case errors.Is(err, notifications.ErrSuppressed):
		return handler.NewHTTPError(http.StatusConflict, "suppressed", "Recipient disabled this notification type"), true
	case errors.Is(err, identity.ErrNoIdentity), errors.Is(err, identity.ErrInvalidToken):
		return handler.ErrUnauthorized, true
	}
	return handler.HTTPError{}, false
}
