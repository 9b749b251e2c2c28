package notifications

import "errors"

var (
	// ErrNotFound is returned when a notification id does not exist.
	ErrNotFound = errors.New("notifications: not found")

	// ErrValidation wraps input that failed validation. The joined
	// validator.ValidationErrors carries the field details.
	ErrValidation = errors.New("notifications: invalid input")

	// ErrStorage wraps failures of the persistence backend.
	ErrStorage = errors.New("notifications: storage failure")

	// ErrSuppressed is returned by Create when the recipient disabled the
	// notification type and suppression drops the record entirely.
	ErrSuppressed = errors.New("notifications: suppressed by recipient preferences")

	// ErrForbidden is returned when the caller may not act on a record.
	ErrForbidden = errors.New("notifications: forbidden")
)
