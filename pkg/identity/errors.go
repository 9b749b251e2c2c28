package identity

import "errors"

var (
	// ErrNoIdentity means the request carries no credentials the resolver understands.
	ErrNoIdentity = errors.New("identity: no credentials")

	// ErrInvalidToken means a token was present but failed verification.
	ErrInvalidToken = errors.New("identity: invalid token")
)
