package identity

import (
	"context"
	"errors"
	"net/http"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Admin  bool
}

// CanActFor reports whether the caller may act on behalf of userID.
func (id Identity) CanActFor(userID string) bool {
	return id.Admin || id.UserID == userID
}

type ctxKey struct{}

// WithContext stores id in ctx.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Resolver extracts the caller from a request. It returns ErrNoIdentity when
// the request has no credentials it handles.
type Resolver func(r *http.Request) (Identity, error)

// FirstOf tries resolvers in order and returns the first identity found.
// A resolver failing with anything but ErrNoIdentity stops the chain, so a
// bad token is never masked by a weaker resolver.
func FirstOf(resolvers ...Resolver) Resolver {
	return func(r *http.Request) (Identity, error) {
		for _, resolve := range resolvers {
			id, err := resolve(r)
			if err == nil {
				return id, nil
			}
			if !errors.Is(err, ErrNoIdentity) {
				return Identity{}, err
			}
		}
		return Identity{}, ErrNoIdentity
	}
}
