package identity

import "net/http"

// Header trusts the user id in the named request header. Development only.
// Admin is granted when adminHeader is non-empty and that header is "true".
func Header(name, adminHeader string) Resolver {
	return func(r *http.Request) (Identity, error) {
		userID := r.Header.Get(name)
		if userID == "" {
			return Identity{}, ErrNoIdentity
		}
		return Identity{
			UserID: userID,
			Admin:  adminHeader != "" && r.Header.Get(adminHeader) == "true",
		}, nil
	}
}

// Query trusts the user id in the named query parameter. Development only;
// browsers' EventSource cannot send headers.
func Query(name string) Resolver {
	return func(r *http.Request) (Identity, error) {
		userID := r.URL.Query().Get(name)
		if userID == "" {
			return Identity{}, ErrNoIdentity
		}
		return Identity{UserID: userID}, nil
	}
}
