package identity

import "net/http"

// Middleware resolves the caller and stores it in the request context.
// Requests that cannot be resolved are passed to unauthorized, or answered
// with a bare 401 when it is nil.
func Middleware(resolve Resolver, unauthorized func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if unauthorized == nil {
		unauthorized = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}
