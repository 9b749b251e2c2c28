package binder

import "net/http"

// Query binds URL query parameters to fields tagged `query:"name"`.
// Slice fields accept repeated keys and comma separated values.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := r.URL.Query()
		return bindFields(v, "query", ErrFailedToParseQuery, func(name string) []string {
			return values[name]
		})
	}
}
