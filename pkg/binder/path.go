package binder

import "net/http"

// Path binds router path parameters to fields tagged `path:"name"`.
// With chi: binder.Path(chi.URLParam).
func Path(param func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindFields(v, "path", ErrFailedToParsePath, func(name string) []string {
			if s := param(r, name); s != "" {
				return []string{s}
			}
			return nil
		})
	}
}
