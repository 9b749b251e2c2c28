// Package binder fills request structs from JSON bodies, query strings and
// router path parameters.
//
//	type listRequest struct {
//		ID     string   `path:"id"`
//		Unread bool     `query:"unread"`
//		Types  []string `query:"type"` // ?type=a&type=b or ?type=a,b
//		Limit  *int     `query:"limit"`
//	}
//
// Each binder returns errors wrapping one of the package sentinels so HTTP
// layers can answer 400 or 415 with errors.Is.
package binder
