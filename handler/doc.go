// Package handler turns typed functions into http.HandlerFunc values.
//
// A HandlerFunc receives a Context and a request struct filled by binders
// from pkg/binder, and returns a Response:
//
//	type markReadRequest struct {
//		ID string `path:"id"`
//	}
//
//	func markRead(ctx handler.Context, req markReadRequest) handler.Response {
//		n, err := gateway.MarkRead(ctx, req.ID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(n)
//	}
//
//	r.Post("/notifications/{id}/read", handler.Wrap(markRead,
//		handler.WithBinders[handler.Context, markReadRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[handler.Context, markReadRequest](errorHandler),
//	))
//
// Responses: JSON wraps data in {"data": ...}, JSONError in {"error": ...},
// Error defers to the ErrorHandler,
// Empty answers 204 and Stream serves text/event-stream through pkg/sse.
//
// Errors returned by binders or Render reach the ErrorHandler. NewErrorHandler
// maps validator.ValidationErrors to 422, HTTPError to its own status, binder
// failures to 400 or 415, and everything else to 500. Domain errors are
// translated with ErrorMapper functions.
package handler
