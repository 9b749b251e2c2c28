// Package requestid tags every HTTP request with a correlation id.
//
// Middleware reuses a client supplied X-Request-ID when it is 1 to 128
// characters of letters, digits, '-' or '_', and generates a UUID otherwise.
// The id is stored in the request context and echoed in the response header.
// LoggerExtractor plugs the id into pkg/logger so every record written with
// the request context carries request_id.
package requestid
