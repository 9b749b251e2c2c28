package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize caps JSON request bodies at 1 MiB.
const DefaultMaxJSONSize int64 = 1 << 20

// JSON decodes an application/json body into v. Unknown fields, trailing data
// and bodies over DefaultMaxJSONSize are rejected.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		ct := r.Header.Get("Content-Type")
		if ct == "" {
			return ErrMissingContentType
		}
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, ct)
		}

		body := io.LimitReader(r.Body, DefaultMaxJSONSize+1)
		raw, err := io.ReadAll(body)
		if err != nil {
			return errors.Join(ErrFailedToParseJSON, err)
		}
		if int64(len(raw)) > DefaultMaxJSONSize {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrFailedToParseJSON, DefaultMaxJSONSize)
		}
		if len(raw) == 0 {
			return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return errors.Join(ErrFailedToParseJSON, err)
		}
		if dec.More() {
			return fmt.Errorf("%w: unexpected data after JSON value", ErrFailedToParseJSON)
		}
		return nil
	}
}
