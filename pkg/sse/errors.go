package sse

import "errors"

var (
	ErrStreamingUnsupported = errors.New("sse: response writer does not support flushing")
	ErrInvalidPayload       = errors.New("sse: payload cannot be encoded as a single data frame")
)
