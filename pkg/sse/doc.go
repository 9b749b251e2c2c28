// Package sse writes and reads the text/event-stream wire format.
//
// Writer emits JSON payloads as "data: <json>\n\n" frames and keep-alive
// comments as ": <text>\n\n", flushing after every frame. Decoder reads a
// stream back and yields only data payloads, skipping comments and the
// event, id and retry fields.
package sse
