package sse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
)

// Decoder reads data payloads from an event stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder reads frames from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the payload of the next frame that carries data. Multiple data
// lines in one frame are joined with "\n". Frames without data lines, such as
// heartbeats, are skipped. Returns io.EOF once the stream ends.
func (d *Decoder) Next() ([]byte, error) {
	var (
		data    [][]byte
		hasData bool
	)

	for {
		line, err := d.r.ReadBytes('\n')
		if err != nil && len(line) == 0 {
			if hasData {
				return bytes.Join(data, []byte("\n")), nil
			}
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if hasData {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		if len(field) == 0 {
			continue
		}
		if string(field) != "data" {
			continue
		}
		value = bytes.TrimPrefix(value, []byte(" "))
		data = append(data, bytes.Clone(value))
		hasData = true
	}
}

// Decode reads the next data payload and unmarshals it into v.
func (d *Decoder) Decode(v any) error {
	payload, err := d.Next()
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}
