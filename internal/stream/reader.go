package stream

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

const defaultEventType = "message"

// Reader reads SSE events from an io.Reader.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a new SSE reader.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next event. Comment lines and events without data are
// skipped. It returns nil, io.EOF when the stream ends.
func (r *Reader) Next() (*Event, error) {
	var (
		eventType string
		data      bytes.Buffer
		hasData   bool
	)
	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if hasData {
				return newEvent(eventType, data.Bytes()), nil
			}
			eventType = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			eventType = strings.TrimSpace(value)
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		return newEvent(eventType, data.Bytes()), nil
	}
	return nil, io.EOF
}

func newEvent(eventType string, data []byte) *Event {
	if eventType == "" {
		eventType = defaultEventType
	}
	return &Event{Type: eventType, Data: bytes.Clone(data)}
}
