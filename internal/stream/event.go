package stream

import "github.com/tidwall/gjson"

// Event is one server-sent event. Type is the `event:` field ("message" when
// absent) and Data the joined `data:` lines.
type Event struct {
	Type string
	Data []byte
}

// JSON parses Data. Invalid JSON yields a result whose Exists is false.
func (e *Event) JSON() gjson.Result {
	if e == nil || !gjson.ValidBytes(e.Data) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(e.Data)
}
