package stream

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestReaderGradioStream(t *testing.T) {
	input := strings.Join([]string{
		"event: generating",
		`data: ["partial"]`,
		"",
		": keep-alive",
		"event: heartbeat",
		"data: null",
		"",
		"event: complete",
		`data: ["thinking", "answer"]`,
		"",
	}, "\n")
	r := NewReader(strings.NewReader(input))

	want := []struct {
		typ  string
		data string
	}{
		{"generating", `["partial"]`},
		{"heartbeat", "null"},
		{"complete", `["thinking", "answer"]`},
	}
	for i, w := range want {
		evt, err := r.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if evt.Type != w.typ || string(evt.Data) != w.data {
			t.Fatalf("event %d = %q %q, want %q %q", i, evt.Type, evt.Data, w.typ, w.data)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestReaderDefaultsAndMultiline(t *testing.T) {
	input := "data: {\"a\":\ndata: 1}\n\nevent: error\ndata: \"boom\""
	r := NewReader(strings.NewReader(input))

	evt, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if evt.Type != "message" {
		t.Fatalf("type = %q", evt.Type)
	}
	if got := evt.JSON().Get("a").Int(); got != 1 {
		t.Fatalf("a = %d (data %q)", got, evt.Data)
	}

	evt, err = r.Next()
	if err != nil {
		t.Fatalf("Next without trailing blank line: %v", err)
	}
	if evt.Type != "error" || evt.JSON().String() != "boom" {
		t.Fatalf("error event = %q %q", evt.Type, evt.Data)
	}
}

func TestEventJSONInvalid(t *testing.T) {
	evt := &Event{Type: "message", Data: []byte("not json")}
	if evt.JSON().Exists() {
		t.Fatal("invalid JSON must not exist")
	}
}
