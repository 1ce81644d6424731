package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/n0madic/go-gradiogate/internal/types"
)

const (
	objectCompletion = "chat.completion"
	objectChunk      = "chat.completion.chunk"
	finishStop       = "stop"
	roleAssistant    = "assistant"
)

// ChatEncoder encodes responses in OpenAI Chat Completions format.
type ChatEncoder struct{}

// WriteCollected writes a single chat.completion object. The reasoning field
// is present only when reasoning is non-empty.
func (e *ChatEncoder) WriteCollected(w http.ResponseWriter, statusCode int, resp *CollectedResponse) {
	reasoningText, content := resp.Split()
	completion := types.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  objectCompletion,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: []types.ChatChoice{{
			Index: 0,
			Message: types.ChatResponseMsg{
				Role:             roleAssistant,
				Content:          content,
				ReasoningContent: reasoningText,
			},
			FinishReason: types.StringPtr(finishStop),
		}},
		Usage: resp.Usage,
	}
	WriteJSON(w, statusCode, completion)
}

// WriteStreamHeaders writes the SSE response headers.
func (e *ChatEncoder) WriteStreamHeaders(w http.ResponseWriter, statusCode int) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(statusCode)
}

// WriteStream replays a complete answer as a short chunk sequence: a
// reasoning chunk (only when reasoning is non-empty), one content chunk, a
// stop chunk and the [DONE] marker. It returns the first write error.
func (e *ChatEncoder) WriteStream(w http.ResponseWriter, resp *CollectedResponse) error {
	reasoningText, content := resp.Split()
	flusher, _ := w.(http.Flusher)

	sw := &sseWriter{w: w, flusher: flusher}
	if reasoningText != "" {
		sw.chunk(resp, types.ChatDelta{Role: roleAssistant, ReasoningContent: reasoningText}, nil)
	}
	sw.chunk(resp, types.ChatDelta{Content: &content}, nil)
	sw.chunk(resp, types.ChatDelta{}, types.StringPtr(finishStop))
	sw.done()
	return sw.err
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

func (s *sseWriter) chunk(resp *CollectedResponse, delta types.ChatDelta, finish *string) {
	if s.err != nil {
		return
	}
	data, err := marshalNoEscape(types.ChatCompletionChunk{
		ID:      resp.ID,
		Object:  objectChunk,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: []types.ChatChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	})
	if err != nil {
		slog.Error("failed to marshal SSE chunk", "error", err)
		s.err = err
		return
	}
	s.write(fmt.Sprintf("data: %s\n\n", data))
}

func (s *sseWriter) done() {
	s.write("data: [DONE]\n\n")
}

func (s *sseWriter) write(frame string) {
	if s.err != nil {
		return
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		slog.Debug("client disconnected during SSE write", "error", err)
		s.err = err
		return
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
