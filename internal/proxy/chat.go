package proxy

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/n0madic/go-gradiogate/internal/codec"
	"github.com/n0madic/go-gradiogate/internal/metrics"
	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/payload"
	"github.com/n0madic/go-gradiogate/internal/session"
	"github.com/n0madic/go-gradiogate/internal/types"
)

const missingCredentialError = "Missing Hugging Face Token in Authorization header"

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	credential, ok := parseBearerAuthToken(r.Header.Get("Authorization"))
	if !ok {
		codec.WriteOpenAIError(w, http.StatusUnauthorized, missingCredentialError)
		return
	}

	body, ok := readLimitedRequestBody(w, r)
	if !ok {
		return
	}
	req, err := types.DecodeChatCompletionRequest(body)
	if err != nil {
		codec.WriteOpenAIError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	start := time.Now()
	result, err := s.coordinator.Invoke(r.Context(), req, credential)
	if err != nil {
		codec.WriteOpenAIError(w, statusForError(err), err.Error())
		return
	}
	if s.Config.Verbose {
		slog.Info("chat.completion",
			"model", req.Model,
			"stream", req.Stream,
			"backend_reasoning", result.Reasoning != nil,
			"elapsed", time.Since(start),
		)
	}

	resp := codec.NewCollectedResponse(req.Model, result.Reasoning, result.Content)

	if req.Stream {
		done := metrics.StreamStarted()
		defer done()
		s.encoder.WriteStreamHeaders(w, http.StatusOK)
		if err := s.encoder.WriteStream(w, resp); err != nil {
			slog.Debug("stream.write.failed", "model", req.Model, "error", err)
		}
		return
	}

	if s.Config.Usage.Enabled {
		reasoningText, content := resp.Split()
		resp.Usage = s.tokens.Usage(
			payload.SystemPrompt(req.Messages, req.Effort()),
			payload.UserInput(req.Messages),
			reasoningText,
			content,
		)
	}
	s.encoder.WriteCollected(w, http.StatusOK, resp)
}

// statusForError maps coordinator failures to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrUnknownModel):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	created := time.Now().Unix()
	ids := s.Registry.IDs()
	list := types.ModelList{
		Object: "list",
		Data:   make([]types.ModelObject, 0, len(ids)),
	}
	for _, id := range ids {
		list.Data = append(list.Data, types.ModelObject{ID: id, Object: "model", Created: created})
	}
	codec.WriteJSON(w, http.StatusOK, list)
}
