// Package codec renders backend answers as OpenAI chat completion responses.
package codec

import (
	"time"

	"github.com/google/uuid"

	"github.com/n0madic/go-gradiogate/internal/reasoning"
	"github.com/n0madic/go-gradiogate/internal/types"
)

// CollectedResponse holds a fully materialized backend answer. Reasoning is
// nil when it has to be parsed out of Content.
type CollectedResponse struct {
	ID        string
	Created   int64
	Model     string
	Reasoning *string
	Content   string
	Usage     *types.Usage
}

// NewCollectedResponse stamps a fresh completion id and creation time.
func NewCollectedResponse(model string, reasoningText *string, content string) *CollectedResponse {
	return &CollectedResponse{
		ID:        NewCompletionID(),
		Created:   time.Now().Unix(),
		Model:     model,
		Reasoning: reasoningText,
		Content:   content,
	}
}

// NewCompletionID returns a chat completion id.
func NewCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// Split returns the reasoning and content to emit. Backend-supplied reasoning
// is used as is; otherwise both parts are extracted from Content.
func (r *CollectedResponse) Split() (reasoningText, content string) {
	if r.Reasoning != nil {
		return *r.Reasoning, r.Content
	}
	return reasoning.Extract(r.Content)
}
