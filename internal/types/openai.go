package types

import (
	"encoding/json"
	"strings"
)

// Request defaults applied when a field is absent from the JSON body.
const (
	DefaultMaxTokens         = 2000
	DefaultTemperature       = 0.7
	DefaultTopP              = 0.9
	DefaultTopK              = 50
	DefaultRepetitionPenalty = 1.0
	DefaultReasoningEffort   = "low"
)

// --- Request types ---

// ChatCompletionRequest represents an OpenAI chat completion request.
//
// ReasoningEffort is nil when the client sent an explicit null; an absent
// field keeps DefaultReasoningEffort.
type ChatCompletionRequest struct {
	Model             string        `json:"model"`
	Messages          []ChatMessage `json:"messages"`
	MaxTokens         int           `json:"max_tokens"`
	Temperature       float64       `json:"temperature"`
	TopP              float64       `json:"top_p"`
	TopK              int           `json:"top_k"`
	RepetitionPenalty float64       `json:"repetition_penalty"`
	Stream            bool          `json:"stream"`
	ReasoningEffort   *string       `json:"reasoning_effort"`
}

// ChatMessage represents an OpenAI chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content,omitempty"`
}

// ContentPart represents a part of a multimodal content array.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewChatCompletionRequest returns a request populated with the defaults.
func NewChatCompletionRequest() *ChatCompletionRequest {
	return &ChatCompletionRequest{
		MaxTokens:         DefaultMaxTokens,
		Temperature:       DefaultTemperature,
		TopP:              DefaultTopP,
		TopK:              DefaultTopK,
		RepetitionPenalty: DefaultRepetitionPenalty,
		ReasoningEffort:   StringPtr(DefaultReasoningEffort),
	}
}

// DecodeChatCompletionRequest parses body on top of the request defaults.
// A JSON null on a numeric field keeps its default.
func DecodeChatCompletionRequest(body []byte) (*ChatCompletionRequest, error) {
	req := NewChatCompletionRequest()
	if err := json.Unmarshal(body, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Effort returns the reasoning effort hint, or "" when disabled.
func (r *ChatCompletionRequest) Effort() string {
	if r == nil || r.ReasoningEffort == nil {
		return ""
	}
	return *r.ReasoningEffort
}

// Text flattens the message content into plain text. Array content keeps only
// text parts, joined without separators.
func (m ChatMessage) Text() string {
	switch c := m.Content.(type) {
	case nil:
		return ""
	case string:
		return c
	case []any:
		var sb strings.Builder
		for _, item := range c {
			switch part := item.(type) {
			case string:
				sb.WriteString(part)
			case map[string]any:
				if t, _ := part["type"].(string); t == "text" || t == "input_text" {
					s, _ := part["text"].(string)
					sb.WriteString(s)
				}
			}
		}
		return sb.String()
	case []ContentPart:
		var sb strings.Builder
		for _, part := range c {
			if part.Type == "text" || part.Type == "input_text" {
				sb.WriteString(part.Text)
			}
		}
		return sb.String()
	}
	return ""
}

// --- Response types ---

// ChatCompletionResponse represents a non-streaming chat completion response.
type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ChatChoice is a single choice in a non-streaming response.
type ChatChoice struct {
	Index        int             `json:"index"`
	Message      ChatResponseMsg `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

// ChatResponseMsg is the message in a non-streaming response choice.
type ChatResponseMsg struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ChatCompletionChunk represents a streaming chat completion chunk.
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
}

// ChatChunkChoice is a single choice in a streaming chunk.
type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

// ChatDelta holds the delta content in a streaming chunk choice. Content is a
// pointer so an empty answer still serializes as "content":"".
type ChatDelta struct {
	Role             string  `json:"role,omitempty"`
	Content          *string `json:"content,omitempty"`
	ReasoningContent string  `json:"reasoning_content,omitempty"`
}

// Usage holds token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ModelList is the response for GET /v1/models.
type ModelList struct {
	Object string        `json:"object"`
	Data   []ModelObject `json:"data"`
}

// ModelObject represents a single model entry.
type ModelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
}

// ErrorResponse wraps an API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the error message.
type ErrorDetail struct {
	Message string `json:"message"`
}
