// Package payload builds the keyword arguments sent to a backend operation.
package payload

import (
	"encoding/json"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/n0madic/go-gradiogate/internal/models"
	"github.com/n0madic/go-gradiogate/internal/types"
)

// DefaultSystemPrompt is used when the request carries no system message.
const DefaultSystemPrompt = "You are a helpful assistant."

// Backend keyword names.
const (
	KeyInputData         = "input_data"
	KeySystemPrompt      = "system_prompt"
	KeyMessage           = "message"
	KeySystemMessage     = "system_message"
	KeyPrompt            = "prompt"
	KeyPolicy            = "policy"
	KeyText              = "text"
	KeyFiles             = "files"
	KeyMaxNewTokens      = "max_new_tokens"
	KeyTemperature       = "temperature"
	KeyTopP              = "top_p"
	KeyTopK              = "top_k"
	KeyRepetitionPenalty = "repetition_penalty"
)

// Payload is an insertion-ordered set of keyword arguments. Values are
// strings, numbers, nested *orderedmap.OrderedMap objects or slices.
type Payload struct {
	m *orderedmap.OrderedMap[string, any]
}

// New returns an empty payload.
func New() *Payload {
	return &Payload{m: orderedmap.New[string, any]()}
}

// Set stores value under key, keeping the original position of an existing key.
func (p *Payload) Set(key string, value any) {
	p.m.Set(key, value)
}

// Get returns the value stored under key.
func (p *Payload) Get(key string) (any, bool) {
	return p.m.Get(key)
}

// Keys returns the keys in insertion order.
func (p *Payload) Keys() []string {
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len reports the number of keys.
func (p *Payload) Len() int {
	return p.m.Len()
}

// MarshalJSON encodes the payload as a JSON object in insertion order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.m)
}

// structuredMessage is the multimodal chat input some backends expect.
func structuredMessage(text string) *orderedmap.OrderedMap[string, any] {
	msg := orderedmap.New[string, any]()
	msg.Set(KeyText, text)
	msg.Set(KeyFiles, []any{})
	return msg
}

// SystemPrompt returns the effective system prompt: the last system message
// (or DefaultSystemPrompt), followed by a reasoning hint when effort is set.
func SystemPrompt(messages []types.ChatMessage, effort string) string {
	prompt := DefaultSystemPrompt
	for _, msg := range messages {
		if msg.Role == "system" {
			prompt = msg.Text()
		}
	}
	if effort == "" {
		return prompt
	}
	if !endsWithTerminal(strings.TrimRight(prompt, " \t\r\n")) {
		prompt = strings.TrimSpace(prompt) + "."
	}
	return prompt + " Reasoning: " + effort
}

func endsWithTerminal(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// UserInput returns the content of the last user message, or "".
func UserInput(messages []types.ChatMessage) string {
	input := ""
	for _, msg := range messages {
		if msg.Role == "user" {
			input = msg.Text()
		}
	}
	return input
}

// Build lays out the prompt and sampling parameters for desc.
func Build(desc models.Descriptor, req *types.ChatCompletionRequest, systemPrompt, userInput string) *Payload {
	p := New()

	switch desc.Flags.Input {
	case models.InputDataSystemPrompt:
		p.Set(KeyInputData, userInput)
		p.Set(KeySystemPrompt, systemPrompt)
	case models.InputStructuredMessage:
		p.Set(KeyMessage, structuredMessage(userInput))
		p.Set(KeySystemPrompt, systemPrompt)
	case models.InputStructuredCombined:
		p.Set(KeyMessage, structuredMessage(systemPrompt+"\n"+userInput))
	case models.InputFlatCombined:
		p.Set(KeyMessage, systemPrompt+"\n"+userInput)
	case models.InputPromptPolicy:
		p.Set(KeyPrompt, userInput)
		p.Set(KeyPolicy, systemPrompt)
	default:
		p.Set(KeyMessage, userInput)
		p.Set(KeySystemMessage, systemPrompt)
	}

	switch desc.Flags.Sampling {
	case models.SamplingAll:
		p.Set(KeyMaxNewTokens, req.MaxTokens)
		p.Set(KeyTemperature, req.Temperature)
		p.Set(KeyTopP, req.TopP)
		p.Set(KeyTopK, req.TopK)
		p.Set(KeyRepetitionPenalty, req.RepetitionPenalty)
	case models.SamplingMaxTokens:
		p.Set(KeyMaxNewTokens, req.MaxTokens)
	}

	return p
}
