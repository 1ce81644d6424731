// Package tokens estimates prompt and completion token counts for the usage
// block of chat completions.
package tokens

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/n0madic/go-gradiogate/internal/types"
)

// Encoding is the BPE used for counting. Backends tokenize differently, so
// counts are an approximation either way.
const Encoding = "cl100k_base"

// Counter counts tokens with tiktoken, falling back to one token per four
// characters when the encoding cannot be loaded.
type Counter struct {
	once sync.Once
	load func() (*tiktoken.Tiktoken, error)
	enc  *tiktoken.Tiktoken
}

// NewCounter returns a counter that loads the encoding on first use.
func NewCounter() *Counter {
	return &Counter{load: func() (*tiktoken.Tiktoken, error) {
		return tiktoken.GetEncoding(Encoding)
	}}
}

// NewEstimator returns a counter that never loads an encoding and always uses
// the character estimate.
func NewEstimator() *Counter {
	return &Counter{}
}

func (c *Counter) encoder() *tiktoken.Tiktoken {
	c.once.Do(func() {
		if c.load == nil {
			return
		}
		enc, err := c.load()
		if err != nil {
			slog.Warn("tokens.encoding.unavailable", "encoding", Encoding, "error", err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

// Count returns the token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return estimate(text)
}

func estimate(text string) int {
	n := (utf8.RuneCountInString(text) + 3) / 4
	if n == 0 {
		return 1
	}
	return n
}

// Usage counts the prompt actually sent to the backend and the answer,
// reasoning included.
func (c *Counter) Usage(systemPrompt, userInput, reasoning, content string) *types.Usage {
	prompt := c.Count(systemPrompt) + c.Count(userInput)
	completion := c.Count(reasoning) + c.Count(content)
	return &types.Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}
