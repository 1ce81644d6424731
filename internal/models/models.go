package models

import (
	"fmt"
	"strings"
)

// DefaultOperation is the backend operation invoked unless a descriptor
// overrides it.
const DefaultOperation = "/chat"

// InputShape selects how the prompt is laid out in the backend payload.
// It is encoded by the first flag digit.
type InputShape int

const (
	// InputMessageSystemMessage sends `message` and `system_message` (any
	// digit without a dedicated shape).
	InputMessageSystemMessage InputShape = iota
	// InputDataSystemPrompt sends `input_data` and `system_prompt` (digit 1).
	InputDataSystemPrompt
	// InputStructuredMessage sends `message: {text, files}` and a separate
	// `system_prompt` (digit 2).
	InputStructuredMessage
	// InputStructuredCombined sends `message: {text: system+"\n"+user, files}` (digit 3).
	InputStructuredCombined
	// InputFlatCombined sends `message: system+"\n"+user` (digit 4).
	InputFlatCombined
	// InputPromptPolicy sends `prompt` and `policy` (digit 5).
	InputPromptPolicy
)

func (s InputShape) String() string {
	switch s {
	case InputDataSystemPrompt:
		return "input_data+system_prompt"
	case InputStructuredMessage:
		return "structured+system_prompt"
	case InputStructuredCombined:
		return "structured combined"
	case InputFlatCombined:
		return "flat combined"
	case InputPromptPolicy:
		return "prompt+policy"
	default:
		return "message+system_message"
	}
}

// SamplingMode selects which sampling parameters are forwarded. It is encoded
// by the second flag digit.
type SamplingMode int

const (
	// SamplingNone forwards no sampling parameters.
	SamplingNone SamplingMode = iota
	// SamplingAll forwards all five parameters (digit 1).
	SamplingAll
	// SamplingMaxTokens forwards max tokens only (digit 2).
	SamplingMaxTokens
)

func (m SamplingMode) String() string {
	switch m {
	case SamplingAll:
		return "all"
	case SamplingMaxTokens:
		return "max_tokens"
	default:
		return "none"
	}
}

// Flags is the decoded two-digit behaviour switch of a backend.
type Flags struct {
	Input    InputShape
	Sampling SamplingMode
	raw      string
}

// ParseFlags decodes a flag string. It must be exactly two ASCII digits.
func ParseFlags(s string) (Flags, error) {
	if len(s) != 2 || !isDigit(s[0]) || !isDigit(s[1]) {
		return Flags{}, fmt.Errorf("flags %q: want exactly two digits", s)
	}

	f := Flags{raw: s}
	switch s[0] {
	case '1':
		f.Input = InputDataSystemPrompt
	case '2':
		f.Input = InputStructuredMessage
	case '3':
		f.Input = InputStructuredCombined
	case '4':
		f.Input = InputFlatCombined
	case '5':
		f.Input = InputPromptPolicy
	default:
		f.Input = InputMessageSystemMessage
	}
	switch s[1] {
	case '1':
		f.Sampling = SamplingAll
	case '2':
		f.Sampling = SamplingMaxTokens
	default:
		f.Sampling = SamplingNone
	}
	return f, nil
}

// MustParseFlags is ParseFlags for static tables; it panics on bad input.
func MustParseFlags(s string) Flags {
	f, err := ParseFlags(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Flags) String() string {
	if f.raw == "" {
		return "00"
	}
	return f.raw
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Descriptor identifies one supported model and how to reach its backend.
type Descriptor struct {
	ID          string
	EndpointRef string
	Flags       Flags
	Operation   string
}

// OperationName returns the operation override or DefaultOperation.
func (d Descriptor) OperationName() string {
	if op := strings.TrimSpace(d.Operation); op != "" {
		return op
	}
	return DefaultOperation
}

// BuiltinDescriptors returns the default model table, in listing order.
func BuiltinDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "gpt-oss-20b", EndpointRef: "merterbak/gpt-oss-20b-demo", Flags: MustParseFlags("11")},
		{ID: "gpt-oss-20b-safe", EndpointRef: "openai/gpt-oss-safeguard-20b", Flags: MustParseFlags("52"), Operation: "/generate"},
		{ID: "gemma-3-12b", EndpointRef: "huggingface-projects/gemma-3-12b-it", Flags: MustParseFlags("22")},
		{ID: "gemma-2-9b", EndpointRef: "huggingface-projects/gemma-2-9b-it", Flags: MustParseFlags("41")},
		{ID: "gemma-2-2b", EndpointRef: "huggingface-projects/gemma-2-2b-it", Flags: MustParseFlags("41")},
		{ID: "qwen2.5-3b", EndpointRef: "Kingoteam/Qwen2.5-vl-3B-demo", Flags: MustParseFlags("30")},
		{ID: "gemma-3-270m", EndpointRef: "daniel-dona/gemma-3-270m", Flags: MustParseFlags("00")},
	}
}
