package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aigo/internal/jsonschema"
)

// Role identifies who authored a message; compatible with string.
type Role string

const (
	RoleSystem    Role = "system"    // System instructions/configuration
	RoleUser      Role = "user"      // End-user message
	RoleAssistant Role = "assistant" // Model response
	RoleTool      Role = "tool"      // Tool/function output
)

// Part is one segment of a message's content. Concrete part types implement
// the unexported isPart marker, keeping the set closed: a Part is always a
// [TextPart], a [ToolCallPart], or a [ToolResultPart].
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

func (TextPart) isPart() {}

// ToolCallPart is an assistant request to invoke a named tool.
// Arguments is the serialized (typically JSON) argument payload as produced
// by the model; it is parsed leniently at execution time.
type ToolCallPart struct {
	ID        string `json:"id,omitempty"` // Pairs the call with its result
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

func (ToolCallPart) isPart() {}

// ToolResultPart carries the outcome of a tool call back to the model.
// IsError marks results synthesized from execution failures or unknown tools;
// the run continues either way.
type ToolResultPart struct {
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

func (ToolResultPart) isPart() {}

// Message is a single conversation entry: a role plus ordered heterogeneous
// parts. Messages appended to a run's history are never mutated afterwards.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// System builds a system message with a single text part.
func System(text string) Message {
	return Message{Role: RoleSystem, Parts: []Part{TextPart{Text: text}}}
}

// User builds a user message with a single text part.
func User(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// Assistant builds an assistant message with a single text part.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// ToolResult builds a tool message carrying one result part.
func ToolResult(callID, name, content string, isError bool) Message {
	return Message{Role: RoleTool, Parts: []Part{ToolResultPart{
		ToolCallID: callID,
		Name:       name,
		Content:    content,
		IsError:    isError,
	}}}
}

// Text returns the concatenation of all text parts in the message,
// or "" when the message carries none.
func (m Message) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if text, ok := part.(TextPart); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool call parts of the message in declared order.
func (m Message) ToolCalls() []ToolCallPart {
	var calls []ToolCallPart
	for _, part := range m.Parts {
		if call, ok := part.(ToolCallPart); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

// wirePart is the tagged JSON envelope used to round-trip the closed Part set.
type wirePart struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	ToolCallID string `json:"tool_call_id,omitempty"`
	Content    string `json:"content,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// MarshalJSON encodes the message with type-tagged parts so the closed Part
// set survives serialization.
func (m Message) MarshalJSON() ([]byte, error) {
	parts := make([]wirePart, 0, len(m.Parts))
	for _, part := range m.Parts {
		switch p := part.(type) {
		case TextPart:
			parts = append(parts, wirePart{Type: "text", Text: p.Text})
		case ToolCallPart:
			parts = append(parts, wirePart{Type: "tool_call", ID: p.ID, Name: p.Name, Arguments: p.Arguments})
		case ToolResultPart:
			parts = append(parts, wirePart{Type: "tool_result", ToolCallID: p.ToolCallID, Name: p.Name, Content: p.Content, IsError: p.IsError})
		default:
			return nil, fmt.Errorf("ai: unknown message part type %T", part)
		}
	}

	return json.Marshal(struct {
		Role  Role       `json:"role"`
		Parts []wirePart `json:"parts"`
	}{Role: m.Role, Parts: parts})
}

// UnmarshalJSON decodes a message produced by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role  Role       `json:"role"`
		Parts []wirePart `json:"parts"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.Role = wire.Role
	m.Parts = make([]Part, 0, len(wire.Parts))
	for _, p := range wire.Parts {
		switch p.Type {
		case "text":
			m.Parts = append(m.Parts, TextPart{Text: p.Text})
		case "tool_call":
			m.Parts = append(m.Parts, ToolCallPart{ID: p.ID, Name: p.Name, Arguments: p.Arguments})
		case "tool_result":
			m.Parts = append(m.Parts, ToolResultPart{ToolCallID: p.ToolCallID, Name: p.Name, Content: p.Content, IsError: p.IsError})
		default:
			return fmt.Errorf("ai: unknown message part type %q", p.Type)
		}
	}
	return nil
}

// Usage tracks token consumption for a single generation or an entire run.
type Usage struct {
	InputTokens     int `json:"input_tokens,omitempty"`
	OutputTokens    int `json:"output_tokens,omitempty"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	CachedTokens    int `json:"cached_tokens,omitempty"`
}

// Add accumulates another usage delta into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.ReasoningTokens += other.ReasoningTokens
	u.CachedTokens += other.CachedTokens
}

// TotalTokens returns input plus output tokens.
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens
}

// FinishReason explains why the model stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"           // Natural completion
	FinishLength        FinishReason = "length"         // Token limit reached
	FinishToolCalls     FinishReason = "tool_calls"     // Model requested tool execution
	FinishContentFilter FinishReason = "content_filter" // Response blocked by safety filters
)

// ToolDescription is the metadata used to advertise a tool to a provider.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// GenerateOptions tunes a generation request. A nil *GenerateOptions means
// provider defaults everywhere.
type GenerateOptions struct {
	MaxTokens        int     `json:"max_tokens,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`       // Sampling temperature [0..2]
	TopP             float64 `json:"top_p,omitempty"`             // Nucleus sampling [0..1], alternative to temperature
	FrequencyPenalty float64 `json:"frequency_penalty,omitempty"` // [-2..2], positive values reduce repetition
	PresencePenalty  float64 `json:"presence_penalty,omitempty"`  // [-2..2], positive values encourage new topics

	// OutputSchema is an optional JSON Schema document (as unmarshaled JSON
	// values) that the final assistant text should conform to. Validation
	// happens after the run completes and never fails it.
	OutputSchema map[string]any `json:"output_schema,omitempty"`
}

// GenerateResult is the outcome of a single provider generation.
type GenerateResult struct {
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        Usage        `json:"usage,omitempty"`
}
