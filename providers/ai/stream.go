package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	// StreamEventContent indicates a text content delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventToolCall indicates an incremental tool call delta (name or arguments chunk).
	StreamEventToolCall StreamEventType = "tool_call"
	// StreamEventUsage carries token usage metadata (typically the final event).
	StreamEventUsage StreamEventType = "usage"
	// StreamEventDone signals that the stream has finished normally.
	StreamEventDone StreamEventType = "done"
	// StreamEventError signals an error that terminated the stream.
	StreamEventError StreamEventType = "error"
)

// ToolCallDelta represents an incremental update to a tool call being
// streamed. Index identifies which call is being updated (there may be
// several in flight). ID and Name are only present on the first chunk for a
// given index; later chunks carry only Arguments fragments.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamEvent represents a single delta yielded during streaming. Each event
// carries exactly one kind of payload, identified by Type.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`
	ToolCall     *ToolCallDelta  `json:"tool_call,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason FinishReason    `json:"finish_reason,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// EventStream wraps a streaming iterator and provides automatic accumulation
// of deltas into a final GenerateResult. It supports both range-based
// iteration for real-time token processing and a convenience Collect method.
//
// Callers must consume the stream, either by iterating with Iter (breaking
// out early is fine) or by calling Collect. The underlying provider may hold
// open resources (such as an HTTP response body) that are only released when
// the iterator completes or is abandoned via a loop break.
type EventStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewEventStream creates an EventStream from a raw streaming iterator.
// The iterator yields StreamEvent values with a nil error for normal deltas,
// and may yield a non-nil error to signal a mid-stream failure.
func NewEventStream(iterator iter.Seq2[StreamEvent, error]) *EventStream {
	return &EventStream{iterator: iterator}
}

// SingleEventStream wraps a synchronous GenerateResult as a short stream.
// Used as the fallback when a provider cannot stream natively: the whole
// response is delivered as one content event per part, then usage and done.
func SingleEventStream(result *GenerateResult) *EventStream {
	iteratorFunc := func(yield func(StreamEvent, error) bool) {
		if text := result.Message.Text(); text != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: text}, nil) {
				return
			}
		}

		for index, call := range result.Message.ToolCalls() {
			event := StreamEvent{
				Type: StreamEventToolCall,
				ToolCall: &ToolCallDelta{
					Index:     index,
					ID:        call.ID,
					Name:      call.Name,
					Arguments: call.Arguments,
				},
			}
			if !yield(event, nil) {
				return
			}
		}

		if result.Usage != (Usage{}) {
			usage := result.Usage
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: &usage}, nil) {
				return
			}
		}

		yield(StreamEvent{Type: StreamEventDone, FinishReason: result.FinishReason}, nil)
	}

	return NewEventStream(iteratorFunc)
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for event, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(event.Content)
//	}
func (stream *EventStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated
// GenerateResult. Any mid-stream error terminates collection and returns the
// partial result together with the error.
func (stream *EventStream) Collect() (*GenerateResult, error) {
	var (
		content  strings.Builder
		builders []toolCallBuilder
		result   = &GenerateResult{Message: Message{Role: RoleAssistant}}
	)

	finalize := func() {
		if content.Len() > 0 {
			result.Message.Parts = append(result.Message.Parts, TextPart{Text: content.String()})
		}
		for _, builder := range builders {
			result.Message.Parts = append(result.Message.Parts, ToolCallPart{
				ID:        builder.id,
				Name:      builder.name,
				Arguments: builder.arguments.String(),
			})
		}
	}

	for event, err := range stream.iterator {
		if err != nil {
			finalize()
			return result, err
		}

		switch event.Type {
		case StreamEventContent:
			content.WriteString(event.Content)

		case StreamEventToolCall:
			if event.ToolCall != nil {
				builders = accumulateToolCallDelta(builders, event.ToolCall)
			}

		case StreamEventUsage:
			if event.Usage != nil {
				result.Usage = *event.Usage
			}

		case StreamEventDone:
			result.FinishReason = event.FinishReason

		case StreamEventError:
			// Informational; the terminating error arrives through the
			// iterator's error value.
		}
	}

	finalize()
	return result, nil
}

// toolCallBuilder accumulates incremental deltas into a complete tool call.
type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// accumulateToolCallDelta merges a delta into the running list of builders,
// growing the slice as new indices appear.
func accumulateToolCallDelta(builders []toolCallBuilder, delta *ToolCallDelta) []toolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, toolCallBuilder{})
	}

	builder := &builders[delta.Index]

	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}

	return builders
}
