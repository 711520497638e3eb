package agent

import "github.com/leofalp/aigo/providers/ai"

// ToolResultRecord is the outcome of one tool call within a step. IsError is
// set both for execution failures and for calls naming an unknown tool.
type ToolResultRecord struct {
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// StepResult records one completed loop iteration. StepIndex grows
// monotonically from 0; Usage is the delta consumed by this step only.
// StepResults are immutable once recorded.
type StepResult struct {
	StepIndex    int                `json:"step_index"`
	Message      ai.Message         `json:"message"`
	FinishReason ai.FinishReason    `json:"finish_reason,omitempty"`
	Usage        ai.Usage           `json:"usage,omitempty"`
	ToolCalls    []ai.ToolCallPart  `json:"tool_calls,omitempty"`
	ToolResults  []ToolResultRecord `json:"tool_results,omitempty"`
}

// Output is the final outcome of a run, built once at loop exit.
type Output struct {
	// Text is the text of the last assistant message, "" when the model
	// produced none.
	Text string `json:"text"`
	// Messages is the full history: input messages (with instructions
	// prepended) plus everything generated during the run.
	Messages []ai.Message `json:"messages"`
	// Usage is the accumulated token usage across all steps.
	Usage ai.Usage `json:"usage"`
	// Steps is the number of completed iterations.
	Steps int `json:"steps"`
	// StepResults holds the per-step records in order.
	StepResults []StepResult `json:"step_results,omitempty"`
	// Structured holds the parsed final text when an output schema was
	// configured and the text validated against it; nil otherwise.
	Structured any `json:"structured,omitempty"`
}

// lastAssistantText returns the text of the most recent assistant message.
func lastAssistantText(messages []ai.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleAssistant {
			return messages[i].Text()
		}
	}
	return ""
}
