package agent

import (
	"context"

	"github.com/leofalp/aigo/providers/ai"
)

// Hooks are optional observation points around the loop. They run
// synchronously on the run's goroutine and cannot alter control flow; a nil
// field is simply skipped.
type Hooks struct {
	// BeforeGenerate runs before each provider call with the history about
	// to be sent.
	BeforeGenerate func(ctx context.Context, stepIndex int, messages []ai.Message)

	// AfterGenerate runs once per step with the finalized StepResult,
	// after any tool executions of that step.
	AfterGenerate func(ctx context.Context, step *StepResult)

	// BeforeTool runs before each tool execution.
	BeforeTool func(ctx context.Context, call ai.ToolCallPart)

	// AfterTool runs after each tool execution with its recorded result.
	AfterTool func(ctx context.Context, result ToolResultRecord)
}
