package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/leofalp/aigo/providers/ai"
	"github.com/leofalp/aigo/providers/tool"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// DefaultMaxSteps bounds the loop when no explicit budget is configured.
const DefaultMaxSteps = 10

// ErrNilProvider is returned by New when no provider is supplied.
var ErrNilProvider = errors.New("agent: provider is required")

// Agent runs the tool-calling loop against a single provider. Construct with
// [New]; a configured Agent is immutable and safe for concurrent runs.
type Agent struct {
	name         string
	provider     ai.Provider
	instructions string
	catalog      *tool.Catalog
	genOpts      *ai.GenerateOptions
	maxSteps     int
	stops        []StopCondition
	stopFuncs    map[string]StopFunc
	hooks        Hooks
	streaming    bool
	logger       *slog.Logger
	outputSchema *jsonschema.Schema
}

// Option configures an Agent during construction.
type Option func(*Agent)

// WithInstructions sets system instructions prepended to every run.
func WithInstructions(instructions string) Option {
	return func(a *Agent) { a.instructions = instructions }
}

// WithTools registers tools the model may call.
func WithTools(tools ...tool.GenericTool) Option {
	return func(a *Agent) { a.catalog.Add(tools...) }
}

// WithMaxSteps sets the hard step budget. Values below 1 are ignored.
func WithMaxSteps(n int) Option {
	return func(a *Agent) {
		if n >= 1 {
			a.maxSteps = n
		}
	}
}

// WithGenerateOptions sets the generation options passed to the provider on
// every step.
func WithGenerateOptions(opts ai.GenerateOptions) Option {
	return func(a *Agent) { a.genOpts = &opts }
}

// StopWhen adds stop conditions, evaluated after each completed step.
func StopWhen(conditions ...StopCondition) Option {
	return func(a *Agent) { a.stops = append(a.stops, conditions...) }
}

// WithStopFunc registers a named predicate that [Custom] conditions resolve
// against.
func WithStopFunc(name string, fn StopFunc) Option {
	return func(a *Agent) { a.stopFuncs[name] = fn }
}

// WithHooks sets the run observation hooks.
func WithHooks(hooks Hooks) Option {
	return func(a *Agent) { a.hooks = hooks }
}

// WithStreaming makes each step consume the provider's stream (collected to
// a full response per step) when the provider implements ai.StreamProvider.
// Loop semantics are unchanged.
func WithStreaming() Option {
	return func(a *Agent) { a.streaming = true }
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New constructs an Agent bound to the given provider. Returns an error when
// the provider is nil or a configured output schema does not compile.
func New(name string, provider ai.Provider, options ...Option) (*Agent, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}

	a := &Agent{
		name:      name,
		provider:  provider,
		catalog:   tool.NewCatalog(),
		maxSteps:  DefaultMaxSteps,
		stopFuncs: make(map[string]StopFunc),
		logger:    slog.Default(),
	}
	for _, option := range options {
		option(a)
	}

	if a.genOpts != nil && a.genOpts.OutputSchema != nil {
		schema, err := compileOutputSchema(a.genOpts.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
		a.outputSchema = schema
	}

	return a, nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Run executes the loop over the given input messages and returns the final
// output. The history grows append-only: instructions (if any), the input
// messages, then one assistant message per step followed by its tool results.
//
// Provider errors abort the run immediately. Tool errors never do; they
// become error-flagged results the model sees on the next step.
func (a *Agent) Run(ctx context.Context, messages []ai.Message) (*Output, error) {
	runID := uuid.NewString()

	history := make([]ai.Message, 0, len(messages)+1)
	if a.instructions != "" {
		history = append(history, ai.System(a.instructions))
	}
	history = append(history, messages...)

	tools := a.catalog.Descriptions()

	var (
		totalUsage ai.Usage
		steps      []StepResult
	)

	for stepIndex := 0; stepIndex < a.maxSteps; stepIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.logger.Debug("agent step",
			"agent", a.name, "run_id", runID, "step", stepIndex)

		if a.hooks.BeforeGenerate != nil {
			a.hooks.BeforeGenerate(ctx, stepIndex, history)
		}

		result, err := a.generate(ctx, history, tools)
		if err != nil {
			return nil, fmt.Errorf("agent %q: step %d: %w", a.name, stepIndex, err)
		}

		totalUsage.Add(result.Usage)
		calls := ensureCallIDs(&result.Message)
		history = append(history, result.Message)

		step := StepResult{
			StepIndex:    stepIndex,
			Message:      result.Message,
			FinishReason: result.FinishReason,
			Usage:        result.Usage,
			ToolCalls:    calls,
		}

		// A step without tool calls (or with a non-tool finish reason) is
		// terminal.
		if len(calls) == 0 || result.FinishReason != ai.FinishToolCalls {
			steps = a.finishStep(ctx, step, steps)
			break
		}

		for _, call := range calls {
			if a.hooks.BeforeTool != nil {
				a.hooks.BeforeTool(ctx, call)
			}

			record := a.executeToolCall(ctx, call)

			if a.hooks.AfterTool != nil {
				a.hooks.AfterTool(ctx, record)
			}

			step.ToolResults = append(step.ToolResults, record)
			history = append(history, ai.ToolResult(record.ToolCallID, record.ToolName, record.Content, record.IsError))
		}

		shouldStop := a.shouldStop(&step)
		steps = a.finishStep(ctx, step, steps)
		if shouldStop {
			break
		}
	}

	output := &Output{
		Text:        lastAssistantText(history),
		Messages:    history,
		Usage:       totalUsage,
		Steps:       len(steps),
		StepResults: steps,
	}

	if a.outputSchema != nil && output.Text != "" {
		output.Structured = a.structured(output.Text)
	}

	a.logger.Debug("agent run finished",
		"agent", a.name, "run_id", runID,
		"steps", output.Steps, "total_tokens", totalUsage.TotalTokens())

	return output, nil
}

// generate performs one provider call, streaming when enabled and supported.
func (a *Agent) generate(ctx context.Context, history []ai.Message, tools []ai.ToolDescription) (*ai.GenerateResult, error) {
	if a.streaming {
		if streamer, ok := a.provider.(ai.StreamProvider); ok {
			stream, err := streamer.Stream(ctx, history, tools, a.genOpts)
			if err != nil {
				return nil, err
			}
			result, err := stream.Collect()
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
	return a.provider.Generate(ctx, history, tools, a.genOpts)
}

// executeToolCall resolves and runs one requested tool. Failures and unknown
// tools produce error-flagged records instead of errors.
func (a *Agent) executeToolCall(ctx context.Context, call ai.ToolCallPart) ToolResultRecord {
	record := ToolResultRecord{ToolCallID: call.ID, ToolName: call.Name}

	t, found := a.catalog.Get(call.Name)
	if !found {
		a.logger.Warn("tool not found", "agent", a.name, "tool", call.Name)
		record.Content = fmt.Sprintf("Error: tool %q not found", call.Name)
		record.IsError = true
		return record
	}

	content, err := t.Call(ctx, call.Arguments)
	if err != nil {
		a.logger.Warn("tool execution failed",
			"agent", a.name, "tool", call.Name, "error", err)
		record.Content = "Error: " + err.Error()
		record.IsError = true
		return record
	}

	record.Content = content
	return record
}

// shouldStop evaluates the configured stop conditions against a completed step.
func (a *Agent) shouldStop(step *StepResult) bool {
	for _, condition := range a.stops {
		if condition.evaluate(step, a.stopFuncs) {
			return true
		}
	}
	return false
}

// finishStep fires the AfterGenerate hook and records the step.
func (a *Agent) finishStep(ctx context.Context, step StepResult, steps []StepResult) []StepResult {
	if a.hooks.AfterGenerate != nil {
		a.hooks.AfterGenerate(ctx, &step)
	}
	return append(steps, step)
}

// ensureCallIDs assigns synthesized ids to tool calls arriving without one,
// so results can always be paired with their call. The message is still owned
// by the loop at this point; it is not mutated after being appended to the
// history.
func ensureCallIDs(message *ai.Message) []ai.ToolCallPart {
	var calls []ai.ToolCallPart
	for i, part := range message.Parts {
		call, ok := part.(ai.ToolCallPart)
		if !ok {
			continue
		}
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
			message.Parts[i] = call
		}
		calls = append(calls, call)
	}
	return calls
}
