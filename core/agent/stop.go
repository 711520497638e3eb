package agent

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// StopFunc is a caller-supplied stop predicate, registered under a name with
// [WithStopFunc] and referenced by [Custom].
type StopFunc func(step *StepResult) bool

type stopKind int

const (
	stopMaxSteps stopKind = iota
	stopHasToolCall
	stopTextGenerated
	stopCustom
	stopExpr
)

// StopCondition decides, after each completed step, whether the loop should
// halt. Conditions form a closed set built through the constructors below;
// any firing condition stops the run.
type StopCondition struct {
	kind    stopKind
	n       int
	name    string
	program *vm.Program
}

// MaxSteps stops after n completed steps. Independent of the agent's own
// step budget, which always bounds the loop.
func MaxSteps(n int) StopCondition {
	return StopCondition{kind: stopMaxSteps, n: n}
}

// HasToolCall stops as soon as a step requested the named tool.
func HasToolCall(name string) StopCondition {
	return StopCondition{kind: stopHasToolCall, name: name}
}

// TextGenerated stops as soon as a step produced assistant text.
func TextGenerated() StopCondition {
	return StopCondition{kind: stopTextGenerated}
}

// Custom stops when the predicate registered under name via [WithStopFunc]
// returns true. An unresolved name never fires.
func Custom(name string) StopCondition {
	return StopCondition{kind: stopCustom, name: name}
}

// exprEnv is the variable set available to expression conditions.
func exprEnv(step *StepResult) map[string]any {
	toolNames := make([]string, 0, len(step.ToolCalls))
	for _, call := range step.ToolCalls {
		toolNames = append(toolNames, call.Name)
	}

	return map[string]any{
		"step_index":    step.StepIndex,
		"text":          step.Message.Text(),
		"finish_reason": string(step.FinishReason),
		"tool_calls":    len(step.ToolCalls),
		"tool_names":    toolNames,
	}
}

// ExprCondition compiles a boolean expression over the step variables
// {step_index, text, finish_reason, tool_calls, tool_names}.
//
// Example:
//
//	cond, err := agent.ExprCondition(`step_index >= 2 && "search" in tool_names`)
func ExprCondition(source string) (StopCondition, error) {
	program, err := expr.Compile(source,
		expr.Env(exprEnv(&StepResult{})),
		expr.AsBool(),
	)
	if err != nil {
		return StopCondition{}, fmt.Errorf("invalid stop expression %q: %w", source, err)
	}
	return StopCondition{kind: stopExpr, name: source, program: program}, nil
}

// evaluate reports whether the condition fires for the given step.
func (c StopCondition) evaluate(step *StepResult, funcs map[string]StopFunc) bool {
	switch c.kind {
	case stopMaxSteps:
		return step.StepIndex+1 >= c.n

	case stopHasToolCall:
		for _, call := range step.ToolCalls {
			if call.Name == c.name {
				return true
			}
		}
		return false

	case stopTextGenerated:
		return step.Message.Text() != ""

	case stopCustom:
		fn := funcs[c.name]
		return fn != nil && fn(step)

	case stopExpr:
		result, err := expr.Run(c.program, exprEnv(step))
		if err != nil {
			return false
		}
		fired, ok := result.(bool)
		return ok && fired

	default:
		return false
	}
}
