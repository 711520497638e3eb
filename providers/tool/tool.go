// Package tool provides the executable tool surface agents dispatch to:
// strongly-typed tools with reflection-derived parameter schemas, the
// provider-agnostic GenericTool interface, and a thread-safe Catalog.
package tool

import (
	"context"
	"encoding/json"

	"github.com/leofalp/aigo/core/parse"
	"github.com/leofalp/aigo/internal/jsonschema"
	"github.com/leofalp/aigo/providers/ai"
)

// Tool binds a name and description to a strongly-typed Go function and
// automatically derives JSON schemas for the input (I) and output (O) types
// via reflection. Use [New] to construct one; store it as a [GenericTool] for
// provider-agnostic dispatch.
type Tool[I, O any] struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Output      *jsonschema.Schema
	Function    func(ctx context.Context, input I) (O, error)
}

// GenericTool is the provider-agnostic interface for all tools. It abstracts
// over the concrete generic type parameters of [Tool] so tools can be stored
// and dispatched without knowing their exact input/output types.
type GenericTool interface {
	// Info returns the metadata (name, description, parameter schema) used
	// to advertise this tool to a provider.
	Info() ai.ToolDescription

	// Call invokes the tool with a serialized input string and returns a
	// JSON-encoded output string. Returns an error if parsing or execution
	// fails.
	Call(ctx context.Context, inputJSON string) (string, error)
}

type toolOptions struct {
	Description string
}

// WithDescription sets a human-readable description for the tool.
// Providers surface it to the model to help it decide when to invoke the tool.
func WithDescription(description string) func(*toolOptions) {
	return func(o *toolOptions) {
		o.Description = description
	}
}

// New constructs a [Tool] with the given name and handler function. JSON
// schemas for I and O are derived automatically via reflection.
//
// Example:
//
//	search := tool.New("search", searchFunc,
//	    tool.WithDescription("Searches the web for a query."),
//	)
func New[I, O any](name string, function func(ctx context.Context, input I) (O, error), options ...func(*toolOptions)) *Tool[I, O] {
	opts := &toolOptions{}
	for _, option := range options {
		option(opts)
	}

	return &Tool[I, O]{
		Name:        name,
		Description: opts.Description,
		Parameters:  jsonschema.For[I](),
		Output:      jsonschema.For[O](),
		Function:    function,
	}
}

// Info returns the [ai.ToolDescription] used to advertise this tool.
func (t *Tool[I, O]) Info() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

// Call deserializes inputJSON into I (leniently, tolerating model-flavored
// JSON), executes the function, and returns the result serialized as JSON.
func (t *Tool[I, O]) Call(ctx context.Context, inputJSON string) (string, error) {
	input, err := parse.StringAs[I](inputJSON)
	if err != nil {
		return "", err
	}

	output, err := t.Function(ctx, input)
	if err != nil {
		return "", err
	}

	outputBytes, err := json.Marshal(output)
	if err != nil {
		return "", err
	}
	return string(outputBytes), nil
}
