package agent

import (
	"fmt"

	"github.com/leofalp/aigo/core/parse"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const outputSchemaURL = "aigo://output.schema.json"

// compileOutputSchema compiles the JSON Schema document configured via
// GenerateOptions.OutputSchema. Called once at construction so a malformed
// schema fails fast instead of on every run.
func compileOutputSchema(doc map[string]any) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(outputSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("invalid output schema: %w", err)
	}

	schema, err := compiler.Compile(outputSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid output schema: %w", err)
	}
	return schema, nil
}

// structured parses the final text leniently and validates it against the
// output schema. Best effort: any parse or validation failure yields nil and
// never fails the run.
func (a *Agent) structured(text string) any {
	value, err := parse.StringAs[any](text)
	if err != nil {
		a.logger.Debug("structured output not parseable", "agent", a.name, "error", err)
		return nil
	}

	if err := a.outputSchema.Validate(value); err != nil {
		a.logger.Debug("structured output failed validation", "agent", a.name, "error", err)
		return nil
	}
	return value
}
