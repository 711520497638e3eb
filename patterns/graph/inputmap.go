package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/leofalp/aigo/providers/ai"
)

// TextInput maps completed outputs to a single user message of "[id]: text"
// lines, sorted by node id for determinism. This is also the default input
// derivation for agent nodes and forks.
func TextInput() InputMapper {
	return func(completed map[string]NodeOutput) []ai.Message {
		ids := make([]string, 0, len(completed))
		for id := range completed {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		lines := make([]string, 0, len(ids))
		for _, id := range ids {
			lines = append(lines, fmt.Sprintf("[%s]: %s", id, completed[id].Text))
		}
		return []ai.Message{ai.User(strings.Join(lines, "\n"))}
	}
}

// FromNode maps the input to a single upstream node's text. A missing id
// yields an empty user message.
func FromNode(id string) InputMapper {
	return func(completed map[string]NodeOutput) []ai.Message {
		return []ai.Message{ai.User(completed[id].Text)}
	}
}

// QueryInput compiles a jq program evaluated over the completed outputs for
// surgical extraction. The program sees an object of the form
// {"<node id>": {"node_id": ..., "text": ..., "data": ...}, ...}; its first
// result becomes the user message (strings verbatim, other values as JSON).
// Evaluation failures degrade to the [TextInput] digest.
//
// Example:
//
//	mapper, err := graph.QueryInput(`.research.text`)
func QueryInput(query string) (InputMapper, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("graph: invalid jq query %q: %w", query, err)
	}

	code, err := gojq.Compile(parsed,
		// Block $ENV and env access; node outputs are the only input.
		gojq.WithEnvironLoader(func() []string { return nil }),
	)
	if err != nil {
		return nil, fmt.Errorf("graph: invalid jq query %q: %w", query, err)
	}

	fallback := TextInput()

	return func(completed map[string]NodeOutput) []ai.Message {
		doc, err := outputsDocument(completed)
		if err != nil {
			return fallback(completed)
		}

		iter := code.Run(doc)
		value, ok := iter.Next()
		if !ok {
			return fallback(completed)
		}
		if _, isErr := value.(error); isErr {
			return fallback(completed)
		}

		switch v := value.(type) {
		case nil:
			return fallback(completed)
		case string:
			return []ai.Message{ai.User(v)}
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return fallback(completed)
			}
			return []ai.Message{ai.User(string(encoded))}
		}
	}, nil
}

// outputsDocument converts the completed map to plain unmarshaled-JSON
// values, the only shapes gojq accepts.
func outputsDocument(completed map[string]NodeOutput) (map[string]any, error) {
	raw, err := json.Marshal(completed)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
