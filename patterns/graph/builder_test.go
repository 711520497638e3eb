package graph

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func passthrough(id string) FunctionFunc {
	return func(_ context.Context, _ map[string]NodeOutput) (NodeOutput, error) {
		return NodeOutput{Text: id}, nil
	}
}

func TestBuildEntryAndTerminalNodes(t *testing.T) {
	g, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		FunctionNode("b", passthrough("b")).
		FunctionNode("c", passthrough("c")).
		Edge("a", "b").
		Edge("b", "c").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if got := g.EntryPoints(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("entry points = %v", got)
	}
	if got := g.TerminalNodes(); !slices.Equal(got, []string{"c"}) {
		t.Errorf("terminal nodes = %v", got)
	}
}

func TestBuildDeclarationOrderPreserved(t *testing.T) {
	g, err := NewBuilder().
		FunctionNode("beta", passthrough("beta")).
		FunctionNode("alpha", passthrough("alpha")).
		FunctionNode("gamma", passthrough("gamma")).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// No edges: every node is both entry and terminal, in declaration order.
	want := []string{"beta", "alpha", "gamma"}
	if got := g.EntryPoints(); !slices.Equal(got, want) {
		t.Errorf("entry points = %v, want %v", got, want)
	}
	if got := g.TerminalNodes(); !slices.Equal(got, want) {
		t.Errorf("terminal nodes = %v, want %v", got, want)
	}
}

func TestBuildUnknownEdgeEndpoint(t *testing.T) {
	_, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		Edge("a", "ghost").
		Build()

	if !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if !strings.Contains(err.Error(), `"ghost"`) {
		t.Errorf("error should name the offending id: %v", err)
	}
}

func TestBuildCycleIsAccepted(t *testing.T) {
	// Cycles are a run-time deadlock, not a build error.
	if _, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		FunctionNode("b", passthrough("b")).
		Edge("a", "b").
		Edge("b", "a").
		Build(); err != nil {
		t.Fatalf("cyclic declaration must build: %v", err)
	}
}

func TestBuildValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*Graph, error)
	}{
		{
			name: "empty graph",
			build: func() (*Graph, error) {
				return NewBuilder().Build()
			},
		},
		{
			name: "duplicate node id",
			build: func() (*Graph, error) {
				return NewBuilder().
					FunctionNode("a", passthrough("a")).
					FunctionNode("a", passthrough("a")).
					Build()
			},
		},
		{
			name: "nil function",
			build: func() (*Graph, error) {
				return NewBuilder().FunctionNode("a", nil).Build()
			},
		},
		{
			name: "nil agent",
			build: func() (*Graph, error) {
				return NewBuilder().Node("a", nil, nil).Build()
			},
		},
		{
			name: "fork without branches",
			build: func() (*Graph, error) {
				return NewBuilder().Fork("f", nil, Concat()).Build()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(); err == nil {
				t.Fatal("expected build error")
			}
		})
	}
}
