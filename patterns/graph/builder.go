package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leofalp/aigo/core/agent"
)

// Builder assembles a graph declaratively. Declaration order is significant:
// entry points, terminal nodes, and fork branch merging all follow it. Errors
// accumulate and are reported together by Build.
type Builder struct {
	nodes     map[string]*node
	nodeOrder []string
	edges     [][2]string // from, to
	merges    map[string]MergeFunc
	logger    *slog.Logger
	errs      []error
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLogger sets the structured logger used by the built graph.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMerge registers a named merge function that [Custom] consensus
// resolves against.
func WithMerge(name string, fn MergeFunc) BuilderOption {
	return func(b *Builder) { b.merges[name] = fn }
}

// NewBuilder creates an empty graph builder.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{
		nodes:  make(map[string]*node),
		merges: make(map[string]MergeFunc),
		logger: slog.Default(),
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Node declares an agent node. inputFn derives the node's input from
// previously committed outputs; nil uses the default "[id]: text" digest
// (see [TextInput]).
func (b *Builder) Node(id string, ag *agent.Agent, inputFn InputMapper) *Builder {
	if ag == nil {
		b.errs = append(b.errs, fmt.Errorf("graph: node %q: agent is nil", id))
		return b
	}
	return b.add(&node{id: id, kind: nodeAgent, agent: ag, inputFn: inputFn})
}

// FunctionNode declares a node computed by a plain function.
func (b *Builder) FunctionNode(id string, fn FunctionFunc) *Builder {
	if fn == nil {
		b.errs = append(b.errs, fmt.Errorf("graph: node %q: function is nil", id))
		return b
	}
	return b.add(&node{id: id, kind: nodeFunction, fn: fn})
}

// Fork declares a node whose branches run concurrently over identical input
// and merge via the consensus strategy.
func (b *Builder) Fork(id string, branches []Branch, consensus Consensus) *Builder {
	if len(branches) == 0 {
		b.errs = append(b.errs, fmt.Errorf("graph: fork %q: no branches", id))
		return b
	}
	for _, branch := range branches {
		if branch.Agent == nil {
			b.errs = append(b.errs, fmt.Errorf("graph: fork %q: branch %q: agent is nil", id, branch.ID))
			return b
		}
	}
	return b.add(&node{id: id, kind: nodeFork, branches: branches, consensus: consensus})
}

func (b *Builder) add(n *node) *Builder {
	if n.id == "" {
		b.errs = append(b.errs, errors.New("graph: node id is empty"))
		return b
	}
	if _, exists := b.nodes[n.id]; exists {
		b.errs = append(b.errs, fmt.Errorf("graph: duplicate node id %q", n.id))
		return b
	}
	b.nodes[n.id] = n
	b.nodeOrder = append(b.nodeOrder, n.id)
	return b
}

// Edge declares that node `to` depends on node `from`.
func (b *Builder) Edge(from, to string) *Builder {
	b.edges = append(b.edges, [2]string{from, to})
	return b
}

// Build validates the declaration and assembles an immutable Graph. Edge
// endpoints must name declared nodes; entry points are nodes with no
// dependencies and terminal nodes are nodes nothing depends on, both in
// declaration order. Build performs no cycle detection: a cyclic graph
// builds fine and deadlocks at run time.
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	if len(b.nodes) == 0 {
		errs = append(errs, ErrEmptyGraph)
	}

	deps := make(map[string][]string, len(b.nodes))
	dependents := make(map[string][]string, len(b.nodes))
	for _, edge := range b.edges {
		from, to := edge[0], edge[1]
		if _, exists := b.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source %q", ErrUnknownNode, from))
			continue
		}
		if _, exists := b.nodes[to]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge target %q", ErrUnknownNode, to))
			continue
		}
		deps[to] = append(deps[to], from)
		dependents[from] = append(dependents[from], to)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	var entry, terminal []string
	for _, id := range b.nodeOrder {
		if len(deps[id]) == 0 {
			entry = append(entry, id)
		}
		if len(dependents[id]) == 0 {
			terminal = append(terminal, id)
		}
	}

	return &Graph{
		nodes:      b.nodes,
		nodeOrder:  b.nodeOrder,
		deps:       deps,
		dependents: dependents,
		entry:      entry,
		terminal:   terminal,
		merges:     b.merges,
		logger:     b.logger,
	}, nil
}
