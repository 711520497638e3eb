// Package graph orchestrates multiple agents as a directed acyclic graph.
// Nodes are agents, plain functions, or forks (parallel branches merged by a
// consensus strategy); edges declare data dependencies. Execution is a
// worklist over the dependency structure: everything whose dependencies are
// satisfied runs, concurrently, batch by batch, until the graph is done or
// deadlocks.
//
// Cycles are not rejected at build time; they surface during Run as a
// deadlock error, and the caller receives no partial results.
package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leofalp/aigo/core/agent"
	"github.com/leofalp/aigo/providers/ai"
)

var (
	// ErrCircularDependency reports a run that deadlocked because blocked
	// nodes can never have their dependencies satisfied.
	ErrCircularDependency = errors.New("graph: deadlock: circular dependency")

	// ErrNoProgress reports a run whose ready set stopped changing between
	// iterations.
	ErrNoProgress = errors.New("graph: deadlock: no progress")

	// ErrUnknownNode reports an edge endpoint that names no declared node.
	ErrUnknownNode = errors.New("graph: unknown node")

	// ErrEmptyGraph reports a Build with no nodes.
	ErrEmptyGraph = errors.New("graph: no nodes declared")
)

// NodeOutput is the committed result of one node.
type NodeOutput struct {
	NodeID string `json:"node_id"`
	Text   string `json:"text"`
	Data   any    `json:"data,omitempty"`
}

// Result is the outcome of a full run. Final is the output of the last
// terminal node in declaration order.
type Result struct {
	Outputs map[string]NodeOutput `json:"outputs"`
	Final   *NodeOutput           `json:"final,omitempty"`
}

// InputMapper derives an agent node's input messages from the outputs
// committed so far. It is only called once at least one node has completed;
// before that, agent nodes receive the run's initial messages.
type InputMapper func(completed map[string]NodeOutput) []ai.Message

// FunctionFunc is the body of a function node. It receives a copy of the
// committed outputs and produces this node's output directly.
type FunctionFunc func(ctx context.Context, completed map[string]NodeOutput) (NodeOutput, error)

// Branch is one parallel arm of a fork node.
type Branch struct {
	ID    string
	Agent *agent.Agent
}

// BranchResult is one branch's outcome, in branch declaration order.
type BranchResult struct {
	BranchID string `json:"branch_id"`
	Text     string `json:"text"`
	Data     any    `json:"data,omitempty"`
}

// MergeFunc folds fork branch results into the fork's output text and data.
// Registered on the builder and referenced by [Custom].
type MergeFunc func(branches []BranchResult) (text string, data any)

type consensusKind int

const (
	consensusFirst consensusKind = iota
	consensusConcat
	consensusCustom
)

// Consensus selects how a fork merges its branch results.
type Consensus struct {
	kind consensusKind
	name string
}

// First keeps the earliest declared branch's result.
func First() Consensus { return Consensus{kind: consensusFirst} }

// Concat joins branch texts with blank lines, in declaration order.
func Concat() Consensus { return Consensus{kind: consensusConcat} }

// Custom merges with the MergeFunc registered under name via [WithMerge].
// An unresolved name degrades to Concat with a logged warning.
func Custom(name string) Consensus { return Consensus{kind: consensusCustom, name: name} }

type nodeKind int

const (
	nodeAgent nodeKind = iota
	nodeFunction
	nodeFork
)

// node is one declared graph node. The kind tags which variant fields are
// meaningful; dispatch happens in a single switch in the executor.
type node struct {
	id        string
	kind      nodeKind
	agent     *agent.Agent
	inputFn   InputMapper
	fn        FunctionFunc
	branches  []Branch
	consensus Consensus
}

// Graph is an immutable, runnable graph produced by [Builder.Build].
// A Graph is safe for concurrent runs; each Run keeps its own state.
type Graph struct {
	nodes      map[string]*node
	nodeOrder  []string
	deps       map[string][]string // node id -> its dependencies
	dependents map[string][]string // node id -> nodes depending on it
	entry      []string            // declaration order
	terminal   []string            // declaration order
	merges     map[string]MergeFunc
	logger     *slog.Logger
}

// EntryPoints returns the nodes with no dependencies, in declaration order.
func (g *Graph) EntryPoints() []string { return append([]string(nil), g.entry...) }

// TerminalNodes returns the nodes nothing depends on, in declaration order.
func (g *Graph) TerminalNodes() []string { return append([]string(nil), g.terminal...) }
