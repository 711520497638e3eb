package graph

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/leofalp/aigo/providers/ai"
)

// Run executes the graph over the given prompt using the worklist algorithm:
// starting from the entry points, every ready node whose dependencies have
// all committed runs concurrently as a batch; outputs become visible to
// dependents only after the whole batch commits. Any node error aborts the
// run. On error the caller receives no partial results.
func (g *Graph) Run(ctx context.Context, prompt string) (*Result, error) {
	runID := uuid.NewString()
	initial := []ai.Message{ai.User(prompt)}

	completed := make(map[string]NodeOutput, len(g.nodes))
	ready := slices.Clone(g.entry)

	if len(ready) == 0 {
		// Every node depends on something: nothing can ever start.
		return nil, ErrCircularDependency
	}

	for len(ready) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var batch, blocked []string
		for _, id := range ready {
			if g.depsSatisfied(id, completed) {
				batch = append(batch, id)
			} else {
				blocked = append(blocked, id)
			}
		}

		if len(batch) == 0 {
			return nil, fmt.Errorf("%w: blocked nodes %v", ErrCircularDependency, blocked)
		}

		g.logger.Debug("graph batch",
			"run_id", runID, "batch", batch, "blocked", blocked)

		outputs, err := g.runBatch(ctx, batch, completed, initial)
		if err != nil {
			return nil, err
		}

		// Commit the whole batch at once, then discover newly ready nodes.
		for i, id := range batch {
			completed[id] = outputs[i]
		}

		next := g.nextReady(batch, blocked, completed)
		if slices.Equal(next, ready) {
			return nil, fmt.Errorf("%w: ready set %v", ErrNoProgress, ready)
		}
		ready = next
	}

	if len(completed) != len(g.nodes) {
		// Reachable work is done but part of the graph never became ready.
		var stuck []string
		for _, id := range g.nodeOrder {
			if _, done := completed[id]; !done {
				stuck = append(stuck, id)
			}
		}
		return nil, fmt.Errorf("%w: unreachable nodes %v", ErrCircularDependency, stuck)
	}

	result := &Result{Outputs: completed}
	for _, id := range g.terminal {
		if output, done := completed[id]; done {
			final := output
			result.Final = &final
		}
	}

	g.logger.Debug("graph run finished", "run_id", runID, "nodes", len(completed))
	return result, nil
}

// depsSatisfied reports whether every dependency of id has committed.
func (g *Graph) depsSatisfied(id string, completed map[string]NodeOutput) bool {
	for _, dep := range g.deps[id] {
		if _, done := completed[dep]; !done {
			return false
		}
	}
	return true
}

// nextReady carries the still-blocked nodes forward and appends the not-yet-
// completed dependents of the committed batch, deduplicated, in declaration
// order for determinism.
func (g *Graph) nextReady(batch, blocked []string, completed map[string]NodeOutput) []string {
	next := slices.Clone(blocked)
	seen := make(map[string]bool, len(next))
	for _, id := range next {
		seen[id] = true
	}

	discovered := make(map[string]bool)
	for _, id := range batch {
		for _, dependent := range g.dependents[id] {
			discovered[dependent] = true
		}
	}

	for _, id := range g.nodeOrder {
		if !discovered[id] || seen[id] {
			continue
		}
		if _, done := completed[id]; done {
			continue
		}
		next = append(next, id)
	}
	return next
}

// runBatch executes the batch members concurrently. completed is read-only
// until the batch commits, so the goroutines share it safely.
func (g *Graph) runBatch(ctx context.Context, batch []string, completed map[string]NodeOutput, initial []ai.Message) ([]NodeOutput, error) {
	outputs := make([]NodeOutput, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	for i, id := range batch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outputs[i], errs[i] = g.executeNode(ctx, g.nodes[id], completed, initial)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("graph: node %q: %w", batch[i], err)
		}
	}
	return outputs, nil
}

// executeNode dispatches on the node variant.
func (g *Graph) executeNode(ctx context.Context, n *node, completed map[string]NodeOutput, initial []ai.Message) (NodeOutput, error) {
	switch n.kind {
	case nodeAgent:
		messages := g.nodeInput(n.inputFn, completed, initial)
		output, err := n.agent.Run(ctx, messages)
		if err != nil {
			return NodeOutput{}, err
		}
		return NodeOutput{NodeID: n.id, Text: output.Text, Data: output.Structured}, nil

	case nodeFunction:
		output, err := n.fn(ctx, maps.Clone(completed))
		if err != nil {
			return NodeOutput{}, err
		}
		output.NodeID = n.id
		return output, nil

	case nodeFork:
		return g.executeFork(ctx, n, completed, initial)

	default:
		return NodeOutput{}, fmt.Errorf("%w: %q has unknown kind", ErrUnknownNode, n.id)
	}
}

// nodeInput derives an agent node's input: the run's initial messages while
// nothing has committed, the mapped completed outputs afterwards.
func (g *Graph) nodeInput(inputFn InputMapper, completed map[string]NodeOutput, initial []ai.Message) []ai.Message {
	if len(completed) == 0 {
		return initial
	}
	if inputFn == nil {
		inputFn = TextInput()
	}
	return inputFn(completed)
}

// executeFork runs all branches concurrently over identical input and merges
// the results in branch declaration order, regardless of completion order.
func (g *Graph) executeFork(ctx context.Context, n *node, completed map[string]NodeOutput, initial []ai.Message) (NodeOutput, error) {
	messages := g.nodeInput(nil, completed, initial)

	results := make([]BranchResult, len(n.branches))
	errs := make([]error, len(n.branches))

	var wg sync.WaitGroup
	for i, branch := range n.branches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			output, err := branch.Agent.Run(ctx, messages)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = BranchResult{BranchID: branch.ID, Text: output.Text, Data: output.Structured}
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return NodeOutput{}, fmt.Errorf("branch %q: %w", n.branches[i].ID, err)
		}
	}

	text, data := g.merge(n, results)
	return NodeOutput{NodeID: n.id, Text: text, Data: data}, nil
}

// merge applies the fork's consensus strategy.
func (g *Graph) merge(n *node, results []BranchResult) (string, any) {
	switch n.consensus.kind {
	case consensusFirst:
		return results[0].Text, results[0].Data

	case consensusCustom:
		if fn := g.merges[n.consensus.name]; fn != nil {
			return fn(results)
		}
		g.logger.Warn("unresolved consensus strategy, falling back to concat",
			"fork", n.id, "strategy", n.consensus.name)
		fallthrough

	default:
		texts := make([]string, 0, len(results))
		for _, result := range results {
			texts = append(texts, result.Text)
		}
		return strings.Join(texts, "\n\n"), nil
	}
}
