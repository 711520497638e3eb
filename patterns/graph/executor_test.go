package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/aigo/core/agent"
	"github.com/leofalp/aigo/providers/ai"
)

// staticProvider answers every generation with a fixed text, optionally
// after a delay, so branch completion order can be forced in tests.
type staticProvider struct {
	text  string
	delay time.Duration
}

var _ ai.Provider = (*staticProvider)(nil)

func (p *staticProvider) Name() string  { return "static" }
func (p *staticProvider) Model() string { return "static-model" }

func (p *staticProvider) Generate(ctx context.Context, _ []ai.Message, _ []ai.ToolDescription, _ *ai.GenerateOptions) (*ai.GenerateResult, error) {
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	return &ai.GenerateResult{
		Message:      ai.Assistant(p.text),
		FinishReason: ai.FinishStop,
	}, nil
}

func staticAgent(t *testing.T, name, text string, delay time.Duration) *agent.Agent {
	t.Helper()
	a, err := agent.New(name, &staticProvider{text: text, delay: delay})
	if err != nil {
		t.Fatalf("agent.New failed: %v", err)
	}
	return a
}

// orderRecorder tracks node execution order across goroutines.
type orderRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *orderRecorder) record(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, id)
}

func recordingNode(recorder *orderRecorder, id string) FunctionFunc {
	return func(_ context.Context, completed map[string]NodeOutput) (NodeOutput, error) {
		recorder.record(id)
		return NodeOutput{Text: "output of " + id}, nil
	}
}

func TestRunLinearChain(t *testing.T) {
	recorder := &orderRecorder{}

	g, err := NewBuilder().
		FunctionNode("a", recordingNode(recorder, "a")).
		FunctionNode("b", recordingNode(recorder, "b")).
		FunctionNode("c", recordingNode(recorder, "c")).
		Edge("a", "b").
		Edge("b", "c").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := strings.Join(recorder.order, ","); got != "a,b,c" {
		t.Errorf("execution order = %s", got)
	}
	if len(result.Outputs) != 3 {
		t.Errorf("outputs = %+v", result.Outputs)
	}
	if result.Final == nil || result.Final.NodeID != "c" {
		t.Errorf("final = %+v", result.Final)
	}
	if result.Final.Text != "output of c" {
		t.Errorf("final text = %q", result.Final.Text)
	}
}

func TestRunDiamondSeesBothDependencies(t *testing.T) {
	var joined map[string]NodeOutput

	g, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		FunctionNode("b", passthrough("b")).
		FunctionNode("c", passthrough("c")).
		FunctionNode("d", func(_ context.Context, completed map[string]NodeOutput) (NodeOutput, error) {
			joined = completed
			return NodeOutput{Text: "joined"}, nil
		}).
		Edge("a", "b").
		Edge("a", "c").
		Edge("b", "d").
		Edge("c", "d").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, id := range []string{"a", "b", "c"} {
		if _, done := joined[id]; !done {
			t.Errorf("d did not see %q in completed outputs", id)
		}
	}
	if result.Final.NodeID != "d" {
		t.Errorf("final = %+v", result.Final)
	}
}

func TestRunPureCycleDeadlocks(t *testing.T) {
	g, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		FunctionNode("b", passthrough("b")).
		Edge("a", "b").
		Edge("b", "a").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "start")
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	if result != nil {
		t.Errorf("deadlock must not return partial results, got %+v", result)
	}
}

func TestRunReachableCycleDeadlocks(t *testing.T) {
	executed := &orderRecorder{}

	g, err := NewBuilder().
		FunctionNode("entry", recordingNode(executed, "entry")).
		FunctionNode("a", recordingNode(executed, "a")).
		FunctionNode("b", recordingNode(executed, "b")).
		Edge("entry", "a").
		Edge("a", "b").
		Edge("b", "a").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "start")
	if !errors.Is(err, ErrCircularDependency) {
		t.Fatalf("expected ErrCircularDependency, got %v", err)
	}
	if result != nil {
		t.Errorf("deadlock must not return partial results, got %+v", result)
	}
	if got := strings.Join(executed.order, ","); got != "entry" {
		t.Errorf("executed = %s, cycle members must never run", got)
	}
}

func TestRunNodeErrorAbortsWithoutResults(t *testing.T) {
	nodeErr := errors.New("node exploded")

	g, err := NewBuilder().
		FunctionNode("a", passthrough("a")).
		FunctionNode("b", func(_ context.Context, _ map[string]NodeOutput) (NodeOutput, error) {
			return NodeOutput{}, nodeErr
		}).
		Edge("a", "b").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "start")
	if !errors.Is(err, nodeErr) {
		t.Fatalf("expected node error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"b"`) {
		t.Errorf("error should name the failing node: %v", err)
	}
	if result != nil {
		t.Errorf("failed run must not return partial results, got %+v", result)
	}
}

func TestRunAgentNodeReceivesPrompt(t *testing.T) {
	g, err := NewBuilder().
		Node("solo", staticAgent(t, "solo", "agent says hi", 0), nil).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "hello graph")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Final == nil || result.Final.Text != "agent says hi" {
		t.Errorf("final = %+v", result.Final)
	}
}

func TestForkConcatMergesInDeclarationOrder(t *testing.T) {
	// The first branch is the slowest; completion order is the reverse of
	// declaration order.
	branches := []Branch{
		{ID: "slow", Agent: staticAgent(t, "slow", "first", 60*time.Millisecond)},
		{ID: "mid", Agent: staticAgent(t, "mid", "second", 30*time.Millisecond)},
		{ID: "fast", Agent: staticAgent(t, "fast", "third", 0)},
	}

	g, err := NewBuilder().Fork("panel", branches, Concat()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "debate")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "first\n\nsecond\n\nthird"
	if result.Final.Text != want {
		t.Errorf("merged text = %q, want %q", result.Final.Text, want)
	}
}

func TestForkFirstKeepsEarliestDeclaredBranch(t *testing.T) {
	branches := []Branch{
		{ID: "slow", Agent: staticAgent(t, "slow", "declared first", 40*time.Millisecond)},
		{ID: "fast", Agent: staticAgent(t, "fast", "finished first", 0)},
	}

	g, err := NewBuilder().Fork("race", branches, First()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Final.Text != "declared first" {
		t.Errorf("first consensus = %q, want the declared-first branch", result.Final.Text)
	}
}

func TestForkCustomMerge(t *testing.T) {
	branches := []Branch{
		{ID: "a", Agent: staticAgent(t, "a", "short", 0)},
		{ID: "b", Agent: staticAgent(t, "b", "the longest answer", 0)},
	}

	longest := func(results []BranchResult) (string, any) {
		best := results[0]
		for _, result := range results[1:] {
			if len(result.Text) > len(best.Text) {
				best = result
			}
		}
		return best.Text, best.BranchID
	}

	g, err := NewBuilder(WithMerge("longest", longest)).
		Fork("pick", branches, Custom("longest")).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Final.Text != "the longest answer" {
		t.Errorf("custom merge = %q", result.Final.Text)
	}
	if result.Final.Data != "b" {
		t.Errorf("custom merge data = %v", result.Final.Data)
	}
}

func TestForkUnresolvedCustomFallsBackToConcat(t *testing.T) {
	branches := []Branch{
		{ID: "a", Agent: staticAgent(t, "a", "one", 0)},
		{ID: "b", Agent: staticAgent(t, "b", "two", 0)},
	}

	g, err := NewBuilder().Fork("pick", branches, Custom("never-registered")).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Final.Text != "one\n\ntwo" {
		t.Errorf("fallback merge = %q", result.Final.Text)
	}
}

func TestForkBranchErrorAbortsRun(t *testing.T) {
	failing := &staticProvider{text: "never"}
	failingAgent, err := agent.New("boom", failingProvider{failing})
	if err != nil {
		t.Fatalf("agent.New failed: %v", err)
	}

	branches := []Branch{
		{ID: "ok", Agent: staticAgent(t, "ok", "fine", 0)},
		{ID: "boom", Agent: failingAgent},
	}

	g, err := NewBuilder().Fork("panel", branches, Concat()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := g.Run(context.Background(), "go")
	if err == nil {
		t.Fatal("expected branch error to abort the run")
	}
	if !strings.Contains(err.Error(), `"boom"`) {
		t.Errorf("error should name the branch: %v", err)
	}
	if result != nil {
		t.Errorf("failed run returned results: %+v", result)
	}
}

// failingProvider makes every generation fail.
type failingProvider struct{ inner ai.Provider }

func (p failingProvider) Name() string  { return p.inner.Name() }
func (p failingProvider) Model() string { return p.inner.Model() }

func (p failingProvider) Generate(context.Context, []ai.Message, []ai.ToolDescription, *ai.GenerateOptions) (*ai.GenerateResult, error) {
	return nil, fmt.Errorf("generation failed")
}

func TestTextInputSortedDigest(t *testing.T) {
	completed := map[string]NodeOutput{
		"b": {NodeID: "b", Text: "second"},
		"a": {NodeID: "a", Text: "first"},
	}

	messages := TextInput()(completed)
	if len(messages) != 1 {
		t.Fatalf("messages = %+v", messages)
	}
	want := "[a]: first\n[b]: second"
	if got := messages[0].Text(); got != want {
		t.Errorf("digest = %q, want %q", got, want)
	}
}

func TestFromNode(t *testing.T) {
	completed := map[string]NodeOutput{
		"research": {NodeID: "research", Text: "findings"},
	}

	if got := FromNode("research")(completed)[0].Text(); got != "findings" {
		t.Errorf("FromNode = %q", got)
	}
	if got := FromNode("missing")(completed)[0].Text(); got != "" {
		t.Errorf("FromNode missing = %q, want empty", got)
	}
}

func TestQueryInput(t *testing.T) {
	completed := map[string]NodeOutput{
		"research": {NodeID: "research", Text: "findings", Data: map[string]any{"score": 0.9}},
		"draft":    {NodeID: "draft", Text: "prose"},
	}

	t.Run("string extraction", func(t *testing.T) {
		mapper, err := QueryInput(`.research.text`)
		if err != nil {
			t.Fatalf("QueryInput failed: %v", err)
		}
		if got := mapper(completed)[0].Text(); got != "findings" {
			t.Errorf("extracted = %q", got)
		}
	})

	t.Run("non-string encoded as json", func(t *testing.T) {
		mapper, err := QueryInput(`.research.data`)
		if err != nil {
			t.Fatalf("QueryInput failed: %v", err)
		}
		got := mapper(completed)[0].Text()
		if !strings.Contains(got, `"score"`) {
			t.Errorf("extracted = %q", got)
		}
	})

	t.Run("invalid query fails at compile", func(t *testing.T) {
		if _, err := QueryInput(`..[[`); err == nil {
			t.Fatal("expected parse error")
		}
	})

	t.Run("missing path degrades to digest", func(t *testing.T) {
		mapper, err := QueryInput(`.nothing.here`)
		if err != nil {
			t.Fatalf("QueryInput failed: %v", err)
		}
		got := mapper(completed)[0].Text()
		if !strings.Contains(got, "[draft]: prose") {
			t.Errorf("fallback digest = %q", got)
		}
	})
}
