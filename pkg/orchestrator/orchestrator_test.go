package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/zen-systems/swarmgate/pkg/agent"
	"github.com/zen-systems/swarmgate/pkg/config"
)

// stubInvoker records invocations and serves canned results per agent id.
type stubInvoker struct {
	mu      sync.Mutex
	calls   []string
	results map[string]*agent.Result
	errs    map[string]error
}

func newStubInvoker() *stubInvoker {
	return &stubInvoker{
		results: make(map[string]*agent.Result),
		errs:    make(map[string]error),
	}
}

func (s *stubInvoker) Invoke(ctx context.Context, a *agent.Agent, task *agent.Task) (*agent.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, a.ID)
	s.mu.Unlock()

	if err, ok := s.errs[a.ID]; ok {
		return nil, err
	}
	if r, ok := s.results[a.ID]; ok {
		res := *r
		res.AgentID = a.ID
		return &res, nil
	}
	return &agent.Result{AgentID: a.ID, Payload: "answer from " + a.ID, Confidence: 0.9}, nil
}

func (s *stubInvoker) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func testCatalog(t *testing.T) *agent.Catalog {
	t.Helper()
	catalog, err := agent.FromConfig(&config.AgentsConfig{
		Agents: []config.AgentDef{
			{ID: "research", Capabilities: []string{"research"}, CostUSD: 0.05, LatencyMs: 1000, MaxDepth: 3},
			{ID: "analysis", Capabilities: []string{"analysis"}, CostUSD: 0.08, LatencyMs: 2000, MaxDepth: 3, DependsOn: []string{"research"}},
			{ID: "synthesis", Capabilities: []string{"synthesis"}, CostUSD: 0.06, LatencyMs: 1500, MaxDepth: 2, DependsOn: []string{"research", "analysis"}},
		},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return catalog
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func TestPlan_DependencyOrderAndLevels(t *testing.T) {
	orch := New(testCatalog(t), newStubInvoker())
	task := agent.NewTask("q", nil)
	task.MaxDepth = 3

	plan, err := orch.Plan(task, Requirements{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	ids := make([]string, len(plan.Agents))
	for i, a := range plan.Agents {
		ids[i] = a.ID
	}
	if indexOf(ids, "research") > indexOf(ids, "analysis") {
		t.Errorf("research must precede analysis in %v", ids)
	}
	if indexOf(ids, "analysis") > indexOf(ids, "synthesis") {
		t.Errorf("analysis must precede synthesis in %v", ids)
	}

	if len(plan.Levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(plan.Levels))
	}
	wantLevels := [][]string{{"research"}, {"analysis"}, {"synthesis"}}
	for i, level := range plan.Levels {
		if len(level) != len(wantLevels[i]) || level[0].ID != wantLevels[i][0] {
			t.Errorf("level %d = %v, want %v", i, level, wantLevels[i])
		}
	}

	if plan.EstCostUSD != 0.05+0.08+0.06 {
		t.Errorf("estimated cost = %v", plan.EstCostUSD)
	}
	if plan.Strategy != StrategyHybrid || plan.OnError != OnErrorSkip {
		t.Errorf("defaults not applied: %s / %s", plan.Strategy, plan.OnError)
	}
}

func TestPlan_CapabilityAndBudgetFilters(t *testing.T) {
	orch := New(testCatalog(t), newStubInvoker())

	task := agent.NewTask("q", []string{"research"})
	plan, err := orch.Plan(task, Requirements{})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Agents) != 1 || plan.Agents[0].ID != "research" {
		t.Errorf("capability filter selected %v", plan.Agents)
	}

	task = agent.NewTask("q", nil)
	plan, err = orch.Plan(task, Requirements{MaxCostUSD: 0.06})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, a := range plan.Agents {
		if a.CostUSD > 0.06 {
			t.Errorf("agent %s exceeds cost cap", a.ID)
		}
	}

	task = agent.NewTask("q", []string{"no_such_capability"})
	if _, err := orch.Plan(task, Requirements{}); err == nil {
		t.Error("empty selection should return an error")
	}
}

func TestExecuteRecursive_Sequential_MergesContext(t *testing.T) {
	inv := newStubInvoker()
	inv.results["research"] = &agent.Result{Payload: "finding A", Confidence: 0.8}
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", nil)
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	results, err := orch.ExecuteRecursive(context.Background(), task, plan)
	if err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if got := task.Context["research_result"]; got != "finding A" {
		t.Errorf("context research_result = %v", got)
	}
	if got := task.Context["research_confidence"]; got != 0.8 {
		t.Errorf("context research_confidence = %v", got)
	}
}

func TestExecuteRecursive_Hybrid_LevelOrder(t *testing.T) {
	inv := newStubInvoker()
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", nil)
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategyHybrid})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if _, err := orch.ExecuteRecursive(context.Background(), task, plan); err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}

	calls := inv.called()
	if indexOf(calls, "research") > indexOf(calls, "analysis") {
		t.Errorf("research must run before analysis: %v", calls)
	}
	if indexOf(calls, "analysis") > indexOf(calls, "synthesis") {
		t.Errorf("analysis must run before synthesis: %v", calls)
	}
}

func TestExecuteRecursive_OnErrorSkip(t *testing.T) {
	inv := newStubInvoker()
	inv.errs["analysis"] = errors.New("backend down")
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", nil)
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential, OnError: OnErrorSkip})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	results, err := orch.ExecuteRecursive(context.Background(), task, plan)
	if err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("results = %d, want 2 (failed agent dropped)", len(results))
	}
	for _, r := range results {
		if r.AgentID == "analysis" {
			t.Error("failed agent should not appear in results")
		}
	}
}

func TestExecuteRecursive_OnErrorAbort(t *testing.T) {
	inv := newStubInvoker()
	inv.errs["analysis"] = errors.New("backend down")
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", nil)
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential, OnError: OnErrorAbort})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if _, err := orch.ExecuteRecursive(context.Background(), task, plan); err == nil {
		t.Error("abort policy should surface the agent error")
	}
}

func TestExecuteRecursive_DepthCeilingBeforeInvoke(t *testing.T) {
	inv := newStubInvoker()
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", []string{"synthesis"})
	task.MaxDepth = 5
	task.CurrentDepth = 2 // synthesis declares max depth 2

	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential, OnError: OnErrorAbort})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	_, err = orch.ExecuteRecursive(context.Background(), task, plan)
	if !errors.Is(err, ErrDepthExceeded) {
		t.Fatalf("error = %v, want ErrDepthExceeded", err)
	}
	if len(inv.called()) != 0 {
		t.Errorf("agent was invoked despite depth ceiling: %v", inv.called())
	}
}

func TestExecuteRecursive_CycleGuard(t *testing.T) {
	inv := newStubInvoker()
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", []string{"research"})
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// Simulate the same task id already executing at this depth.
	guardKey := fmt.Sprintf("%s_%d", task.ID, task.CurrentDepth)
	orch.mu.Lock()
	orch.inFlight[guardKey] = true
	orch.mu.Unlock()

	results, err := orch.ExecuteRecursive(context.Background(), task, plan)
	if err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}
	if results != nil {
		t.Errorf("guarded branch returned results: %v", results)
	}
	if len(inv.called()) != 0 {
		t.Errorf("guarded branch invoked agents: %v", inv.called())
	}

	// Same id one depth deeper is a distinct guard key and must run.
	orch.mu.Lock()
	delete(orch.inFlight, guardKey)
	orch.mu.Unlock()
	task.CurrentDepth = 1
	if _, err := orch.ExecuteRecursive(context.Background(), task, plan); err != nil {
		t.Fatalf("ExecuteRecursive at new depth: %v", err)
	}
	if len(inv.called()) != 1 {
		t.Errorf("expected one invocation after guard cleared, got %v", inv.called())
	}
}

func TestExecuteRecursive_SpawnedExpansion(t *testing.T) {
	inv := newStubInvoker()
	inv.results["research"] = &agent.Result{
		Payload:    "needs more digging",
		Confidence: 0.7,
		Spawned: []agent.SpawnedTask{
			{Query: "dig deeper", RequiredCapabilities: []string{"analysis"}},
		},
	}
	inv.results["analysis"] = &agent.Result{
		Payload:    "deep finding",
		Confidence: 0.85,
		Spawned: []agent.SpawnedTask{
			{Query: "even deeper", RequiredCapabilities: []string{"analysis"}},
		},
	}
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", []string{"research"})
	task.MaxDepth = 1 // child runs at depth 1, grandchildren are not expanded

	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	results, err := orch.ExecuteRecursive(context.Background(), task, plan)
	if err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}

	calls := inv.called()
	if indexOf(calls, "analysis") < 0 {
		t.Fatalf("spawned sub-task was not dispatched: %v", calls)
	}

	// The child's own spawn requests bubble up into the parent result.
	parent := results[0]
	if len(parent.SubTasks) != 1 || parent.SubTasks[0].Query != "even deeper" {
		t.Errorf("parent SubTasks = %v, want the child's spawn request", parent.SubTasks)
	}
}

func TestExecuteRecursive_RecordsHistory(t *testing.T) {
	inv := newStubInvoker()
	orch := New(testCatalog(t), inv)

	task := agent.NewTask("q", []string{"research"})
	task.MaxDepth = 3
	plan, err := orch.Plan(task, Requirements{Strategy: StrategySequential})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if _, err := orch.ExecuteRecursive(context.Background(), task, plan); err != nil {
		t.Fatalf("ExecuteRecursive: %v", err)
	}

	recorded, ok := orch.History(task.ID, 0)
	if !ok {
		t.Fatal("no history recorded for task")
	}
	if len(recorded) != 1 || recorded[0].AgentID != "research" {
		t.Errorf("history = %v", recorded)
	}
}

func TestExecuteRecursive_UnknownStrategy(t *testing.T) {
	orch := New(testCatalog(t), newStubInvoker())
	task := agent.NewTask("q", nil)
	plan := &Plan{Strategy: "zigzag"}
	if _, err := orch.ExecuteRecursive(context.Background(), task, plan); err == nil {
		t.Error("unknown strategy should error")
	}
}
