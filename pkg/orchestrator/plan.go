package orchestrator

import (
	"fmt"

	"github.com/zen-systems/swarmgate/pkg/agent"
)

// Strategy selects how a plan's agents are dispatched.
type Strategy string

const (
	StrategyParallel   Strategy = "parallel"
	StrategySequential Strategy = "sequential"
	StrategyHybrid     Strategy = "hybrid"
)

// ErrorPolicy controls how a per-agent failure affects the rest of the plan.
type ErrorPolicy string

const (
	// OnErrorSkip logs the failure and lets remaining agents proceed.
	OnErrorSkip ErrorPolicy = "skip"
	// OnErrorAbort stops the plan at the first agent failure.
	OnErrorAbort ErrorPolicy = "abort"
)

// Requirements bound plan construction for one orchestration call.
type Requirements struct {
	MaxCostUSD   float64
	MaxLatencyMs float64
	Strategy     Strategy
	OnError      ErrorPolicy
	MaxDepth     int
}

// Plan is a dependency-ordered execution plan over the agent catalog.
type Plan struct {
	Strategy     Strategy
	OnError      ErrorPolicy
	MaxDepth     int
	Agents       []*agent.Agent   // dependency order for sequential dispatch
	Levels       [][]*agent.Agent // dependency levels for hybrid dispatch
	EstCostUSD   float64
	EstLatencyMs float64
}

// Plan filters the catalog to agents matching the task's required
// capabilities within the cost/latency budgets, then orders them so declared
// dependencies run first. The catalog graph was validated at load, so the
// ordering pass cannot loop.
func (o *Orchestrator) Plan(task *agent.Task, req Requirements) (*Plan, error) {
	if task == nil {
		return nil, fmt.Errorf("task is required")
	}
	if req.Strategy == "" {
		req.Strategy = StrategyHybrid
	}
	if req.OnError == "" {
		req.OnError = OnErrorSkip
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = task.MaxDepth
	}

	selected := make(map[string]*agent.Agent)
	for _, a := range o.catalog.All() {
		if !capabilityMatch(a, task.RequiredCapabilities) {
			continue
		}
		if req.MaxCostUSD > 0 && a.CostUSD > req.MaxCostUSD {
			continue
		}
		if req.MaxLatencyMs > 0 && a.LatencyMs > req.MaxLatencyMs {
			continue
		}
		selected[a.ID] = a
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no agents match capabilities %v within budget", task.RequiredCapabilities)
	}

	ordered := orderByDependencies(o.catalog, selected)

	plan := &Plan{
		Strategy: req.Strategy,
		OnError:  req.OnError,
		MaxDepth: req.MaxDepth,
		Agents:   ordered,
		Levels:   dependencyLevels(ordered, selected),
	}
	for _, a := range ordered {
		plan.EstCostUSD += a.CostUSD
		plan.EstLatencyMs += a.LatencyMs
	}
	return plan, nil
}

func capabilityMatch(a *agent.Agent, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, tag := range required {
		if a.HasCapability(tag) {
			return true
		}
	}
	return false
}

// orderByDependencies produces a dependency-first order over the selected
// agents via depth-first visits. Dependencies outside the selected set were
// filtered out by budget or capability and are skipped.
func orderByDependencies(catalog *agent.Catalog, selected map[string]*agent.Agent) []*agent.Agent {
	visited := make(map[string]bool, len(selected))
	var ordered []*agent.Agent

	var visit func(a *agent.Agent)
	visit = func(a *agent.Agent) {
		if visited[a.ID] {
			return
		}
		visited[a.ID] = true
		for _, dep := range a.DependsOn {
			if depAgent, ok := selected[dep]; ok {
				visit(depAgent)
			}
		}
		ordered = append(ordered, a)
	}

	for _, a := range catalog.All() {
		if sel, ok := selected[a.ID]; ok {
			visit(sel)
		}
	}
	return ordered
}

// dependencyLevels groups agents so that each agent lands one level above the
// deepest of its in-plan dependencies. Level groups execute fully in parallel,
// strictly after the previous level completes.
func dependencyLevels(ordered []*agent.Agent, selected map[string]*agent.Agent) [][]*agent.Agent {
	level := make(map[string]int, len(ordered))
	maxLevel := 0
	for _, a := range ordered {
		l := 0
		for _, dep := range a.DependsOn {
			if _, ok := selected[dep]; ok && level[dep]+1 > l {
				l = level[dep] + 1
			}
		}
		level[a.ID] = l
		if l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]*agent.Agent, maxLevel+1)
	for _, a := range ordered {
		levels[level[a.ID]] = append(levels[level[a.ID]], a)
	}
	return levels
}
