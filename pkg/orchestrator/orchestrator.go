// Package orchestrator dispatches tasks over the static agent catalog:
// it builds dependency-ordered execution plans, runs them under a parallel,
// sequential, or hybrid strategy, and expands agent-spawned sub-tasks
// recursively under depth and cycle guards.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zen-systems/swarmgate/pkg/agent"
)

// ErrDepthExceeded is returned when an agent is invoked at or beyond its
// catalog-declared depth ceiling. The check runs before any invocation.
var ErrDepthExceeded = errors.New("agent depth ceiling exceeded")

// Orchestrator runs execution plans over a fixed agent catalog.
type Orchestrator struct {
	catalog     *agent.Catalog
	invoker     Invoker
	logger      *zap.Logger
	maxParallel int

	mu       sync.Mutex
	inFlight map[string]bool // cycle guard keys: taskID_depth
	history  *history
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMaxParallel bounds concurrent agent invocations.
func WithMaxParallel(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithHistoryCap bounds execution-history retention. 0 keeps everything.
func WithHistoryCap(n int) Option {
	return func(o *Orchestrator) {
		o.history = newHistory(n)
	}
}

// New creates an orchestrator over a validated catalog.
func New(catalog *agent.Catalog, invoker Invoker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:     catalog,
		invoker:     invoker,
		logger:      zap.NewNop(),
		maxParallel: 10,
		inFlight:    make(map[string]bool),
		history:     newHistory(4096),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecuteRecursive dispatches the plan's agents per its strategy, expanding
// agent-spawned sub-tasks at increasing depth. A task id already executing at
// the same depth returns an empty result set instead of recursing.
func (o *Orchestrator) ExecuteRecursive(ctx context.Context, task *agent.Task, plan *Plan) ([]*agent.Result, error) {
	guardKey := fmt.Sprintf("%s_%d", task.ID, task.CurrentDepth)

	o.mu.Lock()
	if o.inFlight[guardKey] {
		o.mu.Unlock()
		o.logger.Warn("task already executing at this depth, aborting branch",
			zap.String("task", task.ID), zap.Int("depth", task.CurrentDepth))
		return nil, nil
	}
	o.inFlight[guardKey] = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.inFlight, guardKey)
		o.mu.Unlock()
	}()

	var results []*agent.Result
	var err error
	switch plan.Strategy {
	case StrategyParallel:
		results, err = o.executeParallel(ctx, task, plan, plan.Agents)
	case StrategySequential:
		results, err = o.executeSequential(ctx, task, plan)
	case StrategyHybrid:
		results, err = o.executeHybrid(ctx, task, plan)
	default:
		return nil, fmt.Errorf("unknown strategy %q", plan.Strategy)
	}
	if err != nil {
		return nil, err
	}

	o.history.record(guardKey, results)
	return results, nil
}

// executeParallel fires all agents concurrently. Under OnErrorSkip, failed
// branches are dropped and only fulfilled results are collected.
func (o *Orchestrator) executeParallel(ctx context.Context, task *agent.Task, plan *Plan, agents []*agent.Agent) ([]*agent.Result, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxParallel)

	var mu sync.Mutex
	var results []*agent.Result

	for _, a := range agents {
		g.Go(func() error {
			r, err := o.invokeAndExpand(gctx, a, task, plan)
			if err != nil {
				if plan.OnError == OnErrorAbort {
					return err
				}
				o.logger.Warn("agent failed, skipping branch",
					zap.String("agent", a.ID), zap.String("task", task.ID), zap.Error(err))
				return nil
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// executeSequential runs agents one at a time in plan order, merging each
// result into the shared task context so later agents can read it.
func (o *Orchestrator) executeSequential(ctx context.Context, task *agent.Task, plan *Plan) ([]*agent.Result, error) {
	var results []*agent.Result
	for _, a := range plan.Agents {
		r, err := o.invokeAndExpand(ctx, a, task, plan)
		if err != nil {
			if plan.OnError == OnErrorAbort {
				return nil, err
			}
			o.logger.Warn("agent failed, continuing sequence",
				zap.String("agent", a.ID), zap.String("task", task.ID), zap.Error(err))
			continue
		}
		mergeResult(task, r)
		results = append(results, r)
	}
	return results, nil
}

// executeHybrid runs dependency levels in order, each level fully in
// parallel, merging level results into the shared context between levels.
func (o *Orchestrator) executeHybrid(ctx context.Context, task *agent.Task, plan *Plan) ([]*agent.Result, error) {
	var results []*agent.Result
	for i, level := range plan.Levels {
		levelResults, err := o.executeParallel(ctx, task, plan, level)
		if err != nil {
			return nil, err
		}
		for _, r := range levelResults {
			mergeResult(task, r)
		}
		results = append(results, levelResults...)
		o.logger.Debug("dependency level complete",
			zap.Int("level", i), zap.Int("results", len(levelResults)))
	}
	return results, nil
}

// invokeAndExpand runs one agent and, if its result spawned sub-tasks,
// executes them one depth down. Grandchild task requests bubble up into the
// parent result's SubTasks; the child results themselves are not merged into
// the parent result.
func (o *Orchestrator) invokeAndExpand(ctx context.Context, a *agent.Agent, task *agent.Task, plan *Plan) (*agent.Result, error) {
	if task.CurrentDepth >= a.MaxDepth {
		return nil, fmt.Errorf("%w: agent %q at depth %d (max %d)",
			ErrDepthExceeded, a.ID, task.CurrentDepth, a.MaxDepth)
	}

	result, err := o.invoker.Invoke(ctx, a, task)
	if err != nil {
		return nil, err
	}

	if len(result.Spawned) == 0 || task.CurrentDepth >= plan.MaxDepth {
		return result, nil
	}

	for _, spawned := range result.Spawned {
		child := task.Child(spawned.Query, spawned.RequiredCapabilities, spawned.Context)
		childPlan, err := o.Plan(child, Requirements{
			Strategy: plan.Strategy,
			OnError:  plan.OnError,
			MaxDepth: plan.MaxDepth,
		})
		if err != nil {
			o.logger.Warn("no plan for spawned task",
				zap.String("parent", task.ID), zap.String("query", spawned.Query), zap.Error(err))
			continue
		}
		childResults, err := o.ExecuteRecursive(ctx, child, childPlan)
		if err != nil {
			if plan.OnError == OnErrorAbort {
				return nil, err
			}
			o.logger.Warn("spawned task failed",
				zap.String("parent", task.ID), zap.String("child", child.ID), zap.Error(err))
			continue
		}
		for _, cr := range childResults {
			result.SubTasks = append(result.SubTasks, cr.Spawned...)
		}
	}
	return result, nil
}

// mergeResult exposes an agent's payload to later agents via the shared task
// context.
func mergeResult(task *agent.Task, r *agent.Result) {
	if task.Context == nil {
		task.Context = make(map[string]any)
	}
	task.Context[r.AgentID+"_result"] = r.Payload
	task.Context[r.AgentID+"_confidence"] = r.Confidence
}

// History returns recorded results for a task id at a given depth.
func (o *Orchestrator) History(taskID string, depth int) ([]*agent.Result, bool) {
	return o.history.get(fmt.Sprintf("%s_%d", taskID, depth))
}
