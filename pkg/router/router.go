// Package router selects prompt variants at runtime. Given a module name and
// a snapshot of caller signals it ranks the module's variant bank by weighted
// utility and records an audit decision for every call.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/swarmgate/pkg/variant"
)

// Sentinel errors returned by routing and metric updates.
var (
	ErrNoBank         = errors.New("no bank for module")
	ErrUnknownVariant = errors.New("unknown variant")
)

// Router picks variants and maintains per-variant performance telemetry.
// All methods are safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	registry *variant.Registry
	store    DecisionStore
	logger   *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a router over the given registry, recording decisions to store.
func New(registry *variant.Registry, store DecisionStore, opts ...Option) *Router {
	r := &Router{
		registry: registry,
		store:    store,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SelectVariant picks one variant from the module's bank for the next call.
// The result is deterministic for a fixed bank and signal snapshot: no
// randomness, no retries. Every call appends one Decision to the store.
func (r *Router) SelectVariant(ctx context.Context, module string, signals Signals) (*variant.Variant, *Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bank, ok := r.registry.Bank(module)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrNoBank, module)
	}

	weights, reasons := profileFor(signals)

	ranking := make([]RankedVariant, 0, len(bank.Variants))
	for _, v := range bank.Variants {
		base := utilityScore(v, weights)
		bonus := contextBonus(v, signals)
		ranking = append(ranking, RankedVariant{
			VariantID: v.ID,
			BaseScore: base,
			Bonus:     bonus,
			Score:     base * (1 + bonus),
		})
	}
	sort.SliceStable(ranking, func(i, j int) bool {
		if ranking[i].Score != ranking[j].Score {
			return ranking[i].Score > ranking[j].Score
		}
		return ranking[i].VariantID < ranking[j].VariantID
	})

	selected, _ := bank.Find(ranking[0].VariantID)

	decision := &Decision{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Module:    module,
		VariantID: selected.ID,
		Signals:   signals,
		Weights:   weights,
		Ranking:   ranking,
		Reasoning: strings.Join(reasons, "; "),
	}
	if err := r.store.Append(decision); err != nil {
		// The decision is advisory telemetry; a store failure must not block
		// the routing result.
		r.logger.Warn("failed to record routing decision",
			zap.String("module", module), zap.Error(err))
	}

	r.logger.Debug("selected variant",
		zap.String("module", module),
		zap.String("variant", selected.ID),
		zap.Float64("score", ranking[0].Score),
		zap.String("reasoning", decision.Reasoning))

	return selected, decision, nil
}

// UpdateMetrics folds an observed execution outcome into a variant's stored
// telemetry. Unknown modules or variants return an error rather than being
// silently ignored, so callers can distinguish "updated" from "dropped".
func (r *Router) UpdateMetrics(module, variantID string, obs variant.Observation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bank, ok := r.registry.Bank(module)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoBank, module)
	}
	v, ok := bank.Find(variantID)
	if !ok {
		return fmt.Errorf("%w: %q in bank %q", ErrUnknownVariant, variantID, module)
	}

	v.Apply(obs)

	r.logger.Debug("updated variant metrics",
		zap.String("module", module),
		zap.String("variant", variantID),
		zap.Bool("success", obs.Success),
		zap.Float64("latency_ms", obs.LatencyMs))
	return nil
}

// AuditTrail returns recorded decisions in insertion order. An empty module
// returns the full trail; limit caps the result when positive.
func (r *Router) AuditTrail(module string, limit int) ([]*Decision, error) {
	return r.store.List(module, limit)
}

// Modules returns the module names with registered banks.
func (r *Router) Modules() []string {
	return r.registry.Modules()
}

// Bank exposes a module's bank for listing commands.
func (r *Router) Bank(module string) (*variant.Bank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registry.Bank(module)
}
