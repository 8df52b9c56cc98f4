// Package variant holds prompt variant banks: named collections of alternative
// instruction texts for one module, each carrying a rolling performance snapshot.
package variant

import (
	"fmt"
	"time"
)

// Strategy selects how a bank prefers to trade off its variants.
type Strategy string

const (
	StrategyLatency  Strategy = "latency"
	StrategyCost     Strategy = "cost"
	StrategyAccuracy Strategy = "accuracy"
	StrategyBalanced Strategy = "balanced"
	StrategyAdaptive Strategy = "adaptive"
)

// emaAlpha is the smoothing factor for latency/cost moving averages.
const emaAlpha = 0.1

// Performance is the rolling performance snapshot for one variant.
type Performance struct {
	Accuracy    float64 `yaml:"accuracy" json:"accuracy"`
	LatencyMs   float64 `yaml:"latency_ms" json:"latency_ms"`
	CostPerCall float64 `yaml:"cost_per_call" json:"cost_per_call"`
	Risk        float64 `yaml:"risk" json:"risk"`
}

// Metadata tracks how a variant has been exercised.
type Metadata struct {
	CreatedAt   time.Time `json:"created_at"`
	TestCount   int       `json:"test_count"`
	SuccessRate float64   `json:"success_rate"`
	ContextTags []string  `json:"context_tags,omitempty"`
}

// Variant is one alternative instruction text for a module. The instruction
// text is immutable; Performance and Metadata are updated after each observed
// execution.
type Variant struct {
	ID          string      `json:"id"`
	Instruction string      `json:"instruction"`
	Performance Performance `json:"performance"`
	Metadata    Metadata    `json:"metadata"`
}

// Observation is the outcome of one actual execution of a variant.
type Observation struct {
	Success   bool
	LatencyMs float64
	CostUSD   float64
	Err       string
}

// Apply folds an observation into the variant's performance snapshot.
// Latency and cost use an exponential moving average; the success rate uses
// a running-count update over TestCount.
func (v *Variant) Apply(obs Observation) {
	v.Performance.LatencyMs = ema(v.Performance.LatencyMs, obs.LatencyMs)
	if obs.CostUSD > 0 {
		v.Performance.CostPerCall = ema(v.Performance.CostPerCall, obs.CostUSD)
	}

	prior := v.Metadata.SuccessRate * float64(v.Metadata.TestCount)
	if obs.Success {
		prior++
	}
	v.Metadata.TestCount++
	v.Metadata.SuccessRate = prior / float64(v.Metadata.TestCount)
}

func ema(current, observed float64) float64 {
	if current == 0 {
		return observed
	}
	return current*(1-emaAlpha) + observed*emaAlpha
}

// HasTag reports whether the variant carries the given context tag.
func (v *Variant) HasTag(tag string) bool {
	for _, t := range v.Metadata.ContextTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Bank owns the ordered variants for one named module.
type Bank struct {
	Module   string
	Strategy Strategy
	Active   string
	Variants []*Variant
}

// Validate checks bank-level invariants: non-empty, unique variant ids, and
// an active id that exists in the bank.
func (b *Bank) Validate() error {
	if b.Module == "" {
		return fmt.Errorf("bank has no module name")
	}
	if len(b.Variants) == 0 {
		return fmt.Errorf("bank %q has no variants", b.Module)
	}
	seen := make(map[string]bool, len(b.Variants))
	for _, v := range b.Variants {
		if v.ID == "" {
			return fmt.Errorf("bank %q contains a variant with no id", b.Module)
		}
		if seen[v.ID] {
			return fmt.Errorf("bank %q contains duplicate variant id %q", b.Module, v.ID)
		}
		seen[v.ID] = true
	}
	if b.Active != "" && !seen[b.Active] {
		return fmt.Errorf("bank %q active variant %q not found", b.Module, b.Active)
	}
	return nil
}

// Find returns the variant with the given id, if present.
func (b *Bank) Find(id string) (*Variant, bool) {
	for _, v := range b.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}
