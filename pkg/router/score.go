package router

import "github.com/zen-systems/swarmgate/pkg/variant"

// Normalization ceilings for the latency and cost score terms. Values at or
// beyond the ceiling score zero.
const (
	latencyCeilingMs = 5000.0
	costCeilingUSD   = 0.10
	tagBonus         = 0.15
)

// utilityScore computes the weighted utility of a variant under the given
// weights, before the context bonus.
func utilityScore(v *variant.Variant, w Weights) float64 {
	accuracy := v.Performance.Accuracy
	latency := clampUnit(1 - v.Performance.LatencyMs/latencyCeilingMs)
	cost := clampUnit(1 - v.Performance.CostPerCall/costCeilingUSD)
	risk := 1 - v.Performance.Risk

	return w.Accuracy*accuracy + w.Latency*latency + w.Cost*cost + w.Risk*risk
}

// contextBonus sums fixed increments for each stored context tag that matches
// the signal snapshot.
func contextBonus(v *variant.Variant, s Signals) float64 {
	bonus := 0.0
	if s.UserTier != "" && v.HasTag(string(s.UserTier)) {
		bonus += tagBonus
	}
	if s.highLoad() && v.HasTag("high_load") {
		bonus += tagBonus
	}
	if s.TaskComplexity != "" && v.HasTag(string(s.TaskComplexity)+"_complexity") {
		bonus += tagBonus
	}
	return bonus
}

func clampUnit(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
