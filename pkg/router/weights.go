package router

import "fmt"

// Weights is the 4-tuple applied to the normalized score terms.
type Weights struct {
	Accuracy float64 `json:"accuracy"`
	Latency  float64 `json:"latency"`
	Cost     float64 `json:"cost"`
	Risk     float64 `json:"risk"`
}

// Named weight profiles. The profile table is evaluated top to bottom; the
// first matching row wins.
var (
	profileQuality  = Weights{Accuracy: 0.45, Latency: 0.1, Cost: 0.05, Risk: 0.4}
	profileCost     = Weights{Accuracy: 0.15, Latency: 0.2, Cost: 0.5, Risk: 0.15}
	profileLatency  = Weights{Accuracy: 0.2, Latency: 0.5, Cost: 0.2, Risk: 0.1}
	profileSafe     = Weights{Accuracy: 0.4, Latency: 0.1, Cost: 0.1, Risk: 0.4}
	profileBalanced = Weights{Accuracy: 0.25, Latency: 0.25, Cost: 0.25, Risk: 0.25}
)

// profileFor picks the weight profile for a signal snapshot and returns the
// conditions that fired, for the decision's reasoning string.
func profileFor(s Signals) (Weights, []string) {
	switch {
	case s.UserTier == TierEnterprise && s.TaskComplexity == ComplexityHigh:
		return profileQuality, []string{"enterprise tier with high task complexity favors accuracy and low risk"}

	case s.lowBudget() || s.UserTier == TierFree:
		reasons := []string{}
		if s.lowBudget() {
			reasons = append(reasons, fmt.Sprintf("budget remaining $%.3f is below $%.2f", s.BudgetRemainingUSD, lowBudgetUSD))
		}
		if s.UserTier == TierFree {
			reasons = append(reasons, "free tier favors cost")
		}
		return profileCost, reasons

	case s.tightLatency() || s.highLoad():
		reasons := []string{}
		if s.tightLatency() {
			reasons = append(reasons, fmt.Sprintf("latency requirement %.0fms is tight", s.LatencyRequirementMs))
		}
		if s.highLoad() {
			reasons = append(reasons, fmt.Sprintf("current load %.2f is high", s.CurrentLoad))
		}
		return profileLatency, reasons

	case s.riskAverse():
		return profileSafe, []string{fmt.Sprintf("risk tolerance %.2f favors accurate, low-risk variants", s.RiskTolerance)}

	default:
		return profileBalanced, []string{"no dominant signal, balanced weighting"}
	}
}
