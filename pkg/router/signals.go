package router

// UserTier identifies the calling user's service tier.
type UserTier string

const (
	TierFree       UserTier = "free"
	TierPro        UserTier = "pro"
	TierEnterprise UserTier = "enterprise"
)

// Complexity grades the task being routed.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Signals is an ephemeral snapshot of caller context used to pick a variant.
// It is produced fresh per routing call and never persisted outside the
// decision record that captures it.
type Signals struct {
	CurrentLoad          float64    `json:"current_load"`       // 0-1
	BudgetRemainingUSD   float64    `json:"budget_remaining"`   // dollars left for this caller
	LatencyRequirementMs float64    `json:"latency_requirement"`
	RiskTolerance        float64    `json:"risk_tolerance"` // 0-1, lower = less tolerant
	UserTier             UserTier   `json:"user_tier"`
	TaskComplexity       Complexity `json:"task_complexity"`
	HourOfDay            int        `json:"hour_of_day"`
}

// Signal condition thresholds used by the weight profile table and the
// context bonus.
const (
	highLoadThreshold = 0.8
	tightLatencyMs    = 1000
	lowBudgetUSD      = 0.05
	lowRiskTolerance  = 0.3
)

func (s Signals) highLoad() bool { return s.CurrentLoad >= highLoadThreshold }
func (s Signals) tightLatency() bool {
	return s.LatencyRequirementMs > 0 && s.LatencyRequirementMs <= tightLatencyMs
}
func (s Signals) lowBudget() bool  { return s.BudgetRemainingUSD > 0 && s.BudgetRemainingUSD < lowBudgetUSD }
func (s Signals) riskAverse() bool { return s.RiskTolerance <= lowRiskTolerance }
