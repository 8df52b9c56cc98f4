package router

import "time"

// RankedVariant is one entry of a decision's ranked score list.
type RankedVariant struct {
	VariantID string  `json:"variant_id"`
	BaseScore float64 `json:"base_score"`
	Bonus     float64 `json:"bonus"`
	Score     float64 `json:"score"`
}

// Decision is an immutable audit record of one routing call. Records are
// appended to the decision store and never mutated or deleted.
type Decision struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Module    string          `json:"module"`
	VariantID string          `json:"variant_id"`
	Signals   Signals         `json:"signals"`
	Weights   Weights         `json:"weights"`
	Ranking   []RankedVariant `json:"ranking"`
	Reasoning string          `json:"reasoning"`
}

// DecisionStore receives and serves routing decision records. Implementations
// live in pkg/store; the router only depends on this interface so tests and
// deployments can swap the backing store.
type DecisionStore interface {
	// Append records a decision.
	Append(d *Decision) error

	// List returns decisions in insertion order. module filters when non-empty;
	// limit caps the result when positive.
	List(module string, limit int) ([]*Decision, error)
}
