package router

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/zen-systems/swarmgate/pkg/config"
	"github.com/zen-systems/swarmgate/pkg/variant"
)

// recordingStore is a minimal in-test DecisionStore.
type recordingStore struct {
	decisions []*Decision
	failnext  bool
}

func (s *recordingStore) Append(d *Decision) error {
	if s.failnext {
		s.failnext = false
		return errors.New("store down")
	}
	s.decisions = append(s.decisions, d)
	return nil
}

func (s *recordingStore) List(module string, limit int) ([]*Decision, error) {
	out := make([]*Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		if module == "" || d.Module == module {
			out = append(out, d)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

var _ DecisionStore = (*recordingStore)(nil)

func testRouter(t *testing.T, store DecisionStore) *Router {
	t.Helper()
	reg, err := variant.FromConfig(&config.BanksConfig{
		Banks: map[string]config.BankDef{
			"research": {
				Variants: []config.VariantDef{
					{
						ID:       "balanced_v2",
						Accuracy: 0.85, LatencyMs: 1200, CostPerCall: 0.02, Risk: 0.3,
						ContextTags: []string{"enterprise", "high_complexity"},
					},
					{
						ID:       "fast_cheap_v3",
						Accuracy: 0.72, LatencyMs: 500, CostPerCall: 0.005, Risk: 0.5,
						ContextTags: []string{"free", "high_load"},
					},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return New(reg, store)
}

func TestSelectVariant_HighLoadPrefersFastVariant(t *testing.T) {
	store := &recordingStore{}
	rt := testRouter(t, store)

	signals := Signals{
		CurrentLoad:        0.9,
		BudgetRemainingUSD: 1.0,
		RiskTolerance:      0.5,
		UserTier:           TierPro,
		TaskComplexity:     ComplexityMedium,
	}

	selected, decision, err := rt.SelectVariant(context.Background(), "research", signals)
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	if selected.ID != "fast_cheap_v3" {
		t.Errorf("selected %s, want fast_cheap_v3", selected.ID)
	}
	if decision.Weights != profileLatency {
		t.Errorf("weights = %+v, want latency profile", decision.Weights)
	}

	// fast_cheap_v3 base: .2*.72 + .5*(1-500/5000) + .2*(1-.005/.1) + .1*(1-.5)
	// = 0.834, then the high_load tag bonus lifts it to 0.834 * 1.15.
	top := decision.Ranking[0]
	if top.VariantID != "fast_cheap_v3" {
		t.Fatalf("top ranked = %s, want fast_cheap_v3", top.VariantID)
	}
	if math.Abs(top.BaseScore-0.834) > 1e-9 {
		t.Errorf("base score = %v, want 0.834", top.BaseScore)
	}
	if math.Abs(top.Bonus-0.15) > 1e-9 {
		t.Errorf("bonus = %v, want 0.15", top.Bonus)
	}
	if math.Abs(top.Score-0.834*1.15) > 1e-9 {
		t.Errorf("score = %v, want %v", top.Score, 0.834*1.15)
	}
}

func TestSelectVariant_Deterministic(t *testing.T) {
	rt := testRouter(t, &recordingStore{})
	signals := Signals{UserTier: TierPro, TaskComplexity: ComplexityMedium, RiskTolerance: 0.5, BudgetRemainingUSD: 1}

	first, _, err := rt.SelectVariant(context.Background(), "research", signals)
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	for i := 0; i < 10; i++ {
		v, _, err := rt.SelectVariant(context.Background(), "research", signals)
		if err != nil {
			t.Fatalf("SelectVariant: %v", err)
		}
		if v.ID != first.ID {
			t.Fatalf("call %d selected %s, first call selected %s", i, v.ID, first.ID)
		}
	}
}

func TestSelectVariant_TieBreaksOnID(t *testing.T) {
	reg, err := variant.FromConfig(&config.BanksConfig{
		Banks: map[string]config.BankDef{
			"analysis": {
				Variants: []config.VariantDef{
					{ID: "zeta", Accuracy: 0.8, LatencyMs: 1000, CostPerCall: 0.01, Risk: 0.3},
					{ID: "alpha", Accuracy: 0.8, LatencyMs: 1000, CostPerCall: 0.01, Risk: 0.3},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	rt := New(reg, &recordingStore{})

	v, _, err := rt.SelectVariant(context.Background(), "analysis", Signals{UserTier: TierPro, RiskTolerance: 0.5, BudgetRemainingUSD: 1})
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	if v.ID != "alpha" {
		t.Errorf("equal scores should break ties on id, selected %s", v.ID)
	}
}

func TestSelectVariant_UnknownModule(t *testing.T) {
	rt := testRouter(t, &recordingStore{})
	_, _, err := rt.SelectVariant(context.Background(), "nope", Signals{})
	if !errors.Is(err, ErrNoBank) {
		t.Errorf("error = %v, want ErrNoBank", err)
	}
}

func TestSelectVariant_StoreFailureDoesNotBlock(t *testing.T) {
	store := &recordingStore{failnext: true}
	rt := testRouter(t, store)

	selected, _, err := rt.SelectVariant(context.Background(), "research", Signals{UserTier: TierPro, RiskTolerance: 0.5, BudgetRemainingUSD: 1})
	if err != nil {
		t.Fatalf("SelectVariant should succeed despite store failure: %v", err)
	}
	if selected == nil {
		t.Fatal("no variant selected")
	}
	if len(store.decisions) != 0 {
		t.Errorf("store recorded %d decisions, want 0", len(store.decisions))
	}
}

func TestSelectVariant_RecordsDecision(t *testing.T) {
	store := &recordingStore{}
	rt := testRouter(t, store)

	_, decision, err := rt.SelectVariant(context.Background(), "research", Signals{UserTier: TierFree})
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}

	trail, err := rt.AuditTrail("research", 0)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(trail) != 1 {
		t.Fatalf("trail length = %d, want 1", len(trail))
	}
	if trail[0].ID != decision.ID {
		t.Errorf("trail decision id = %s, want %s", trail[0].ID, decision.ID)
	}
	if trail[0].Reasoning == "" {
		t.Error("decision has empty reasoning")
	}
	if len(trail[0].Ranking) != 2 {
		t.Errorf("ranking length = %d, want 2", len(trail[0].Ranking))
	}
}

func TestUpdateMetrics(t *testing.T) {
	rt := testRouter(t, &recordingStore{})

	if err := rt.UpdateMetrics("nope", "x", variant.Observation{}); !errors.Is(err, ErrNoBank) {
		t.Errorf("unknown module error = %v, want ErrNoBank", err)
	}
	if err := rt.UpdateMetrics("research", "nope", variant.Observation{}); !errors.Is(err, ErrUnknownVariant) {
		t.Errorf("unknown variant error = %v, want ErrUnknownVariant", err)
	}

	if err := rt.UpdateMetrics("research", "balanced_v2", variant.Observation{Success: true, LatencyMs: 2200, CostUSD: 0.03}); err != nil {
		t.Fatalf("UpdateMetrics: %v", err)
	}
	bank, _ := rt.Bank("research")
	v, _ := bank.Find("balanced_v2")
	if got, want := v.Performance.LatencyMs, 1200*0.9+2200*0.1; math.Abs(got-want) > 1e-9 {
		t.Errorf("latency after observation = %v, want %v", got, want)
	}
	if v.Metadata.TestCount != 1 || v.Metadata.SuccessRate != 1 {
		t.Errorf("metadata = %+v, want one successful test", v.Metadata)
	}
}

func TestProfileFor(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    Weights
	}{
		{
			name:    "enterprise high complexity",
			signals: Signals{UserTier: TierEnterprise, TaskComplexity: ComplexityHigh, RiskTolerance: 0.5, BudgetRemainingUSD: 1},
			want:    profileQuality,
		},
		{
			name:    "low budget",
			signals: Signals{UserTier: TierPro, BudgetRemainingUSD: 0.01, RiskTolerance: 0.5},
			want:    profileCost,
		},
		{
			name:    "free tier",
			signals: Signals{UserTier: TierFree, BudgetRemainingUSD: 5, RiskTolerance: 0.5},
			want:    profileCost,
		},
		{
			name:    "tight latency",
			signals: Signals{UserTier: TierPro, BudgetRemainingUSD: 1, LatencyRequirementMs: 800, RiskTolerance: 0.5},
			want:    profileLatency,
		},
		{
			name:    "high load",
			signals: Signals{UserTier: TierPro, BudgetRemainingUSD: 1, CurrentLoad: 0.85, RiskTolerance: 0.5},
			want:    profileLatency,
		},
		{
			name:    "risk averse",
			signals: Signals{UserTier: TierPro, BudgetRemainingUSD: 1, RiskTolerance: 0.2},
			want:    profileSafe,
		},
		{
			name:    "no dominant signal",
			signals: Signals{UserTier: TierPro, BudgetRemainingUSD: 1, RiskTolerance: 0.5},
			want:    profileBalanced,
		},
		{
			name: "budget beats latency when both fire",
			signals: Signals{
				UserTier: TierPro, BudgetRemainingUSD: 0.02,
				LatencyRequirementMs: 500, RiskTolerance: 0.5,
			},
			want: profileCost,
		},
		{
			name: "quality beats every other condition",
			signals: Signals{
				UserTier: TierEnterprise, TaskComplexity: ComplexityHigh,
				BudgetRemainingUSD: 0.01, CurrentLoad: 0.95, RiskTolerance: 0.1,
			},
			want: profileQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reasons := profileFor(tt.signals)
			if got != tt.want {
				t.Errorf("profileFor() = %+v, want %+v", got, tt.want)
			}
			if len(reasons) == 0 {
				t.Error("profileFor returned no reasons")
			}
		})
	}
}
