package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BanksConfig holds the variant bank declarations.
type BanksConfig struct {
	Banks   map[string]BankDef `yaml:"banks"`
	Pricing PricingConfig      `yaml:"pricing,omitempty"`
}

// BankDef defines one module's variant bank.
type BankDef struct {
	Strategy string       `yaml:"strategy,omitempty"`
	Active   string       `yaml:"active,omitempty"`
	Variants []VariantDef `yaml:"variants"`
}

// VariantDef defines one prompt variant.
type VariantDef struct {
	ID          string   `yaml:"id"`
	Instruction string   `yaml:"instruction"`
	Accuracy    float64  `yaml:"accuracy"`
	LatencyMs   float64  `yaml:"latency_ms"`
	CostPerCall float64  `yaml:"cost_per_call"`
	Risk        float64  `yaml:"risk"`
	ContextTags []string `yaml:"context_tags,omitempty"`
}

// PricingConfig maps adapter -> model -> pricing.
type PricingConfig map[string]map[string]ModelPricing

// ModelPricing defines per-1k token pricing.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty"`
}

// EstimateCost computes an estimated USD cost for a call, if pricing exists.
func (p PricingConfig) EstimateCost(adapter, model string, promptTokens, completionTokens int) (float64, bool) {
	models, ok := p[adapter]
	if !ok {
		return 0, false
	}
	entry, ok := models[model]
	if !ok {
		return 0, false
	}
	cost := (float64(promptTokens)/1000.0)*entry.PromptPer1K +
		(float64(completionTokens)/1000.0)*entry.CompletionPer1K
	return cost, true
}

// LoadBanksConfig reads bank declarations from a YAML file.
func LoadBanksConfig(path string) (*BanksConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg BanksConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Banks) == 0 {
		return nil, fmt.Errorf("banks config %s declares no banks", path)
	}
	return &cfg, nil
}

// DefaultBanksConfig returns the built-in bank declarations. Each agent module
// gets a small set of variants spanning the accuracy/latency/cost envelope.
func DefaultBanksConfig() *BanksConfig {
	return &BanksConfig{
		Banks: map[string]BankDef{
			"research": {
				Strategy: "adaptive",
				Active:   "balanced_v2",
				Variants: []VariantDef{
					{
						ID:          "balanced_v2",
						Instruction: "Research the topic thoroughly. Cite sources and distinguish established facts from speculation.",
						Accuracy:    0.85, LatencyMs: 1200, CostPerCall: 0.02, Risk: 0.3,
						ContextTags: []string{"enterprise", "high_complexity"},
					},
					{
						ID:          "fast_cheap_v3",
						Instruction: "Give a quick, concise answer. Prefer brevity over exhaustive coverage.",
						Accuracy:    0.72, LatencyMs: 500, CostPerCall: 0.005, Risk: 0.5,
						ContextTags: []string{"free", "high_load"},
					},
					{
						ID:          "thorough_v1",
						Instruction: "Produce an exhaustive, fully cited research brief. Accuracy matters more than speed.",
						Accuracy:    0.93, LatencyMs: 3200, CostPerCall: 0.06, Risk: 0.15,
						ContextTags: []string{"enterprise"},
					},
				},
			},
			"analysis": {
				Strategy: "accuracy",
				Active:   "structured_v1",
				Variants: []VariantDef{
					{
						ID:          "structured_v1",
						Instruction: "Analyze the input step by step. State assumptions explicitly and quantify uncertainty.",
						Accuracy:    0.88, LatencyMs: 1800, CostPerCall: 0.03, Risk: 0.25,
						ContextTags: []string{"high_complexity"},
					},
					{
						ID:          "terse_v2",
						Instruction: "Analyze the input and report only the three most significant findings.",
						Accuracy:    0.78, LatencyMs: 700, CostPerCall: 0.008, Risk: 0.4,
						ContextTags: []string{"high_load", "free"},
					},
				},
			},
			"synthesis": {
				Strategy: "balanced",
				Active:   "merge_v1",
				Variants: []VariantDef{
					{
						ID:          "merge_v1",
						Instruction: "Merge the provided findings into one coherent answer. Flag disagreements rather than papering over them.",
						Accuracy:    0.84, LatencyMs: 1500, CostPerCall: 0.025, Risk: 0.3,
					},
					{
						ID:          "summary_v2",
						Instruction: "Summarize the provided findings in under 200 words.",
						Accuracy:    0.75, LatencyMs: 600, CostPerCall: 0.007, Risk: 0.45,
						ContextTags: []string{"high_load"},
					},
				},
			},
			"validation": {
				Strategy: "accuracy",
				Active:   "strict_v1",
				Variants: []VariantDef{
					{
						ID:          "strict_v1",
						Instruction: "Check every claim in the input against the supplied context. List unsupported claims.",
						Accuracy:    0.9, LatencyMs: 2000, CostPerCall: 0.035, Risk: 0.2,
						ContextTags: []string{"enterprise", "high_complexity"},
					},
					{
						ID:          "spot_check_v1",
						Instruction: "Spot-check the most load-bearing claims in the input.",
						Accuracy:    0.76, LatencyMs: 800, CostPerCall: 0.01, Risk: 0.45,
						ContextTags: []string{"high_load"},
					},
				},
			},
			"optimization": {
				Strategy: "latency",
				Active:   "tighten_v1",
				Variants: []VariantDef{
					{
						ID:          "tighten_v1",
						Instruction: "Rewrite the answer to be tighter and clearer without losing substance.",
						Accuracy:    0.82, LatencyMs: 900, CostPerCall: 0.012, Risk: 0.35,
					},
					{
						ID:          "polish_v2",
						Instruction: "Polish the answer for an executive audience: lead with the conclusion, trim detail.",
						Accuracy:    0.8, LatencyMs: 1100, CostPerCall: 0.015, Risk: 0.3,
						ContextTags: []string{"enterprise"},
					},
				},
			},
		},
		Pricing: PricingConfig{
			"anthropic": {
				"claude-sonnet-4-20250514": {PromptPer1K: 0.003, CompletionPer1K: 0.015},
				"claude-opus-4-20250514":   {PromptPer1K: 0.015, CompletionPer1K: 0.075},
			},
			"openai": {
				"gpt-5.2-instant":  {PromptPer1K: 0.0005, CompletionPer1K: 0.0015},
				"gpt-5.2-thinking": {PromptPer1K: 0.003, CompletionPer1K: 0.012},
			},
			"perplexity": {
				"sonar-pro": {PromptPer1K: 0.003, CompletionPer1K: 0.015},
			},
		},
	}
}
