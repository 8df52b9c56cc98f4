package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyOrchestratorDefaults(t *testing.T) {
	o := OrchestratorConfig{}
	applyOrchestratorDefaults(&o)

	if o.Strategy != "hybrid" {
		t.Errorf("strategy = %q, want hybrid", o.Strategy)
	}
	if o.MaxDepth != 3 {
		t.Errorf("max depth = %d, want 3", o.MaxDepth)
	}
	if o.OnError != "skip" {
		t.Errorf("on_error = %q, want skip", o.OnError)
	}
	if o.MaxParallel != 10 {
		t.Errorf("max parallel = %d, want 10", o.MaxParallel)
	}
	if o.HistoryCap != 4096 || o.AuditCap != 4096 {
		t.Errorf("retention caps = %d/%d, want 4096/4096", o.HistoryCap, o.AuditCap)
	}

	set := OrchestratorConfig{Strategy: "sequential", MaxDepth: 5, OnError: "abort", MaxParallel: 2}
	applyOrchestratorDefaults(&set)
	if set.Strategy != "sequential" || set.MaxDepth != 5 || set.OnError != "abort" || set.MaxParallel != 2 {
		t.Errorf("explicit values were overwritten: %+v", set)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AnthropicAPIKey != "env-key" {
		t.Errorf("anthropic key = %q, want env-key", cfg.AnthropicAPIKey)
	}
}

func TestHasAdapter(t *testing.T) {
	cfg := &Config{AnthropicAPIKey: "x"}
	if !cfg.HasAdapter("anthropic") {
		t.Error("anthropic should be configured")
	}
	if cfg.HasAdapter("openai") {
		t.Error("openai should not be configured")
	}
	if !cfg.HasAdapter("ollama") {
		t.Error("ollama needs no key")
	}
	if cfg.HasAdapter("unknown") {
		t.Error("unknown adapter should not be configured")
	}
}

func TestLoadBanksConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banks.yaml")
	content := `banks:
  research:
    strategy: adaptive
    active: fast_v1
    variants:
      - id: fast_v1
        instruction: "Answer quickly."
        accuracy: 0.7
        latency_ms: 400
        cost_per_call: 0.004
        risk: 0.5
        context_tags: [free, high_load]
pricing:
  anthropic:
    claude-sonnet-4-20250514:
      prompt_per_1k: 0.003
      completion_per_1k: 0.015
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadBanksConfig(path)
	if err != nil {
		t.Fatalf("LoadBanksConfig: %v", err)
	}

	bank, ok := cfg.Banks["research"]
	if !ok {
		t.Fatal("research bank missing")
	}
	if bank.Active != "fast_v1" || len(bank.Variants) != 1 {
		t.Errorf("bank = %+v", bank)
	}
	v := bank.Variants[0]
	if v.Accuracy != 0.7 || v.LatencyMs != 400 || v.CostPerCall != 0.004 {
		t.Errorf("variant = %+v", v)
	}
	if len(v.ContextTags) != 2 {
		t.Errorf("tags = %v", v.ContextTags)
	}

	cost, ok := cfg.Pricing.EstimateCost("anthropic", "claude-sonnet-4-20250514", 2000, 1000)
	if !ok {
		t.Fatal("pricing lookup failed")
	}
	if want := 2*0.003 + 1*0.015; cost != want {
		t.Errorf("cost = %v, want %v", cost, want)
	}
}

func TestLoadBanksConfig_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banks.yaml")
	if err := os.WriteFile(path, []byte("banks: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadBanksConfig(path); err == nil {
		t.Error("empty banks file should error")
	}
}

func TestLoadAgentsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agents.yaml")
	content := `agents:
  - id: research
    name: Research Agent
    capabilities: [research, web_search]
    cost_usd: 0.05
    latency_ms: 1200
    adapter: perplexity
    model: sonar-pro
  - id: analysis
    capabilities: [analysis]
    depends_on: [research]
    adapter: anthropic
    model: claude-sonnet-4-20250514
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadAgentsConfig(path)
	if err != nil {
		t.Fatalf("LoadAgentsConfig: %v", err)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(cfg.Agents))
	}
	if cfg.Agents[0].ID != "research" || cfg.Agents[0].Adapter != "perplexity" {
		t.Errorf("first agent = %+v", cfg.Agents[0])
	}
	if cfg.Agents[1].DependsOn[0] != "research" {
		t.Errorf("dependency = %v", cfg.Agents[1].DependsOn)
	}
	// Defaults fill unset depth.
	if cfg.Agents[1].MaxDepth == 0 {
		t.Error("agent max depth default not applied")
	}
}

func TestDefaultConfigs(t *testing.T) {
	banks := DefaultBanksConfig()
	agents := DefaultAgentsConfig()

	for _, module := range []string{"research", "analysis", "synthesis", "validation", "optimization"} {
		if _, ok := banks.Banks[module]; !ok {
			t.Errorf("default banks missing module %s", module)
		}
	}
	if len(agents.Agents) != 5 {
		t.Errorf("default catalog has %d agents, want 5", len(agents.Agents))
	}
	// Every default agent has a bank of the same name so routing always
	// resolves.
	for _, a := range agents.Agents {
		if _, ok := banks.Banks[a.ID]; !ok {
			t.Errorf("default agent %s has no matching bank", a.ID)
		}
		if a.MaxDepth == 0 {
			t.Errorf("default agent %s has no depth ceiling", a.ID)
		}
	}

	if _, ok := banks.Pricing.EstimateCost("anthropic", "claude-sonnet-4-20250514", 1000, 1000); !ok {
		t.Error("default pricing missing anthropic sonnet")
	}
	if _, ok := banks.Pricing.EstimateCost("nobody", "x", 1, 1); ok {
		t.Error("unknown adapter should have no pricing")
	}
}
