package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentsConfig holds the static agent catalog declarations.
type AgentsConfig struct {
	Agents []AgentDef `yaml:"agents"`
}

// AgentDef defines one catalog agent. The catalog is fixed at process start.
type AgentDef struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Capabilities []string `yaml:"capabilities"`
	CostUSD      float64  `yaml:"cost_usd"`
	LatencyMs    float64  `yaml:"latency_ms"`
	MaxDepth     int      `yaml:"max_depth"`
	DependsOn    []string `yaml:"depends_on,omitempty"`
	Adapter      string   `yaml:"adapter,omitempty"`  // LLM adapter backing this agent
	Model        string   `yaml:"model,omitempty"`    // model for the backing adapter
	Endpoint     string   `yaml:"endpoint,omitempty"` // remote HTTP endpoint, if not adapter-backed
}

// LoadAgentsConfig reads the agent catalog from a YAML file.
func LoadAgentsConfig(path string) (*AgentsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AgentsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("agents config %s declares no agents", path)
	}
	applyAgentDefaults(&cfg)
	return &cfg, nil
}

// DefaultAgentsConfig returns the built-in five-agent catalog.
func DefaultAgentsConfig() *AgentsConfig {
	cfg := &AgentsConfig{
		Agents: []AgentDef{
			{
				ID:           "research",
				Name:         "Research Agent",
				Capabilities: []string{"research", "web_search", "fact_finding"},
				CostUSD:      0.02,
				LatencyMs:    2000,
				MaxDepth:     3,
				Adapter:      "perplexity",
				Model:        "sonar-pro",
			},
			{
				ID:           "analysis",
				Name:         "Analysis Agent",
				Capabilities: []string{"analysis", "reasoning", "comparison"},
				CostUSD:      0.03,
				LatencyMs:    2500,
				MaxDepth:     3,
				DependsOn:    []string{"research"},
				Adapter:      "anthropic",
				Model:        "claude-sonnet-4-20250514",
			},
			{
				ID:           "synthesis",
				Name:         "Synthesis Agent",
				Capabilities: []string{"synthesis", "summarization", "merging"},
				CostUSD:      0.025,
				LatencyMs:    1800,
				MaxDepth:     2,
				DependsOn:    []string{"research", "analysis"},
				Adapter:      "anthropic",
				Model:        "claude-sonnet-4-20250514",
			},
			{
				ID:           "validation",
				Name:         "Validation Agent",
				Capabilities: []string{"validation", "fact_checking", "review"},
				CostUSD:      0.035,
				LatencyMs:    2200,
				MaxDepth:     2,
				DependsOn:    []string{"synthesis"},
				Adapter:      "openai",
				Model:        "gpt-5.2-thinking",
			},
			{
				ID:           "optimization",
				Name:         "Optimization Agent",
				Capabilities: []string{"optimization", "refinement", "editing"},
				CostUSD:      0.012,
				LatencyMs:    1000,
				MaxDepth:     1,
				DependsOn:    []string{"validation"},
				Adapter:      "openai",
				Model:        "gpt-5.2-instant",
			},
		},
	}
	applyAgentDefaults(cfg)
	return cfg
}

func applyAgentDefaults(cfg *AgentsConfig) {
	for i := range cfg.Agents {
		if cfg.Agents[i].MaxDepth == 0 {
			cfg.Agents[i].MaxDepth = 2
		}
		if cfg.Agents[i].Name == "" {
			cfg.Agents[i].Name = cfg.Agents[i].ID
		}
	}
}
