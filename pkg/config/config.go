package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey  string
	OpenAIAPIKey     string
	GoogleAPIKey     string
	PerplexityAPIKey string
	OllamaHost       string
	Banks            *BanksConfig
	Agents           *AgentsConfig
	Orchestrator     OrchestratorConfig
	ConfigDir        string
}

// FileConfig represents the structure of ~/.swarmgate/config.yaml
type FileConfig struct {
	APIKeys      APIKeysConfig      `yaml:"api_keys"`
	OllamaHost   string             `yaml:"ollama_host,omitempty"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic  string `yaml:"anthropic"`
	OpenAI     string `yaml:"openai"`
	Google     string `yaml:"google"`
	Perplexity string `yaml:"perplexity"`
}

// OrchestratorConfig holds dispatcher defaults.
type OrchestratorConfig struct {
	Strategy    string  `yaml:"strategy,omitempty"`     // parallel | sequential | hybrid
	MaxDepth    int     `yaml:"max_depth,omitempty"`    // recursion ceiling for sub-tasks
	OnError     string  `yaml:"on_error,omitempty"`     // skip | abort
	MaxParallel int     `yaml:"max_parallel,omitempty"` // bound on concurrent agent calls
	MaxCostUSD  float64 `yaml:"max_cost_usd,omitempty"` // default per-plan budget
	HistoryCap  int     `yaml:"history_cap,omitempty"`  // execution history retention, 0 = unbounded
	AuditCap    int     `yaml:"audit_cap,omitempty"`    // routing audit retention, 0 = unbounded
}

// Load reads configuration from config files and environment variables.
// Environment variables take precedence over file configuration.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey:  getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:     getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:     getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		PerplexityAPIKey: getEnvOrDefault("PERPLEXITY_API_KEY", fileConfig.APIKeys.Perplexity),
		OllamaHost:       getEnvOrDefault("OLLAMA_HOST", fileConfig.OllamaHost),
		Orchestrator:     fileConfig.Orchestrator,
		ConfigDir:        configDir,
	}
	applyOrchestratorDefaults(&cfg.Orchestrator)

	banksPath := filepath.Join(configDir, "banks.yaml")
	if _, err := os.Stat(banksPath); err == nil {
		banks, err := LoadBanksConfig(banksPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load banks config: %w", err)
		}
		cfg.Banks = banks
	} else {
		cfg.Banks = DefaultBanksConfig()
	}

	agentsPath := filepath.Join(configDir, "agents.yaml")
	if _, err := os.Stat(agentsPath); err == nil {
		agents, err := LoadAgentsConfig(agentsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load agents config: %w", err)
		}
		cfg.Agents = agents
	} else {
		cfg.Agents = DefaultAgentsConfig()
	}

	return cfg, nil
}

// LoadWithFiles loads config overriding the bank and agent catalog file paths.
// Empty paths fall back to the user config directory and built-in defaults.
func LoadWithFiles(banksPath, agentsPath string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if banksPath != "" {
		banks, err := LoadBanksConfig(banksPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load banks config from %s: %w", banksPath, err)
		}
		cfg.Banks = banks
	}
	if agentsPath != "" {
		agents, err := LoadAgentsConfig(agentsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load agents config from %s: %w", agentsPath, err)
		}
		cfg.Agents = agents
	}
	return cfg, nil
}

// HasAdapter returns true if the API key for the given adapter is configured.
func (c *Config) HasAdapter(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	case "google":
		return c.GoogleAPIKey != ""
	case "perplexity":
		return c.PerplexityAPIKey != ""
	case "ollama":
		return true // local, no key required
	default:
		return false
	}
}

func applyOrchestratorDefaults(o *OrchestratorConfig) {
	if o.Strategy == "" {
		o.Strategy = "hybrid"
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = 3
	}
	if o.OnError == "" {
		o.OnError = "skip"
	}
	if o.MaxParallel == 0 {
		o.MaxParallel = 10
	}
	if o.HistoryCap == 0 {
		o.HistoryCap = 4096
	}
	if o.AuditCap == 0 {
		o.AuditCap = 4096
	}
}

// loadFileConfig reads the config file, returning empty config if not found.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // Return empty config if file doesn't exist
	}

	_ = yaml.Unmarshal(data, cfg) // Ignore parse errors, use defaults
	return cfg
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise returns the default value.
func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".swarmgate")
	return configDir, nil
}
