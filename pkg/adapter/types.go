package adapter

// Usage captures normalized token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response wraps a provider completion and optional usage data.
type Response struct {
	Content string `json:"content"`
	Adapter string `json:"adapter"`
	Model   string `json:"model"`
	Usage   *Usage `json:"usage,omitempty"`
}

// CallReport captures adapter call metadata for cost accounting.
type CallReport struct {
	Adapter   string  `json:"adapter"`
	Model     string  `json:"model"`
	Usage     Usage   `json:"usage"`
	CostUSD   float64 `json:"cost_usd"`
	LatencyMs float64 `json:"latency_ms"`
	Retries   int     `json:"retries"`
	Error     string  `json:"error,omitempty"`
}
