package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zen-systems/swarmgate/pkg/adapter"
	"github.com/zen-systems/swarmgate/pkg/agent"
	"github.com/zen-systems/swarmgate/pkg/config"
	"github.com/zen-systems/swarmgate/pkg/router"
	"github.com/zen-systems/swarmgate/pkg/variant"
)

// Invoker executes one agent against one task.
type Invoker interface {
	Invoke(ctx context.Context, a *agent.Agent, task *agent.Task) (*agent.Result, error)
}

// AdapterInvoker runs agents in-process by routing their query through the
// variant router and the agent's backing LLM adapter. Observed latency and
// cost feed back into the variant's telemetry.
type AdapterInvoker struct {
	adapters map[string]adapter.Adapter
	router   *router.Router
	pricing  config.PricingConfig
	retry    adapter.RetryPolicy
	logger   *zap.Logger
}

// NewAdapterInvoker creates an invoker over the given adapters and router.
func NewAdapterInvoker(adapters map[string]adapter.Adapter, rt *router.Router, pricing config.PricingConfig, logger *zap.Logger) *AdapterInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterInvoker{
		adapters: adapters,
		router:   rt,
		pricing:  pricing,
		retry:    adapter.DefaultRetryPolicy(),
		logger:   logger,
	}
}

// Invoke routes the task through the agent's variant bank and backing adapter.
func (inv *AdapterInvoker) Invoke(ctx context.Context, a *agent.Agent, task *agent.Task) (*agent.Result, error) {
	ad, ok := inv.adapters[a.Adapter]
	if !ok {
		return nil, fmt.Errorf("no adapter %q configured for agent %q", a.Adapter, a.ID)
	}

	instruction := ""
	variantID := ""
	selected, _, err := inv.router.SelectVariant(ctx, a.ID, signalsFromTask(task))
	switch {
	case err == nil:
		instruction = selected.Instruction
		variantID = selected.ID
	case errors.Is(err, router.ErrNoBank):
		// Agents without a bank run on the bare task query.
	default:
		return nil, err
	}

	prompt := buildAgentPrompt(instruction, task)

	start := time.Now()
	resp, retries, err := adapter.Do(ctx, inv.retry, func() (*adapter.Response, error) {
		return ad.Generate(ctx, a.Model, prompt)
	})
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)

	if variantID != "" {
		obs := variant.Observation{
			Success:   err == nil,
			LatencyMs: latencyMs,
		}
		if err != nil {
			obs.Err = err.Error()
		} else if resp.Usage != nil {
			if cost, ok := inv.pricing.EstimateCost(a.Adapter, a.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
				obs.CostUSD = cost
			}
		}
		if updateErr := inv.router.UpdateMetrics(a.ID, variantID, obs); updateErr != nil {
			inv.logger.Warn("failed to update variant metrics",
				zap.String("agent", a.ID), zap.String("variant", variantID), zap.Error(updateErr))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("agent %q call failed after %d retries: %w", a.ID, retries, err)
	}

	payload, confidence, spawned := parseAgentPayload(resp.Content)
	cost := a.CostUSD
	if resp.Usage != nil {
		if estimated, ok := inv.pricing.EstimateCost(a.Adapter, a.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens); ok {
			cost = estimated
		}
	}

	return &agent.Result{
		AgentID:    a.ID,
		Payload:    payload,
		Confidence: confidence,
		CostUSD:    cost,
		LatencyMs:  latencyMs,
		Spawned:    spawned,
		Metadata: map[string]any{
			"adapter": a.Adapter,
			"model":   a.Model,
			"variant": variantID,
			"retries": retries,
		},
		FinishedAt: time.Now().UTC(),
	}, nil
}

// signalsFromTask derives routing signals from well-known task context keys,
// with conservative defaults where the caller supplied none.
func signalsFromTask(task *agent.Task) router.Signals {
	s := router.Signals{
		RiskTolerance:  0.5,
		UserTier:       router.TierPro,
		TaskComplexity: router.ComplexityMedium,
		HourOfDay:      time.Now().Hour(),
	}
	if v, ok := taskFloat(task, "current_load"); ok {
		s.CurrentLoad = v
	}
	if v, ok := taskFloat(task, "budget_remaining"); ok {
		s.BudgetRemainingUSD = v
	}
	if v, ok := taskFloat(task, "latency_requirement"); ok {
		s.LatencyRequirementMs = v
	}
	if v, ok := taskFloat(task, "risk_tolerance"); ok {
		s.RiskTolerance = v
	}
	if v, ok := task.Context["user_tier"].(string); ok {
		s.UserTier = router.UserTier(v)
	}
	if v, ok := task.Context["task_complexity"].(string); ok {
		s.TaskComplexity = router.Complexity(v)
	}
	return s
}

func taskFloat(task *agent.Task, key string) (float64, bool) {
	switch v := task.Context[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}

// buildAgentPrompt prefixes the variant instruction and appends any shared
// context accumulated by earlier agents in the plan.
func buildAgentPrompt(instruction string, task *agent.Task) string {
	var b strings.Builder
	if instruction != "" {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}
	b.WriteString(task.Query)

	var contextLines []string
	for key, value := range task.Context {
		if !strings.HasSuffix(key, "_result") {
			continue
		}
		if text, ok := value.(string); ok && text != "" {
			contextLines = append(contextLines, fmt.Sprintf("[%s]\n%s", strings.TrimSuffix(key, "_result"), text))
		}
	}
	if len(contextLines) > 0 {
		b.WriteString("\n\nEarlier findings:\n\n")
		b.WriteString(strings.Join(contextLines, "\n\n"))
	}
	return b.String()
}

// agentPayload is the optional structured envelope an agent may emit.
type agentPayload struct {
	Answer     string              `json:"answer"`
	Confidence float64             `json:"confidence"`
	SubTasks   []agent.SpawnedTask `json:"sub_tasks"`
}

// parseAgentPayload extracts a structured envelope from the response when one
// is present; plain-text responses pass through with a default confidence.
func parseAgentPayload(content string) (payload string, confidence float64, spawned []agent.SpawnedTask) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == 0 && end > start {
		var env agentPayload
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &env); err == nil && env.Answer != "" {
			confidence = env.Confidence
			if confidence <= 0 || confidence > 1 {
				confidence = 0.8
			}
			return env.Answer, confidence, env.SubTasks
		}
	}
	return content, 0.8, nil
}

// HTTPInvoker dispatches agents to remote HTTP endpoints. It exists for
// agents that genuinely live in another process; in-process agents go through
// AdapterInvoker instead.
type HTTPInvoker struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewHTTPInvoker creates an HTTP invoker with a per-call timeout.
func NewHTTPInvoker(timeout time.Duration) *HTTPInvoker {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPInvoker{
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Invoke POSTs the task to the agent's endpoint and decodes the result.
func (inv *HTTPInvoker) Invoke(ctx context.Context, a *agent.Agent, task *agent.Task) (*agent.Result, error) {
	if a.Endpoint == "" {
		return nil, fmt.Errorf("agent %q has no endpoint", a.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := inv.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("agent %q request failed: %w", a.ID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent %q returned status %d: %s", a.ID, resp.StatusCode, string(respBody))
	}

	var result agent.Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode agent result: %w", err)
	}
	if result.AgentID == "" {
		result.AgentID = a.ID
	}
	return &result, nil
}
