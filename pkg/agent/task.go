package agent

import (
	"time"

	"github.com/google/uuid"
)

// Task is a unit of recursive work dispatched to catalog agents. Tasks are
// created by the orchestrator or spawned by an agent result, consumed during
// one orchestration call, and not persisted.
type Task struct {
	ID                   string         `json:"id"`
	Query                string         `json:"query"`
	Domain               string         `json:"domain,omitempty"`
	Priority             int            `json:"priority,omitempty"`
	MaxDepth             int            `json:"max_depth"`
	CurrentDepth         int            `json:"current_depth"`
	ParentID             string         `json:"parent_id,omitempty"`
	RequiredCapabilities []string       `json:"required_capabilities"`
	Context              map[string]any `json:"context,omitempty"`
}

// NewTask creates a top-level task with a fresh id.
func NewTask(query string, capabilities []string) *Task {
	return &Task{
		ID:                   uuid.NewString(),
		Query:                query,
		RequiredCapabilities: capabilities,
		Context:              make(map[string]any),
	}
}

// Child derives a sub-task one level deeper, inheriting the parent's context
// merged with the child's own overrides.
func (t *Task) Child(query string, capabilities []string, overrides map[string]any) *Task {
	ctx := make(map[string]any, len(t.Context)+len(overrides))
	for k, v := range t.Context {
		ctx[k] = v
	}
	for k, v := range overrides {
		ctx[k] = v
	}
	return &Task{
		ID:                   uuid.NewString(),
		Query:                query,
		Domain:               t.Domain,
		Priority:             t.Priority,
		MaxDepth:             t.MaxDepth,
		CurrentDepth:         t.CurrentDepth + 1,
		ParentID:             t.ID,
		RequiredCapabilities: capabilities,
		Context:              ctx,
	}
}

// SpawnedTask describes further sub-work requested by an agent's payload.
type SpawnedTask struct {
	Query                string         `json:"query"`
	RequiredCapabilities []string       `json:"required_capabilities,omitempty"`
	Context              map[string]any `json:"context,omitempty"`
}

// Result is the outcome of one agent invocation.
type Result struct {
	AgentID    string         `json:"agent_id"`
	Payload    string         `json:"payload"`
	Confidence float64        `json:"confidence"`
	CostUSD    float64        `json:"cost_usd"`
	LatencyMs  float64        `json:"latency_ms"`
	Spawned    []SpawnedTask  `json:"spawned,omitempty"`
	SubTasks   []SpawnedTask  `json:"sub_tasks,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	FinishedAt time.Time      `json:"finished_at"`
}
