package orchestrator

import (
	"sync"

	"github.com/zen-systems/swarmgate/pkg/agent"
)

// history retains execution results keyed by taskID_depth for the lifetime of
// the process, bounded by cap (oldest keys evicted first). cap 0 disables
// eviction.
type history struct {
	mu      sync.Mutex
	entries map[string][]*agent.Result
	order   []string
	cap     int
}

func newHistory(cap int) *history {
	return &history{
		entries: make(map[string][]*agent.Result),
		cap:     cap,
	}
}

func (h *history) record(key string, results []*agent.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[key]; !exists {
		h.order = append(h.order, key)
	}
	h.entries[key] = results

	for h.cap > 0 && len(h.order) > h.cap {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, oldest)
	}
}

func (h *history) get(key string) ([]*agent.Result, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.entries[key]
	return r, ok
}
