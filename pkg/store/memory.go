// Package store provides decision store implementations for the router's
// audit trail: a bounded in-memory store for tests and single runs, and a
// SQLite-backed store for runs that should survive the process.
package store

import (
	"sync"

	"github.com/zen-systems/swarmgate/pkg/router"
)

// Decision aliases the router's record type for implementations here.
type Decision = router.Decision

// MemoryStore keeps decisions in memory, in insertion order. When cap is
// positive the oldest decisions are evicted once the cap is exceeded.
type MemoryStore struct {
	mu        sync.Mutex
	decisions []*router.Decision
	cap       int
}

// NewMemoryStore creates a memory store. cap 0 means unbounded.
func NewMemoryStore(cap int) *MemoryStore {
	return &MemoryStore{cap: cap}
}

// Append records a decision.
func (s *MemoryStore) Append(d *Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions = append(s.decisions, d)
	if s.cap > 0 && len(s.decisions) > s.cap {
		overflow := len(s.decisions) - s.cap
		s.decisions = append([]*router.Decision(nil), s.decisions[overflow:]...)
	}
	return nil
}

// List returns decisions in insertion order, optionally filtered by module
// and capped by limit.
func (s *MemoryStore) List(module string, limit int) ([]*router.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*router.Decision
	for _, d := range s.decisions {
		if module != "" && d.Module != module {
			continue
		}
		out = append(out, d)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Len returns the number of retained decisions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}
