// Package agent defines the static sub-agent catalog and the task/result
// types exchanged with the orchestrator. The catalog is fixed at process
// start; its dependency graph is validated then, so runtime scheduling never
// sees an unknown or cyclic dependency.
package agent

import (
	"fmt"
	"sort"

	"github.com/zen-systems/swarmgate/pkg/config"
)

// Agent is one catalog entry. Cost and latency are flat planning estimates,
// not measurements.
type Agent struct {
	ID           string
	Name         string
	Capabilities []string
	CostUSD      float64
	LatencyMs    float64
	MaxDepth     int
	DependsOn    []string
	Adapter      string
	Model        string
	Endpoint     string
}

// HasCapability reports whether the agent declares the given capability tag.
func (a *Agent) HasCapability(tag string) bool {
	for _, c := range a.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// Catalog is the fixed set of agents available to the orchestrator.
type Catalog struct {
	agents map[string]*Agent
	order  []string
}

// FromConfig builds and validates a catalog from configuration.
func FromConfig(cfg *config.AgentsConfig) (*Catalog, error) {
	if cfg == nil || len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("no agents configured")
	}

	c := &Catalog{agents: make(map[string]*Agent, len(cfg.Agents))}
	for _, def := range cfg.Agents {
		if def.ID == "" {
			return nil, fmt.Errorf("agent catalog contains an entry with no id")
		}
		if _, dup := c.agents[def.ID]; dup {
			return nil, fmt.Errorf("agent catalog contains duplicate id %q", def.ID)
		}
		c.agents[def.ID] = &Agent{
			ID:           def.ID,
			Name:         def.Name,
			Capabilities: def.Capabilities,
			CostUSD:      def.CostUSD,
			LatencyMs:    def.LatencyMs,
			MaxDepth:     def.MaxDepth,
			DependsOn:    def.DependsOn,
			Adapter:      def.Adapter,
			Model:        def.Model,
			Endpoint:     def.Endpoint,
		}
		c.order = append(c.order, def.ID)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns an agent by id.
func (c *Catalog) Get(id string) (*Agent, bool) {
	a, ok := c.agents[id]
	return a, ok
}

// All returns the agents in declaration order.
func (c *Catalog) All() []*Agent {
	out := make([]*Agent, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.agents[id])
	}
	return out
}

// IDs returns the agent ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.agents))
	for id := range c.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the static dependency graph: every DependsOn id must exist
// and the graph must be acyclic. Uses a three-color depth-first search so a
// cycle is reported with the offending agent id.
func (c *Catalog) Validate() error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current DFS path
		black = 2 // fully explored
	)
	color := make(map[string]int, len(c.agents))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, dep := range c.agents[id].DependsOn {
			depAgent, ok := c.agents[dep]
			if !ok {
				return fmt.Errorf("agent %q depends on unknown agent %q", id, dep)
			}
			switch color[depAgent.ID] {
			case gray:
				return fmt.Errorf("agent dependency cycle through %q and %q", id, dep)
			case white:
				if err := visit(depAgent.ID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range c.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
