package variant

import (
	"fmt"
	"sort"
	"time"

	"github.com/zen-systems/swarmgate/pkg/config"
)

// Registry holds the variant banks for all modules, keyed by module name.
// Banks are independent; there are no cross-bank invariants.
type Registry struct {
	banks map[string]*Bank
}

// FromConfig builds a registry from bank declarations, validating each bank.
func FromConfig(cfg *config.BanksConfig) (*Registry, error) {
	if cfg == nil || len(cfg.Banks) == 0 {
		return nil, fmt.Errorf("no banks configured")
	}

	reg := &Registry{banks: make(map[string]*Bank, len(cfg.Banks))}
	now := time.Now().UTC()

	for module, def := range cfg.Banks {
		bank := &Bank{
			Module:   module,
			Strategy: Strategy(def.Strategy),
			Active:   def.Active,
		}
		if bank.Strategy == "" {
			bank.Strategy = StrategyAdaptive
		}
		for _, vd := range def.Variants {
			bank.Variants = append(bank.Variants, &Variant{
				ID:          vd.ID,
				Instruction: vd.Instruction,
				Performance: Performance{
					Accuracy:    vd.Accuracy,
					LatencyMs:   vd.LatencyMs,
					CostPerCall: vd.CostPerCall,
					Risk:        vd.Risk,
				},
				Metadata: Metadata{
					CreatedAt:   now,
					ContextTags: vd.ContextTags,
				},
			})
		}
		if err := bank.Validate(); err != nil {
			return nil, err
		}
		reg.banks[module] = bank
	}

	return reg, nil
}

// Bank returns the bank for a module, if registered.
func (r *Registry) Bank(module string) (*Bank, bool) {
	b, ok := r.banks[module]
	return b, ok
}

// Modules returns the registered module names in sorted order.
func (r *Registry) Modules() []string {
	names := make([]string, 0, len(r.banks))
	for name := range r.banks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
