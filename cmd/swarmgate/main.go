package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/swarmgate/pkg/adapter"
	"github.com/zen-systems/swarmgate/pkg/agent"
	"github.com/zen-systems/swarmgate/pkg/config"
	"github.com/zen-systems/swarmgate/pkg/orchestrator"
	"github.com/zen-systems/swarmgate/pkg/router"
	"github.com/zen-systems/swarmgate/pkg/store"
	"github.com/zen-systems/swarmgate/pkg/synthesis"
	"github.com/zen-systems/swarmgate/pkg/variant"
)

var (
	banksFile  string
	agentsFile string
	auditDB    string
	debugFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "swarmgate",
		Short: "Runtime prompt-variant routing and multi-agent dispatch",
		Long: `Swarmgate picks the best prompt variant for each module call based on
	runtime signals (load, budget, latency needs, user tier), dispatches
	dependency-ordered multi-agent plans over a fixed agent catalog, and
	synthesizes multi-source answers with conflict detection.`,
	}

	rootCmd.PersistentFlags().StringVar(&banksFile, "banks", "", "path to variant banks file")
	rootCmd.PersistentFlags().StringVar(&agentsFile, "agents", "", "path to agent catalog file")
	rootCmd.PersistentFlags().StringVar(&auditDB, "audit-db", "", "persist routing decisions to this SQLite file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(observeCmd())
	rootCmd.AddCommand(banksCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(synthesizeCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalFlags holds the routing signal flag values shared by route and run.
type signalFlags struct {
	load       float64
	budget     float64
	latencyReq float64
	riskTol    float64
	tier       string
	complexity string
	hour       int
}

func (f *signalFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.load, "load", 0, "current load (0-1)")
	cmd.Flags().Float64Var(&f.budget, "budget", 0, "budget remaining in USD")
	cmd.Flags().Float64Var(&f.latencyReq, "latency-req", 0, "latency requirement in ms")
	cmd.Flags().Float64Var(&f.riskTol, "risk-tolerance", 0.5, "risk tolerance (0-1)")
	cmd.Flags().StringVar(&f.tier, "tier", "pro", "user tier (free, pro, enterprise)")
	cmd.Flags().StringVar(&f.complexity, "complexity", "medium", "task complexity (low, medium, high)")
	cmd.Flags().IntVar(&f.hour, "hour", -1, "hour of day (defaults to now)")
}

func (f *signalFlags) signals() router.Signals {
	s := router.Signals{
		CurrentLoad:          f.load,
		BudgetRemainingUSD:   f.budget,
		LatencyRequirementMs: f.latencyReq,
		RiskTolerance:        f.riskTol,
		UserTier:             router.UserTier(f.tier),
		TaskComplexity:       router.Complexity(f.complexity),
		HourOfDay:            f.hour,
	}
	return s
}

func routeCmd() *cobra.Command {
	flags := &signalFlags{}
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "route [module]",
		Short: "Select a prompt variant for a module",
		Long: `Ranks the module's variant bank by weighted utility under the supplied
	signals and prints the selected variant with the full ranked score list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := buildRouter()
			if err != nil {
				return err
			}
			defer cleanup()

			selected, decision, err := rt.SelectVariant(context.Background(), args[0], flags.signals())
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(decision)
			}

			fmt.Printf("Selected: %s\n", selected.ID)
			fmt.Printf("Reasoning: %s\n\n", decision.Reasoning)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VARIANT\tBASE\tBONUS\tSCORE")
			for _, r := range decision.Ranking {
				fmt.Fprintf(w, "%s\t%.4f\t%.2f\t%.4f\n", r.VariantID, r.BaseScore, r.Bonus, r.Score)
			}
			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full decision as JSON")
	return cmd
}

func observeCmd() *cobra.Command {
	var success bool
	var latency, cost float64
	var errText string

	cmd := &cobra.Command{
		Use:   "observe [module] [variant]",
		Short: "Record an observed execution outcome for a variant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := buildRouter()
			if err != nil {
				return err
			}
			defer cleanup()

			obs := variant.Observation{
				Success:   success,
				LatencyMs: latency,
				CostUSD:   cost,
				Err:       errText,
			}
			if err := rt.UpdateMetrics(args[0], args[1], obs); err != nil {
				return err
			}

			bank, _ := rt.Bank(args[0])
			v, _ := bank.Find(args[1])
			fmt.Printf("Updated %s/%s: latency %.0fms, cost $%.4f, success rate %.2f over %d tests\n",
				args[0], args[1],
				v.Performance.LatencyMs, v.Performance.CostPerCall,
				v.Metadata.SuccessRate, v.Metadata.TestCount)
			return nil
		},
	}

	cmd.Flags().BoolVar(&success, "success", true, "whether the call succeeded")
	cmd.Flags().Float64Var(&latency, "latency", 0, "observed latency in ms")
	cmd.Flags().Float64Var(&cost, "cost", 0, "observed cost in USD")
	cmd.Flags().StringVar(&errText, "error", "", "error text if the call failed")
	return cmd
}

func banksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List variant banks and their telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := buildRouter()
			if err != nil {
				return err
			}
			defer cleanup()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODULE\tVARIANT\tACCURACY\tLATENCY\tCOST\tRISK\tTAGS")

			for _, module := range rt.Modules() {
				bank, _ := rt.Bank(module)
				for _, v := range bank.Variants {
					fmt.Fprintf(w, "%s\t%s\t%.2f\t%.0fms\t$%.4f\t%.2f\t%s\n",
						module, v.ID,
						v.Performance.Accuracy, v.Performance.LatencyMs,
						v.Performance.CostPerCall, v.Performance.Risk,
						strings.Join(v.Metadata.ContextTags, ","))
				}
			}
			return w.Flush()
		},
	}
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agent catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := agent.FromConfig(cfg.Agents)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AGENT\tCAPABILITIES\tCOST\tLATENCY\tMAX DEPTH\tDEPENDS ON\tBACKEND")
			for _, a := range catalog.All() {
				backend := a.Endpoint
				if a.Adapter != "" {
					backend = a.Adapter + "/" + a.Model
				}
				fmt.Fprintf(w, "%s\t%s\t$%.3f\t%.0fms\t%d\t%s\t%s\n",
					a.ID, strings.Join(a.Capabilities, ","),
					a.CostUSD, a.LatencyMs, a.MaxDepth,
					strings.Join(a.DependsOn, ","), backend)
			}
			return w.Flush()
		},
	}
}

func runCmd() *cobra.Command {
	flags := &signalFlags{}
	var capabilities []string
	var strategy, onError string
	var maxDepth int
	var maxCost, maxLatency float64
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Dispatch a task through the agent catalog",
		Long: `Builds a dependency-ordered execution plan over the agents matching the
	required capabilities and runs it. Each agent call is routed through the
	variant bank named after the agent, and observed outcomes feed back into
	the bank's telemetry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			rt, cleanup, err := buildRouter()
			if err != nil {
				return err
			}
			defer cleanup()

			catalog, err := agent.FromConfig(cfg.Agents)
			if err != nil {
				return err
			}
			adapters := createAdapters(cfg)
			invoker := orchestrator.NewAdapterInvoker(adapters, rt, cfg.Banks.Pricing, logger)
			orch := orchestrator.New(catalog, invoker,
				orchestrator.WithLogger(logger),
				orchestrator.WithMaxParallel(cfg.Orchestrator.MaxParallel),
				orchestrator.WithHistoryCap(cfg.Orchestrator.HistoryCap))

			task := agent.NewTask(args[0], capabilities)
			task.MaxDepth = maxDepth
			sig := flags.signals()
			task.Context["current_load"] = sig.CurrentLoad
			task.Context["budget_remaining"] = sig.BudgetRemainingUSD
			task.Context["latency_requirement"] = sig.LatencyRequirementMs
			task.Context["risk_tolerance"] = sig.RiskTolerance
			task.Context["user_tier"] = string(sig.UserTier)
			task.Context["task_complexity"] = string(sig.TaskComplexity)

			plan, err := orch.Plan(task, orchestrator.Requirements{
				MaxCostUSD:   maxCost,
				MaxLatencyMs: maxLatency,
				Strategy:     orchestrator.Strategy(strategy),
				OnError:      orchestrator.ErrorPolicy(onError),
				MaxDepth:     maxDepth,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "Plan: %d agents, est. $%.3f / %.0fms (%s)\n",
				len(plan.Agents), plan.EstCostUSD, plan.EstLatencyMs, plan.Strategy)

			results, err := orch.ExecuteRecursive(context.Background(), task, plan)
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(results)
			}
			for _, r := range results {
				fmt.Printf("== %s (confidence %.2f, $%.4f, %.0fms)\n%s\n\n",
					r.AgentID, r.Confidence, r.CostUSD, r.LatencyMs, r.Payload)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&capabilities, "capabilities", nil, "required capability tags")
	cmd.Flags().StringVar(&strategy, "strategy", "hybrid", "dispatch strategy (parallel, sequential, hybrid)")
	cmd.Flags().StringVar(&onError, "on-error", "skip", "per-agent failure policy (skip, abort)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "recursion ceiling for spawned sub-tasks")
	cmd.Flags().Float64Var(&maxCost, "max-cost", 0, "per-agent cost cap in USD")
	cmd.Flags().Float64Var(&maxLatency, "max-latency", 0, "per-agent latency cap in ms")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print results as JSON")
	return cmd
}

func synthesizeCmd() *cobra.Command {
	var strategy string
	var maxChars int

	cmd := &cobra.Command{
		Use:   "synthesize [sources.json]",
		Short: "Merge scored text sources into one answer",
		Long: `Reads a JSON array of sources ({id, text, confidence, quality, relevance,
	authority}), detects conflicts between them, and prints the synthesized
	text with per-source weights.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read sources: %w", err)
			}
			var sources []synthesis.Source
			if err := json.Unmarshal(data, &sources); err != nil {
				return fmt.Errorf("failed to parse sources: %w", err)
			}

			result, err := synthesis.Synthesize(sources, synthesis.Options{
				Strategy: synthesis.Strategy(strategy),
				MaxChars: maxChars,
			})
			if err != nil {
				return err
			}

			for _, c := range result.Conflicts {
				if c.SourceB != "" {
					fmt.Fprintf(os.Stderr, "%s: %s vs %s (similarity %.2f)\n", c.Kind, c.SourceA, c.SourceB, c.Similarity)
				} else {
					fmt.Fprintf(os.Stderr, "%s: %s\n", c.Kind, c.SourceA)
				}
			}
			fmt.Println(result.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&strategy, "strategy", "weighted_average", "weighting strategy (weighted_average, authority_based, consensus_based)")
	cmd.Flags().IntVar(&maxChars, "max-chars", 2000, "target length of synthesized text")
	return cmd
}

func auditCmd() *cobra.Command {
	var module string
	var limit int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the routing decision trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, cleanup, err := buildRouter()
			if err != nil {
				return err
			}
			defer cleanup()

			decisions, err := rt.AuditTrail(module, limit)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJSON(decisions)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODULE\tVARIANT\tREASONING")
			for _, d := range decisions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					d.Timestamp.Format("15:04:05"), d.Module, d.VariantID, d.Reasoning)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "filter by module")
	cmd.Flags().IntVar(&limit, "limit", 0, "show only the most recent N decisions")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print decisions as JSON")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFiles(banksFile, agentsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func buildLogger() (*zap.Logger, error) {
	if debugFlag {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// buildRouter wires the registry, decision store, and router from config.
// The returned cleanup closes the store when it is file-backed.
func buildRouter() (*router.Router, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := buildLogger()
	if err != nil {
		return nil, nil, err
	}

	registry, err := variant.FromConfig(cfg.Banks)
	if err != nil {
		return nil, nil, err
	}

	var decisionStore router.DecisionStore
	cleanup := func() { logger.Sync() }
	if auditDB != "" {
		s, err := store.OpenSQLite(auditDB)
		if err != nil {
			return nil, nil, err
		}
		decisionStore = s
		cleanup = func() {
			s.Close()
			logger.Sync()
		}
	} else {
		decisionStore = store.NewMemoryStore(cfg.Orchestrator.AuditCap)
	}

	return router.New(registry, decisionStore, router.WithLogger(logger)), cleanup, nil
}

// createAdapters builds the adapter set for configured providers; the mock
// adapter is always available so plans run without live credentials.
func createAdapters(cfg *config.Config) map[string]adapter.Adapter {
	adapters := make(map[string]adapter.Adapter)

	if cfg.AnthropicAPIKey != "" {
		if a, err := adapter.NewAnthropicAdapter(cfg.AnthropicAPIKey); err == nil {
			adapters["anthropic"] = a
		}
	}
	if cfg.OpenAIAPIKey != "" {
		if a, err := adapter.NewOpenAIAdapter(cfg.OpenAIAPIKey); err == nil {
			adapters["openai"] = a
		}
	}
	if cfg.GoogleAPIKey != "" {
		if a, err := adapter.NewGoogleAdapter(cfg.GoogleAPIKey); err == nil {
			adapters["google"] = a
		}
	}
	if cfg.PerplexityAPIKey != "" {
		if a, err := adapter.NewPerplexityAdapter(cfg.PerplexityAPIKey); err == nil {
			adapters["perplexity"] = a
		}
	}
	adapters["ollama"] = adapter.NewOllamaAdapter(cfg.OllamaHost)
	adapters["mock"] = adapter.NewMockAdapter()

	// Agents whose provider has no key degrade to the mock adapter so demo
	// runs complete without live credentials.
	for _, name := range []string{"anthropic", "openai", "google", "perplexity"} {
		if _, ok := adapters[name]; !ok {
			adapters[name] = adapter.NewMockAdapter()
		}
	}

	return adapters
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
