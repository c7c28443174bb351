package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/catalog"
	"github.com/zen-systems/chainflow/pkg/chain"
	"github.com/zen-systems/chainflow/pkg/config"
	"github.com/zen-systems/chainflow/pkg/selector"
	"github.com/zen-systems/chainflow/pkg/telemetry"
)

var (
	chainFile string
	debugFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chainflow",
		Short: "LLM request orchestration with complexity-aware routing",
		Long: `Chainflow analyzes incoming queries, routes them to the most
	appropriate model, executes with bounded fallback retries, and
	validates responses before returning them.`,
	}

	rootCmd.PersistentFlags().StringVar(&chainFile, "config", "", "path to chain settings file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(streamCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(decisionsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var sessionFlag string
	var validateFlag bool
	var cheapFlag bool
	var structuredFlag bool
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Route a prompt through the orchestration chain",
		Long: `Analyzes the prompt's complexity, picks the best model, executes,
	and validates the response. Trivial prompts skip routing and go
	straight to the default model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.Chain.ValidationEnabled = cfg.Chain.ValidationEnabled || validateFlag
			cfg.Chain.PreferCheapModels = cfg.Chain.PreferCheapModels || cheapFlag

			o, cleanup, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := o.Orchestrate(context.Background(), chain.Request{
				UserMessage:        args[0],
				SessionID:          sessionFlag,
				UseStructuredQuery: structuredFlag,
			})
			if err != nil {
				return err
			}

			if jsonFlag {
				data, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Fprintf(os.Stderr, "Routed to %s (complexity %d, %s, %d retries)\n",
				result.Execution.Model, result.Analysis.Complexity, result.Analysis.Category, result.RetryCount)
			fmt.Println(result.Execution.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionFlag, "session", "", "session id for route cache scoping")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "validate the response before returning it")
	cmd.Flags().BoolVar(&cheapFlag, "cheap", false, "prefer cheaper models when routing")
	cmd.Flags().BoolVar(&structuredFlag, "structured", false, "harden the prompt via structured query formatting")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "print the full result as JSON")

	return cmd
}

func streamCmd() *cobra.Command {
	var sessionFlag string
	var validateFlag bool

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Route a prompt with live progress events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg.Chain.ValidationEnabled = cfg.Chain.ValidationEnabled || validateFlag

			o, cleanup, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			s := o.OrchestrateStream(context.Background(), chain.Request{
				UserMessage: args[0],
				SessionID:   sessionFlag,
			})
			for ev := range s.Events() {
				fmt.Fprintf(os.Stderr, "[%3.0f%%] %s\n", ev.Progress*100, ev.Message)
			}

			result, err := s.Wait()
			if err != nil {
				return err
			}
			fmt.Println(result.Execution.Content)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionFlag, "session", "", "session id for route cache scoping")
	cmd.Flags().BoolVar(&validateFlag, "validate", false, "validate the response before returning it")

	return cmd
}

func modelsCmd() *cobra.Command {
	var matchesFlag bool
	var qualityFlag bool
	var speedFlag bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models and provider status",
		Long: `Lists every model in the catalog with pricing and provider key
	status.

	Use --matches to run the selector over the catalog and show
	which models survive filtering and how they score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if matchesFlag {
				return showMatches(cfg, selector.Requirements{
					PreferQuality: qualityFlag,
					PreferSpeed:   speedFlag,
				})
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPROVIDER\tCONTEXT\t$/1M AVG\tSTATUS")

			models := cfg.Catalog.Models()
			sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
			for _, m := range models {
				status := "no key"
				if cfg.HasAdapter(m.Provider) {
					status = "ready"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\n", m.ID, m.Provider, m.ContextLength, m.AverageCostPer1M(), status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&matchesFlag, "matches", false, "show selector matches with scores")
	cmd.Flags().BoolVar(&qualityFlag, "quality", false, "score with a quality preference")
	cmd.Flags().BoolVar(&speedFlag, "speed", false, "score with a speed preference")

	return cmd
}

func showMatches(cfg *config.Config, req selector.Requirements) error {
	sel := selector.New(selector.WithDebug(debugFlag))
	matches := sel.AllMatches(cfg.Catalog.Models(), req)
	if len(matches) == 0 {
		fmt.Println("No models match the requirements.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSCORE\tREASON")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%.3f\t%s\n", m.ModelID, m.Score, m.Reason)
	}
	return w.Flush()
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the route cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show route cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			o, cleanup, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := o.CacheStats()
			fmt.Printf("Entries: %d, total hits: %d\n", stats.Size, stats.TotalHits)
			for _, e := range stats.Entries {
				fmt.Printf("  %s (%d hits)\n", e.Model, e.Hits)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached routing plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			o, cleanup, err := buildOrchestrator(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			o.ClearCache()
			fmt.Println("Route cache cleared.")
			return nil
		},
	})

	return cmd
}

func decisionsCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "decisions",
		Short: "Show recent routing decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := telemetry.OpenSQLite(decisionsPath(cfg))
			if err != nil {
				return fmt.Errorf("failed to open decision store: %w", err)
			}
			defer store.Close()

			decisions, err := store.Recent(context.Background(), limitFlag)
			if err != nil {
				return err
			}
			if len(decisions) == 0 {
				fmt.Println("No routing decisions recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tMODEL\tCATEGORY\tCOMPLEXITY\tRETRIES\tCOST\tOK")
			for _, d := range decisions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%v\n",
					d.Timestamp.Format("2006-01-02 15:04:05"), d.Model, d.Category, d.Complexity, d.RetryCount, d.Cost, d.Success)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "maximum number of decisions to show")

	return cmd
}

func loadConfig() (*config.Config, error) {
	if chainFile != "" {
		return config.LoadWithChainFile(chainFile)
	}
	return config.Load()
}

func decisionsPath(cfg *config.Config) string {
	return filepath.Join(cfg.ConfigDir, "decisions.db")
}

// buildOrchestrator wires the provider mux, decision store, and
// orchestrator from the loaded config. The cleanup func closes the
// store.
func buildOrchestrator(cfg *config.Config) (*chain.Orchestrator, func(), error) {
	mux, err := createAssistants(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := telemetry.OpenSQLite(decisionsPath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open decision store: %w", err)
	}

	o := chain.New(mux, cfg.Chain,
		chain.WithCatalog(cfg.Catalog),
		chain.WithStore(store),
		chain.WithDebug(debugFlag),
	)
	return o, func() { store.Close() }, nil
}

func createAssistants(cfg *config.Config) (*adapter.Mux, error) {
	providers := make(map[string]adapter.Assistant)

	if cfg.AnthropicAPIKey != "" {
		a, err := adapter.NewAnthropicAssistant(cfg.AnthropicAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic assistant: %w", err)
		}
		providers["anthropic"] = a
	}

	if cfg.OpenAIAPIKey != "" {
		a, err := adapter.NewOpenAIAssistant(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai assistant: %w", err)
		}
		providers["openai"] = a
	}

	if cfg.GoogleAPIKey != "" {
		a, err := adapter.NewGoogleAssistant(cfg.GoogleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create google assistant: %w", err)
		}
		providers["google"] = a
	}

	if cfg.DeepSeekAPIKey != "" {
		a, err := adapter.NewDeepSeekAssistant(cfg.DeepSeekAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create deepseek assistant: %w", err)
		}
		providers["deepseek"] = a
	}

	if len(providers) == 0 {
		providers["mock"] = adapter.NewMock()
	}

	return adapter.NewMux(catalogFor(cfg), providers), nil
}

func catalogFor(cfg *config.Config) *catalog.Catalog {
	if cfg.Catalog != nil {
		return cfg.Catalog
	}
	return catalog.Default()
}
