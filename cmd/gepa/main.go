// Command gepa runs the genetic-Pareto text-program optimization engine
// from a JSON-configured train/validation dataset.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gepa-run/gepa-engine/internal/adapters/tracing"
	"github.com/gepa-run/gepa-engine/internal/config"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared across subcommands, populated by the root command's
// PersistentPreRunE.
var cfg *config.Config

// shutdownTracer flushes and stops the tracer provider started in
// PersistentPreRunE; main calls it after Execute returns.
var shutdownTracer func(context.Context) error

func main() {
	err := rootCmd().Execute()
	if shutdownTracer != nil {
		if shutdownErr := shutdownTracer(context.Background()); shutdownErr != nil {
			slog.Warn("tracer shutdown failed", "error", shutdownErr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gepa",
		Short: "Genetic-Pareto prompt optimization engine",
		Long: `gepa runs the reflective-mutation and merge optimization loop against a
labeled dataset, tracking an always-improving Pareto front of candidate
programs and persisting progress so a run can be interrupted and resumed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			slog.SetLogLoggerLevel(slog.LevelInfo)

			shutdown, err := tracing.InitTracer("gepa")
			if err != nil {
				return fmt.Errorf("init tracer: %w", err)
			}
			shutdownTracer = shutdown
			return nil
		},
	}

	root.AddCommand(runCmd(), resumeCmd(), showCmd(), serveCmd(), versionCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("gepa version %s (commit %s, built %s)\n", version, commit, buildDate)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("reflection_lm.provider: %s\n", cfg.ReflectionLM.Provider)
			fmt.Printf("reflection_lm.url:      %s\n", cfg.ReflectionLM.URL)
			fmt.Printf("reflection_lm.model:    %s\n", cfg.ReflectionLM.Model)
			fmt.Printf("reflection_lm.api_key:  %s\n", maskSecret(cfg.ReflectionLM.APIKey))
			fmt.Printf("run.run_dir:            %s\n", cfg.Run.RunDir)
			fmt.Printf("run.seed:               %d\n", cfg.Run.Seed)
			fmt.Printf("selector.candidate:     %s\n", cfg.Selector.CandidateSelector)
			fmt.Printf("selector.component:     %s\n", cfg.Selector.ComponentSelector)
			fmt.Printf("selector.batch_sampler: %s\n", cfg.Selector.BatchSampler)
			fmt.Printf("selector.eval_policy:   %s\n", cfg.Selector.EvaluationPolicy)
			fmt.Printf("stop_when.max_calls:    %d\n", cfg.StopWhen.MaxMetricCalls)
			fmt.Printf("stop_when.timeout_s:    %d\n", cfg.StopWhen.TimeoutSeconds)
			fmt.Printf("database.postgres_url:  %s\n", boolStatus(cfg.Database.PostgresURL != ""))
			fmt.Printf("server.addr:            %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
