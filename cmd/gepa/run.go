package main

import (
	"context"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gepa-run/gepa-engine/internal/adapters/id"
	"github.com/gepa-run/gepa-engine/internal/domain/models"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

func runCmd() *cobra.Command {
	var trainPath, valPath, seedPath, component, runID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new optimization run to completion or a stop condition",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				runID = id.New().GenerateRunID()
			}
			return executeRun(cmd.Context(), runID, trainPath, valPath, seedPath, component)
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "path to the training set JSON file (required)")
	cmd.Flags().StringVar(&valPath, "val", "", "path to the validation set JSON file (required)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "path to the seed candidate JSON file, {\"component\": \"text\", ...} (required)")
	cmd.Flags().StringVar(&component, "component", "main", "name of the component this adapter reads and proposes over")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier, generated if omitted")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("val")
	_ = cmd.MarkFlagRequired("seed")

	return cmd
}

// executeRun wires an engine, optionally records it in the supplementary
// run-history database, runs it to completion, and prints a summary.
func executeRun(ctx context.Context, runID, trainPath, valPath, seedPath, component string) error {
	db, err := initDB(ctx)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	runRepo := newRunRepository(db)

	broadcaster, publisher := newBroadcasterAndPublisher()
	defer broadcaster.Close(runID)

	eng, err := buildEngine(runID, trainPath, valPath, seedPath, component, publisher)
	if err != nil {
		return err
	}

	if runRepo != nil {
		run := models.NewRun(runID, runID, "textadapter")
		if err := runRepo.CreateRun(ctx, run); err != nil {
			slog.Warn("failed to record run in history store", "run_id", runID, "error", err)
		}
	}

	if err := eng.Init(ctx); err != nil {
		recordFailure(ctx, runRepo, runID, err)
		return fmt.Errorf("initialize engine: %w", err)
	}

	runErr := eng.Run(ctx)

	st := eng.State()
	if runRepo != nil {
		persistCandidates(ctx, runRepo, runID, eng)
		if runErr != nil {
			recordFailure(ctx, runRepo, runID, runErr)
		} else {
			best, _ := st.AggregateScore(bestProgramIdx(st))
			if err := runRepo.CompleteRun(ctx, runID, best); err != nil {
				slog.Warn("failed to mark run completed", "run_id", runID, "error", err)
			}
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}

	printSummary(runID, eng)
	return nil
}

func recordFailure(ctx context.Context, repo ports.RunRepository, runID string, cause error) {
	if repo == nil {
		return
	}
	if err := repo.FailRun(ctx, runID, cause.Error()); err != nil {
		slog.Warn("failed to mark run failed", "run_id", runID, "error", err)
	}
}

func printSummary(runID string, eng *textEngine) {
	st := eng.State()
	w := tabwriter.NewWriter(cmdOut, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "RUN\t%s\n", runID)
	fmt.Fprintf(w, "ITERATIONS\t%d\n", st.Iteration())
	fmt.Fprintf(w, "EVALUATIONS\t%d\n", st.TotalEvaluations())
	fmt.Fprintf(w, "POOL SIZE\t%d\n", st.PoolSize())
	bestIdx := bestProgramIdx(st)
	bestScore, _ := st.AggregateScore(bestIdx)
	fmt.Fprintf(w, "BEST PROGRAM\t#%d (score %.4f)\n", bestIdx, bestScore)
	_ = w.Flush()
}
