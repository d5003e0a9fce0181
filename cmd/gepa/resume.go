package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func resumeCmd() *cobra.Command {
	var trainPath, valPath, seedPath, component, runID string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a run from its persisted state file in run.run_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID == "" {
				return fmt.Errorf("--run-id is required to resume a run")
			}
			if _, err := os.Stat(filepath.Join(cfg.Run.RunDir, "gepa_state.msgpack")); err != nil {
				return fmt.Errorf("no persisted state found in %s, use 'gepa run' to start a new one: %w", cfg.Run.RunDir, err)
			}
			return executeRun(cmd.Context(), runID, trainPath, valPath, seedPath, component)
		},
	}

	cmd.Flags().StringVar(&trainPath, "train", "", "path to the training set JSON file (required)")
	cmd.Flags().StringVar(&valPath, "val", "", "path to the validation set JSON file (required)")
	cmd.Flags().StringVar(&seedPath, "seed", "", "path to the seed candidate JSON file (required, ignored once state is loaded)")
	cmd.Flags().StringVar(&component, "component", "main", "name of the component this adapter reads and proposes over")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier to resume (required)")
	_ = cmd.MarkFlagRequired("train")
	_ = cmd.MarkFlagRequired("val")
	_ = cmd.MarkFlagRequired("seed")
	_ = cmd.MarkFlagRequired("run-id")

	return cmd
}
