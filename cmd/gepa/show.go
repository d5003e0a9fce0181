package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func showCmd() *cobra.Command {
	var showCandidate int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the Pareto front and best program for the run in run.run_dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := state.NewFileStore[int](cfg.Run.RunDir, "")
			if store == nil {
				return fmt.Errorf("run.run_dir is not configured")
			}
			st, ok, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load state: %w", err)
			}
			if !ok {
				return fmt.Errorf("no persisted state found in %s", cfg.Run.RunDir)
			}

			if showCandidate >= 0 {
				return printCandidate(st, core.ProgramIdx(showCandidate))
			}
			printFront(st)
			return nil
		},
	}

	cmd.Flags().IntVar(&showCandidate, "candidate", -1, "print the full text of one program index instead of the front summary")
	return cmd
}

func printFront(st *state.State[int]) {
	w := tabwriter.NewWriter(cmdOut, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "IDX\tPARENTS\tAGGREGATE SCORE\tCOVERAGE\tDISCOVERY BUDGET")
	fronts := st.Fronts()
	for i := 0; i < st.PoolSize(); i++ {
		idx := core.ProgramIdx(i)
		agg, _ := st.AggregateScore(idx)
		fmt.Fprintf(w, "%d\t%v\t%.4f\t%d\t%d\n", i, st.Parents(idx), agg, st.Coverage(idx), st.DiscoveryBudget(idx))
	}
	_ = w.Flush()

	best := bestProgramIdx(st)
	bestScore, _ := st.AggregateScore(best)
	fmt.Fprintf(cmdOut, "\nbest program: #%d (score %.4f)\n", best, bestScore)
	fmt.Fprintf(cmdOut, "pareto front members: %d\n", len(fronts.AllPrograms()))
}

func printCandidate(st *state.State[int], idx core.ProgramIdx) error {
	if int(idx) < 0 || int(idx) >= st.PoolSize() {
		return fmt.Errorf("program index %d out of range [0, %d)", idx, st.PoolSize())
	}
	candidate := st.Candidate(idx)
	w := tabwriter.NewWriter(cmdOut, 0, 2, 2, ' ', 0)
	for _, name := range sortedComponentNames(candidate) {
		fmt.Fprintf(w, "--- %s ---\n%s\n\n", name, candidate[name])
	}
	return w.Flush()
}

func sortedComponentNames(c core.Candidate) []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
