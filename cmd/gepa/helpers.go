package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/gepa-run/gepa-engine/internal/domain/models"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// cmdOut is where tabwriter-formatted summaries go; a var rather than a
// literal os.Stdout so tests could redirect it.
var cmdOut = os.Stdout

// bestProgramIdx returns the pool member with the highest aggregate score,
// ties broken by earlier admission order. Returns 0 for an empty pool.
func bestProgramIdx(s *state.State[int]) core.ProgramIdx {
	n := s.PoolSize()
	var best core.ProgramIdx
	var bestScore float64
	found := false
	for i := 0; i < n; i++ {
		idx := core.ProgramIdx(i)
		score, ok := s.AggregateScore(idx)
		if !ok {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = idx, score, true
		}
	}
	return best
}

// persistCandidates mirrors every admitted program in the engine's live
// state, together with its per-instance validation scores, into the
// supplementary run-history store, for CLI/HTTP visibility independent of
// the state snapshot file. Each candidate and its evaluation rows are
// saved atomically via SaveCandidateWithEvaluations.
func persistCandidates(ctx context.Context, repo ports.RunRepository, runID string, eng *textEngine) {
	st := eng.State()
	gen := idGenerator()
	for i := 0; i < st.PoolSize(); i++ {
		idx := core.ProgramIdx(i)
		parents := st.Parents(idx)
		agg, _ := st.AggregateScore(idx)
		record := models.NewCandidateRecord(
			gen.GenerateCandidateRecordID(),
			runID,
			i,
			0,
			parentIdxInts(parents),
			"admitted",
			map[string]string(st.Candidate(idx)),
		)
		record.AggregateScore = agg
		record.Coverage = st.Coverage(idx)
		record.DiscoveryBudget = st.DiscoveryBudget(idx)

		scores := st.Scores(idx)
		evals := make([]*models.EvaluationRecord, 0, len(scores))
		for dataID, score := range scores {
			evals = append(evals, models.NewEvaluationRecord(
				gen.GenerateEvaluationRecordID(),
				record.ID,
				runID,
				fmt.Sprint(dataID),
				"full_eval",
				score,
				true,
				0,
			))
		}

		if err := repo.SaveCandidateWithEvaluations(ctx, record, evals); err != nil {
			slog.Warn("failed to persist candidate", "run_id", runID, "program_idx", i, "error", err)
		}
	}
}

func parentIdxInts(parents core.ParentIDs) []int {
	out := make([]int, len(parents))
	for i, p := range parents {
		out[i] = int(p)
	}
	return out
}
