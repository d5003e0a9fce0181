// Package evalpolicy implements the Full and Incremental evaluation
// policies from spec component I.
package evalpolicy

import (
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// Full evaluates every validation id for every new program.
type Full[ID comparable] struct{}

func (Full[ID]) GetEvalBatch(allValIDs []ID, _ *state.State[ID], _ *core.ProgramIdx, _ *rand.Rand) []ID {
	return append([]ID{}, allValIDs...)
}

func (Full[ID]) GetBestProgram(s *state.State[ID]) (core.ProgramIdx, bool) {
	return bestProgram(s)
}

func (Full[ID]) GetValsetScore(programIdx core.ProgramIdx, s *state.State[ID]) (float64, bool) {
	return s.AggregateScore(programIdx)
}

// bestProgram is shared by Full and Incremental: argmax aggregate score,
// ties broken by coverage then by earlier admission order.
func bestProgram[ID comparable](s *state.State[ID]) (core.ProgramIdx, bool) {
	n := s.PoolSize()
	if n == 0 {
		return 0, false
	}
	var best core.ProgramIdx
	var bestScore float64
	var bestCoverage int
	found := false
	for i := 0; i < n; i++ {
		idx := core.ProgramIdx(i)
		score, ok := s.AggregateScore(idx)
		if !ok {
			continue
		}
		coverage := s.Coverage(idx)
		switch {
		case !found || score > bestScore:
			best, bestScore, bestCoverage, found = idx, score, coverage, true
		case score == bestScore && coverage > bestCoverage:
			best, bestCoverage = idx, coverage
		}
	}
	return best, found
}
