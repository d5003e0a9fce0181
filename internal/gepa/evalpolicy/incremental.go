package evalpolicy

import (
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// Incremental evaluates a fresh candidate on an initial sample of size S0,
// and on each subsequent visit to the same program returns the
// already-evaluated ids plus an increment of size DeltaS, capped at SMax.
// Once the partial aggregate reaches Threshold, it escalates to a full
// evaluation.
type Incremental[ID comparable] struct {
	S0        int
	DeltaS    int
	SMax      int
	Threshold float64
}

func (p Incremental[ID]) GetEvalBatch(allValIDs []ID, s *state.State[ID], programIdx *core.ProgramIdx, rng *rand.Rand) []ID {
	if programIdx == nil {
		return sampleN(allValIDs, p.S0, rng)
	}

	already := s.Scores(*programIdx)
	alreadyIDs := make([]ID, 0, len(already))
	for id := range already {
		alreadyIDs = append(alreadyIDs, id)
	}
	if len(alreadyIDs) >= len(allValIDs) {
		return append([]ID{}, allValIDs...)
	}

	if len(already) > 0 {
		var sum float64
		for _, v := range already {
			sum += v
		}
		if sum/float64(len(already)) >= p.Threshold {
			return append([]ID{}, allValIDs...)
		}
	}

	target := len(alreadyIDs) + p.DeltaS
	if target > p.SMax {
		target = p.SMax
	}
	if target > len(allValIDs) {
		target = len(allValIDs)
	}
	need := target - len(alreadyIDs)
	if need <= 0 {
		return alreadyIDs
	}

	remaining := make([]ID, 0, len(allValIDs)-len(alreadyIDs))
	for _, id := range allValIDs {
		if _, ok := already[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	addition := sampleN(remaining, need, rng)
	return append(alreadyIDs, addition...)
}

func (Incremental[ID]) GetBestProgram(s *state.State[ID]) (core.ProgramIdx, bool) {
	return bestProgram(s)
}

func (Incremental[ID]) GetValsetScore(programIdx core.ProgramIdx, s *state.State[ID]) (float64, bool) {
	return s.AggregateScore(programIdx)
}

// sampleN draws up to n ids from pool without replacement, shuffled
// deterministically by rng.
func sampleN[ID any](pool []ID, n int, rng *rand.Rand) []ID {
	if n > len(pool) {
		n = len(pool)
	}
	if n <= 0 {
		return nil
	}
	shuffled := append([]ID{}, pool...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
