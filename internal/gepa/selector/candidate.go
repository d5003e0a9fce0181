// Package selector implements the candidate and component selector
// variants from spec component F/G: Pareto / CurrentBest / epsilon-greedy
// candidate pickers, and RoundRobin / All component pickers.
package selector

import (
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/pareto"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func aggregateMap[ID comparable](s *state.State[ID], programs pareto.ProgramSet) map[core.ProgramIdx]float64 {
	out := make(map[core.ProgramIdx]float64, len(programs))
	for p := range programs {
		if v, ok := s.AggregateScore(p); ok {
			out[p] = v
		}
	}
	return out
}

// Pareto picks via the pareto package's frequency-weighted selection over
// the current front membership.
type Pareto[ID comparable] struct{}

func (Pareto[ID]) Select(s *state.State[ID], rng *rand.Rand) (core.ProgramIdx, error) {
	fronts := s.Fronts()
	agg := aggregateMap(s, fronts.AllPrograms())
	return pareto.FrequencyWeightedSelect(fronts, agg, rng)
}

// CurrentBest returns the ProgramIdx with the largest aggregate score,
// ties broken by larger validation coverage, then by earlier admission
// order (the lower ProgramIdx).
type CurrentBest[ID comparable] struct{}

func (CurrentBest[ID]) Select(s *state.State[ID], _ *rand.Rand) (core.ProgramIdx, error) {
	n := s.PoolSize()
	if n == 0 {
		return 0, domain.NewGEPAError(domain.ErrAdapter, "current-best selection over empty pool")
	}
	best := core.ProgramIdx(0)
	bestScore, bestOK := s.AggregateScore(0)
	bestCoverage := s.Coverage(0)
	for i := 1; i < n; i++ {
		idx := core.ProgramIdx(i)
		score, ok := s.AggregateScore(idx)
		if !ok {
			continue
		}
		coverage := s.Coverage(idx)
		switch {
		case !bestOK || score > bestScore:
			best, bestScore, bestOK, bestCoverage = idx, score, true, coverage
		case score == bestScore && coverage > bestCoverage:
			best, bestCoverage = idx, coverage
		}
	}
	return best, nil
}

// EpsilonGreedy delegates to Pareto with probability 1-epsilon, and
// otherwise draws uniformly at random over the whole pool.
type EpsilonGreedy[ID comparable] struct {
	Epsilon float64
}

func (e EpsilonGreedy[ID]) Select(s *state.State[ID], rng *rand.Rand) (core.ProgramIdx, error) {
	if rng.Float64() < e.Epsilon {
		n := s.PoolSize()
		if n == 0 {
			return 0, domain.NewGEPAError(domain.ErrAdapter, "epsilon-greedy selection over empty pool")
		}
		return core.ProgramIdx(rng.Intn(n)), nil
	}
	return Pareto[ID]{}.Select(s, rng)
}
