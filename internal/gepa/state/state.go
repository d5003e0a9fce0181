// Package state holds the optimizer's mutable pool: candidates, genealogy,
// sparse validation scores, and per-example Pareto fronts. The pool
// (candidates, genealogy, scores, fronts) changes only through Admit; the
// iteration, evaluation and component-cursor counters have their own
// increment methods.
package state

import (
	"sync"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/pareto"
)

// CurrentSchemaVersion is bumped whenever the on-disk encoding changes in a
// way that requires a migration. Version 1 stored sparse scores as a
// list indexed by validation-id position; version 2 stores them keyed by
// the validation DataId itself.
const CurrentSchemaVersion = 2

// State is generic over ID, the validation/training DataId type. It is not
// safe for concurrent mutation (the engine is single-threaded cooperative);
// the RWMutex only protects concurrent read-only inspection (e.g. an HTTP
// status endpoint) against the engine's own writes.
type State[ID comparable] struct {
	mu sync.RWMutex

	candidates    []core.Candidate
	genealogy     []core.ParentIDs
	sparseScores  []map[ID]float64
	cursors       []int
	discoveryBud  []int64
	fronts        *pareto.Fronts[ID]
	numComponents int
	validIDs      map[ID]struct{}

	iteration        int64
	totalEvaluations int64
	fullValEvalCount int64
}

// New constructs a fresh State from a seed candidate already evaluated on
// the full validation set. validIDs is the universe of valid validation
// DataIds (used to reject Admit calls carrying scores for unknown ids).
func New[ID comparable](seed core.Candidate, validIDs []ID, seedScores map[ID]float64) *State[ID] {
	s := &State[ID]{
		candidates:    []core.Candidate{seed.Clone()},
		genealogy:     []core.ParentIDs{{}},
		sparseScores:  []map[ID]float64{cloneScores(seedScores)},
		cursors:       []int{0},
		discoveryBud:  []int64{0},
		fronts:        pareto.NewFronts[ID](),
		numComponents: len(seed.ComponentNames()),
		validIDs:      make(map[ID]struct{}, len(validIDs)),
	}
	for _, id := range validIDs {
		s.validIDs[id] = struct{}{}
	}
	for id, score := range seedScores {
		pareto.UpdateFront(s.fronts, id, score, 0)
	}
	s.totalEvaluations = int64(len(seedScores))
	s.fullValEvalCount = 1
	return s
}

func cloneScores[ID comparable](in map[ID]float64) map[ID]float64 {
	out := make(map[ID]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Admit is the only path that mutates the pool. parentIDs must have length
// 1 (reflective-mutation child) or 2 (merge child); every entry must index
// an already-admitted program. sparseScores' keys must all be members of
// the validation id universe the State was constructed with.
func (s *State[ID]) Admit(parentIDs core.ParentIDs, candidate core.Candidate, sparseScores map[ID]float64, discoveryBudget int64) (core.ProgramIdx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(parentIDs) != 1 && len(parentIDs) != 2 {
		return 0, domain.NewGEPAError(domain.ErrInvalidParent, "parent list must have length 1 or 2")
	}
	for _, p := range parentIDs {
		if p < 0 || int(p) >= len(s.candidates) {
			return 0, domain.NewGEPAError(domain.ErrInvalidParent, "parent index out of range")
		}
	}
	for id := range sparseScores {
		if _, ok := s.validIDs[id]; !ok {
			return 0, domain.NewGEPAError(domain.ErrUnknownDataID, "score references unknown validation id")
		}
	}

	newIdx := core.ProgramIdx(len(s.candidates))
	s.candidates = append(s.candidates, candidate.Clone())
	s.genealogy = append(s.genealogy, append(core.ParentIDs{}, parentIDs...))
	s.sparseScores = append(s.sparseScores, cloneScores(sparseScores))
	s.cursors = append(s.cursors, 0)
	s.discoveryBud = append(s.discoveryBud, discoveryBudget)

	for id, score := range sparseScores {
		pareto.UpdateFront(s.fronts, id, score, newIdx)
	}

	return newIdx, nil
}

// PoolSize returns the number of admitted programs, including the seed.
func (s *State[ID]) PoolSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates)
}

// Candidate returns a copy of the candidate at idx.
func (s *State[ID]) Candidate(idx core.ProgramIdx) core.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidates[idx].Clone()
}

// Candidates returns a copy of the full pool.
func (s *State[ID]) Candidates() []core.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Candidate, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = c.Clone()
	}
	return out
}

// Parents returns the genealogy entry for idx.
func (s *State[ID]) Parents(idx core.ProgramIdx) core.ParentIDs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(core.ParentIDs{}, s.genealogy[idx]...)
}

// Genealogy returns the full parent-list sequence.
func (s *State[ID]) Genealogy() []core.ParentIDs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.ParentIDs, len(s.genealogy))
	for i, p := range s.genealogy {
		out[i] = append(core.ParentIDs{}, p...)
	}
	return out
}

// Scores returns a copy of idx's sparse validation scores.
func (s *State[ID]) Scores(idx core.ProgramIdx) map[ID]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneScores(s.sparseScores[idx])
}

// AggregateScore returns the arithmetic mean of idx's sparse scores. The
// second return is false when idx has no recorded scores yet (undefined
// per spec; callers must check before relying on the value).
func (s *State[ID]) AggregateScore(idx core.ProgramIdx) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scores := s.sparseScores[idx]
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range scores {
		sum += v
	}
	return sum / float64(len(scores)), true
}

// Coverage returns the number of validation ids idx has been scored on.
func (s *State[ID]) Coverage(idx core.ProgramIdx) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sparseScores[idx])
}

// Fronts returns a clone of the current Pareto-front structures.
func (s *State[ID]) Fronts() *pareto.Fronts[ID] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fronts.Clone()
}

// NumComponents returns the fixed component count, established by the seed.
func (s *State[ID]) NumComponents() int {
	return s.numComponents
}

// ValidationIDs returns the universe of valid validation ids this State was
// constructed with.
func (s *State[ID]) ValidationIDs() map[ID]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[ID]struct{}, len(s.validIDs))
	for k := range s.validIDs {
		out[k] = struct{}{}
	}
	return out
}

// NextComponentCursor returns idx's current named-predictor cursor value
// and advances it modulo NumComponents(). It is the one State mutation the
// round-robin component selector is allowed, since the cursor is part of
// the per-program admission record rather than strategy-private state.
func (s *State[ID]) NextComponentCursor(idx core.ProgramIdx) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.cursors[idx]
	if s.numComponents > 0 {
		s.cursors[idx] = (cur + 1) % s.numComponents
	}
	return cur
}

// Cursor returns idx's current cursor value without advancing it.
func (s *State[ID]) Cursor(idx core.ProgramIdx) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[idx]
}

// DiscoveryBudget returns the recorded discovery budget for idx.
func (s *State[ID]) DiscoveryBudget(idx core.ProgramIdx) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.discoveryBud[idx]
}

// Iteration returns the current iteration counter i.
func (s *State[ID]) Iteration() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.iteration
}

// IncrementIteration increments and returns the iteration counter.
func (s *State[ID]) IncrementIteration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iteration++
	return s.iteration
}

// TotalEvaluations returns the cumulative per-instance evaluation counter.
func (s *State[ID]) TotalEvaluations() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalEvaluations
}

// AddEvaluations increments the cumulative evaluation counter by n and
// returns the new total. It is exported because evaluation happens outside
// Admit (during traced/verification/subsample evaluation), before the
// resulting scores are ever admitted.
func (s *State[ID]) AddEvaluations(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalEvaluations += int64(n)
	return s.totalEvaluations
}

// IncrementFullValEval increments the full-validation-eval counter.
func (s *State[ID]) IncrementFullValEval() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullValEvalCount++
	return s.fullValEvalCount
}

// FullValEvalCount returns the full-validation-eval counter.
func (s *State[ID]) FullValEvalCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullValEvalCount
}
