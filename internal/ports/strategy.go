package ports

import (
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// CandidateSelector picks one candidate from the current pool to mutate
// next. Implementations: Pareto (frequency-weighted), CurrentBest,
// epsilon-greedy.
type CandidateSelector[ID comparable] interface {
	Select(s *state.State[ID], rng *rand.Rand) (core.ProgramIdx, error)
}

// ComponentSelector picks which component names of a chosen program to
// mutate this iteration. Implementations: RoundRobin, All.
type ComponentSelector[ID comparable] interface {
	Select(s *state.State[ID], idx core.ProgramIdx, candidate core.Candidate) []string
}

// BatchSampler picks the next window of training DataIds for a minibatch.
// Implementations: simple circular, epoch-shuffled.
type BatchSampler[ID comparable] interface {
	Next(allIDs []ID) []ID
}
