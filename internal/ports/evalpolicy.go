package ports

import (
	"math/rand"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// EvaluationPolicy decides which validation ids to score a candidate on
// when it has been tentatively accepted, and how to report "best so far".
// Implementations: Full, Incremental.
//
// programIdx is nil for a just-proposed, not-yet-admitted candidate (the
// common case: the engine always evaluates before admitting); it is
// non-nil when re-evaluating an already-admitted program to escalate its
// coverage (e.g. Incremental deciding to widen toward full evaluation).
type EvaluationPolicy[ID comparable] interface {
	GetEvalBatch(allValIDs []ID, s *state.State[ID], programIdx *core.ProgramIdx, rng *rand.Rand) []ID
	GetBestProgram(s *state.State[ID]) (core.ProgramIdx, bool)
	GetValsetScore(programIdx core.ProgramIdx, s *state.State[ID]) (float64, bool)
}
