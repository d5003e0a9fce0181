package ports

import "github.com/gepa-run/gepa-engine/internal/gepa/state"

// StopCondition is a composable predicate over state, consulted at the top
// of every iteration. At least one must be configured.
type StopCondition[ID comparable] interface {
	ShouldStop(s *state.State[ID]) bool
}
