package selector

import (
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// RoundRobin returns the single component name currently indicated by the
// chosen program's cursor, then advances that cursor modulo the component
// count.
type RoundRobin[ID comparable] struct{}

func (RoundRobin[ID]) Select(s *state.State[ID], idx core.ProgramIdx, candidate core.Candidate) []string {
	names := candidate.ComponentNames()
	if len(names) == 0 {
		return nil
	}
	cursor := s.NextComponentCursor(idx)
	return []string{names[cursor%len(names)]}
}

// All returns every component name.
type All[ID comparable] struct{}

func (All[ID]) Select(_ *state.State[ID], _ core.ProgramIdx, candidate core.Candidate) []string {
	return candidate.ComponentNames()
}
