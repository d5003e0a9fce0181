// Package stopcond implements the composable stop-condition predicates
// from spec component L.
package stopcond

import (
	"os"
	"time"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

// MaxMetricCalls stops once the total-evaluation counter reaches N.
type MaxMetricCalls[ID comparable] struct {
	N int64
}

func (c MaxMetricCalls[ID]) ShouldStop(s *state.State[ID]) bool {
	return s.TotalEvaluations() >= c.N
}

// Timeout stops once the configured duration has elapsed since
// construction.
type Timeout[ID comparable] struct {
	deadline time.Time
}

func NewTimeout[ID comparable](d time.Duration) *Timeout[ID] {
	return &Timeout[ID]{deadline: time.Now().Add(d)}
}

func (c *Timeout[ID]) ShouldStop(_ *state.State[ID]) bool {
	return time.Now().After(c.deadline)
}

// NoImprovement stops once Patience consecutive checks have passed without
// the pool's best aggregate score increasing.
type NoImprovement[ID comparable] struct {
	Patience int

	bestSeen     float64
	haveBest     bool
	staleRounds  int
}

func NewNoImprovement[ID comparable](patience int) *NoImprovement[ID] {
	return &NoImprovement[ID]{Patience: patience}
}

func (c *NoImprovement[ID]) ShouldStop(s *state.State[ID]) bool {
	best, ok := bestAggregate(s)
	if !ok {
		return false
	}
	if !c.haveBest || best > c.bestSeen {
		c.bestSeen = best
		c.haveBest = true
		c.staleRounds = 0
		return false
	}
	c.staleRounds++
	return c.staleRounds >= c.Patience
}

func bestAggregate[ID comparable](s *state.State[ID]) (float64, bool) {
	n := s.PoolSize()
	best := 0.0
	found := false
	for i := 0; i < n; i++ {
		v, ok := s.AggregateScore(core.ProgramIdx(i))
		if !ok {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	return best, found
}

// FileStop stops once a file exists at Path — the {run_dir}/{stop_file}
// mechanism from spec 6.
type FileStop[ID comparable] struct {
	Path string
}

func (c FileStop[ID]) ShouldStop(_ *state.State[ID]) bool {
	_, err := os.Stat(c.Path)
	return err == nil
}

// ScoreThreshold stops once the pool's best aggregate score reaches
// Threshold.
type ScoreThreshold[ID comparable] struct {
	Threshold float64
}

func (c ScoreThreshold[ID]) ShouldStop(s *state.State[ID]) bool {
	best, ok := bestAggregate(s)
	return ok && best >= c.Threshold
}

// Condition is the minimal interface the combinators below compose over;
// it has the same method set as ports.StopCondition, so any Condition
// (and Any/All) also satisfies that interface.
type Condition[ID comparable] interface {
	ShouldStop(s *state.State[ID]) bool
}

// Any stops as soon as any child condition fires.
type Any[ID comparable] []Condition[ID]

func (a Any[ID]) ShouldStop(s *state.State[ID]) bool {
	for _, c := range a {
		if c.ShouldStop(s) {
			return true
		}
	}
	return false
}

// All stops only once every child condition fires.
type All[ID comparable] []Condition[ID]

func (a All[ID]) ShouldStop(s *state.State[ID]) bool {
	if len(a) == 0 {
		return false
	}
	for _, c := range a {
		if !c.ShouldStop(s) {
			return false
		}
	}
	return true
}
