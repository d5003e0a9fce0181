package selector

import (
	"math/rand"
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func seededState(t *testing.T) *state.State[string] {
	t.Helper()
	seed := core.Candidate{"main": "seed"}
	validIDs := []string{"a", "b"}
	s := state.New(seed, validIDs, map[string]float64{"a": 0.3, "b": 0.3})
	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "better"}, map[string]float64{"a": 0.9, "b": 0.9}, 1); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	return s
}

func TestPareto_SelectsFromFrontOwner(t *testing.T) {
	s := seededState(t)
	rng := rand.New(rand.NewSource(1))

	got, err := Pareto[string]{}.Select(s, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected program 1 (strictly better on both ids), got %d", got)
	}
}

func TestCurrentBest_PicksHighestAggregate(t *testing.T) {
	s := seededState(t)
	rng := rand.New(rand.NewSource(1))

	got, err := CurrentBest[string]{}.Select(s, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected program 1 with aggregate 0.9, got %d", got)
	}
}

func TestCurrentBest_TieBrokenByCoverage(t *testing.T) {
	seed := core.Candidate{"main": "seed"}
	s := state.New(seed, []string{"a", "b", "c"}, map[string]float64{"a": 0.5})
	// Program 1 ties program 0's aggregate but covers more ids.
	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "x"}, map[string]float64{"b": 0.5, "c": 0.5}, 0); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	got, err := CurrentBest[string]{}.Select(s, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected tie broken in favor of higher coverage (program 1), got %d", got)
	}
}

func TestCurrentBest_SeedOnlyPoolNeverErrors(t *testing.T) {
	s := state.New(core.Candidate{"main": "x"}, nil, nil)
	if _, err := CurrentBest[string]{}.Select(s, nil); err != nil {
		t.Errorf("seed-only pool must not error: %v", err)
	}
}

func TestEpsilonGreedy_ZeroEpsilonAlwaysParetoLike(t *testing.T) {
	s := seededState(t)
	rng := rand.New(rand.NewSource(1))

	e := EpsilonGreedy[string]{Epsilon: 0}
	got, err := e.Select(s, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1 {
		t.Errorf("expected program 1 via pareto fallback, got %d", got)
	}
}

func TestEpsilonGreedy_OneAlwaysRandom(t *testing.T) {
	s := seededState(t)
	rng := rand.New(rand.NewSource(1))

	e := EpsilonGreedy[string]{Epsilon: 1}
	got, err := e.Select(s, rng)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if int(got) < 0 || int(got) >= s.PoolSize() {
		t.Errorf("expected a valid pool index, got %d", got)
	}
}
