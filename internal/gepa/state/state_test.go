package state

import (
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
)

func newTestState() *State[string] {
	seed := core.Candidate{"main": "seed text"}
	validIDs := []string{"a", "b", "c"}
	seedScores := map[string]float64{"a": 0.5, "b": 0.5, "c": 0.5}
	return New(seed, validIDs, seedScores)
}

func TestNew_SeedIsAdmittedAsProgramZero(t *testing.T) {
	s := newTestState()

	if s.PoolSize() != 1 {
		t.Fatalf("expected pool size 1, got %d", s.PoolSize())
	}
	if !s.Parents(0).IsSeed() {
		t.Error("program 0's parent list must be the seed sentinel")
	}
	if agg, ok := s.AggregateScore(0); !ok || agg != 0.5 {
		t.Errorf("expected aggregate 0.5, got %v (ok=%v)", agg, ok)
	}
	if s.Coverage(0) != 3 {
		t.Errorf("expected coverage 3, got %d", s.Coverage(0))
	}
}

func TestAdmit_RejectsInvalidParentCount(t *testing.T) {
	s := newTestState()

	if _, err := s.Admit(core.ParentIDs{}, core.Candidate{"main": "x"}, nil, 0); err == nil {
		t.Error("expected error admitting with zero parents")
	}
	if _, err := s.Admit(core.ParentIDs{0, 0, 0}, core.Candidate{"main": "x"}, nil, 0); err == nil {
		t.Error("expected error admitting with three parents")
	}
}

func TestAdmit_RejectsOutOfRangeParent(t *testing.T) {
	s := newTestState()

	if _, err := s.Admit(core.ParentIDs{5}, core.Candidate{"main": "x"}, nil, 0); err == nil {
		t.Error("expected error admitting with an out-of-range parent index")
	}
}

func TestAdmit_RejectsUnknownValidationID(t *testing.T) {
	s := newTestState()

	scores := map[string]float64{"not-a-real-id": 1.0}
	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "x"}, scores, 0); err == nil {
		t.Error("expected error admitting a score for an unknown validation id")
	}
}

func TestAdmit_AppendsAndUpdatesFronts(t *testing.T) {
	s := newTestState()

	idx, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "better"}, map[string]float64{"a": 0.9}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Errorf("expected new index 1, got %d", idx)
	}
	if s.PoolSize() != 2 {
		t.Errorf("expected pool size 2, got %d", s.PoolSize())
	}

	fronts := s.Fronts()
	if !fronts.Programs["a"].Has(1) {
		t.Error("expected program 1 to own the front for id 'a' after a strictly better score")
	}
	if fronts.Programs["a"].Has(0) {
		t.Error("program 0 should have been displaced from front 'a'")
	}
}

func TestAdmit_ClonesInputsDefensively(t *testing.T) {
	s := newTestState()

	candidate := core.Candidate{"main": "x"}
	scores := map[string]float64{"a": 1.0}
	idx, err := s.Admit(core.ParentIDs{0}, candidate, scores, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	candidate["main"] = "mutated after admit"
	scores["a"] = 0.0

	if s.Candidate(idx)["main"] != "x" {
		t.Error("Admit must clone the candidate, not alias the caller's map")
	}
	if got, _ := s.AggregateScore(idx); got != 1.0 {
		t.Error("Admit must clone the scores, not alias the caller's map")
	}
}

func TestAggregateScore_UndefinedWhenNoScores(t *testing.T) {
	s := newTestState()
	idx, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "x"}, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := s.AggregateScore(idx); ok {
		t.Error("expected AggregateScore to report false for a program with no recorded scores")
	}
}

func TestNextComponentCursor_AdvancesModuloComponentCount(t *testing.T) {
	seed := core.Candidate{"a": "1", "b": "2", "c": "3"}
	s := New(seed, nil, nil)

	seen := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		seen = append(seen, s.NextComponentCursor(0))
	}
	want := []int{0, 1, 2, 0}
	for i, w := range want {
		if seen[i] != w {
			t.Errorf("call %d: expected cursor %d, got %d", i, w, seen[i])
		}
	}
}

func TestIncrementIteration(t *testing.T) {
	s := newTestState()
	if s.Iteration() != 0 {
		t.Fatalf("expected initial iteration 0, got %d", s.Iteration())
	}
	if got := s.IncrementIteration(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if s.Iteration() != 1 {
		t.Errorf("expected iteration 1, got %d", s.Iteration())
	}
}

func TestAddEvaluations(t *testing.T) {
	s := newTestState()
	before := s.TotalEvaluations()
	if got := s.AddEvaluations(7); got != before+7 {
		t.Errorf("expected %d, got %d", before+7, got)
	}
}

func TestGenealogy_ReturnsDefensiveCopy(t *testing.T) {
	s := newTestState()
	g := s.Genealogy()
	g[0] = append(g[0], 99)

	if len(s.Parents(0)) != 0 {
		t.Error("mutating the returned genealogy slice must not affect internal state")
	}
}
