package stopcond

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func newTestState(t *testing.T) *state.State[string] {
	t.Helper()
	s := state.New(core.Candidate{"main": "seed"}, []string{"a"}, map[string]float64{"a": 0.4})
	return s
}

func TestMaxMetricCalls(t *testing.T) {
	s := newTestState(t)
	c := MaxMetricCalls[string]{N: 5}

	if c.ShouldStop(s) {
		t.Error("expected not to stop before reaching N")
	}
	s.AddEvaluations(5)
	if !c.ShouldStop(s) {
		t.Error("expected to stop once total evaluations reaches N")
	}
}

func TestTimeout(t *testing.T) {
	s := newTestState(t)
	c := NewTimeout[string](20 * time.Millisecond)

	if c.ShouldStop(s) {
		t.Error("expected not to stop immediately")
	}
	time.Sleep(30 * time.Millisecond)
	if !c.ShouldStop(s) {
		t.Error("expected to stop after the deadline elapses")
	}
}

func TestNoImprovement_StopsAfterPatienceStaleRounds(t *testing.T) {
	s := newTestState(t)
	c := NewNoImprovement[string](2)

	if c.ShouldStop(s) {
		t.Error("first check establishes the baseline, should not stop")
	}
	if c.ShouldStop(s) {
		t.Error("first stale round should not yet stop (patience=2)")
	}
	if !c.ShouldStop(s) {
		t.Error("second consecutive stale round should stop")
	}
}

func TestNoImprovement_ResetsOnImprovement(t *testing.T) {
	s := newTestState(t)
	c := NewNoImprovement[string](2)

	c.ShouldStop(s) // baseline at 0.4
	c.ShouldStop(s) // stale round 1

	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "better"}, map[string]float64{"a": 0.9}, 0); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if c.ShouldStop(s) {
		t.Error("an improving score should reset the stale counter")
	}
	if c.ShouldStop(s) {
		t.Error("stale round 1 after improvement should not yet stop")
	}
	if !c.ShouldStop(s) {
		t.Error("stale round 2 after improvement should stop")
	}
}

func TestFileStop(t *testing.T) {
	s := newTestState(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "stop")
	c := FileStop[string]{Path: path}

	if c.ShouldStop(s) {
		t.Error("expected not to stop before the stop file exists")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write stop file: %v", err)
	}
	if !c.ShouldStop(s) {
		t.Error("expected to stop once the stop file exists")
	}
}

func TestScoreThreshold(t *testing.T) {
	s := newTestState(t)
	c := ScoreThreshold[string]{Threshold: 0.8}

	if c.ShouldStop(s) {
		t.Error("expected not to stop below threshold")
	}
	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "better"}, map[string]float64{"a": 0.9}, 0); err != nil {
		t.Fatalf("admit failed: %v", err)
	}
	if !c.ShouldStop(s) {
		t.Error("expected to stop once best aggregate reaches threshold")
	}
}

type alwaysStop[ID comparable] struct{}

func (alwaysStop[ID]) ShouldStop(_ *state.State[ID]) bool { return true }

type neverStop[ID comparable] struct{}

func (neverStop[ID]) ShouldStop(_ *state.State[ID]) bool { return false }

func TestAny_StopsIfAnyChildFires(t *testing.T) {
	s := newTestState(t)
	a := Any[string]{neverStop[string]{}, alwaysStop[string]{}}
	if !a.ShouldStop(s) {
		t.Error("expected Any to stop when one child fires")
	}

	none := Any[string]{neverStop[string]{}, neverStop[string]{}}
	if none.ShouldStop(s) {
		t.Error("expected Any not to stop when no child fires")
	}
}

func TestAll_StopsOnlyWhenEveryChildFires(t *testing.T) {
	s := newTestState(t)
	mixed := All[string]{alwaysStop[string]{}, neverStop[string]{}}
	if mixed.ShouldStop(s) {
		t.Error("expected All not to stop unless every child fires")
	}

	all := All[string]{alwaysStop[string]{}, alwaysStop[string]{}}
	if !all.ShouldStop(s) {
		t.Error("expected All to stop when every child fires")
	}
}

func TestAll_EmptyNeverStops(t *testing.T) {
	s := newTestState(t)
	var empty All[string]
	if empty.ShouldStop(s) {
		t.Error("expected an empty All combinator to never stop")
	}
}
