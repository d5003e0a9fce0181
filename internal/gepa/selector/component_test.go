package selector

import (
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func TestRoundRobin_CyclesThroughComponents(t *testing.T) {
	seed := core.Candidate{"a": "1", "b": "2", "c": "3"}
	s := state.New(seed, nil, nil)
	rr := RoundRobin[string]{}

	var picks [][]string
	for i := 0; i < 4; i++ {
		picks = append(picks, rr.Select(s, 0, seed))
	}

	want := []string{"a", "b", "c", "a"}
	for i, w := range want {
		if len(picks[i]) != 1 || picks[i][0] != w {
			t.Errorf("pick %d: expected [%q], got %v", i, w, picks[i])
		}
	}
}

func TestRoundRobin_EmptyCandidateReturnsNil(t *testing.T) {
	seed := core.Candidate{"a": "1"}
	s := state.New(seed, nil, nil)
	rr := RoundRobin[string]{}

	if got := rr.Select(s, 0, core.Candidate{}); got != nil {
		t.Errorf("expected nil for an empty candidate, got %v", got)
	}
}

func TestAll_ReturnsEveryComponent(t *testing.T) {
	candidate := core.Candidate{"z": "1", "a": "2"}
	s := state.New(candidate, nil, nil)

	got := All[string]{}.Select(s, 0, candidate)
	want := []string{"a", "z"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("index %d: expected %q, got %q", i, w, got[i])
		}
	}
}
