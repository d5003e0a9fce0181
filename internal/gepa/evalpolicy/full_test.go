package evalpolicy

import (
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
)

func TestFull_GetEvalBatchReturnsEverything(t *testing.T) {
	allIDs := []string{"a", "b", "c"}
	got := Full[string]{}.GetEvalBatch(allIDs, nil, nil, nil)

	if len(got) != 3 {
		t.Errorf("expected all 3 ids, got %v", got)
	}
}

func TestFull_GetEvalBatchReturnsDefensiveCopy(t *testing.T) {
	allIDs := []string{"a", "b"}
	got := Full[string]{}.GetEvalBatch(allIDs, nil, nil, nil)
	got[0] = "mutated"

	if allIDs[0] != "a" {
		t.Error("GetEvalBatch must not alias the caller's id slice")
	}
}

func TestFull_GetBestProgram(t *testing.T) {
	s := state.New(core.Candidate{"main": "seed"}, []string{"a"}, map[string]float64{"a": 0.4})
	if _, err := s.Admit(core.ParentIDs{0}, core.Candidate{"main": "x"}, map[string]float64{"a": 0.9}, 0); err != nil {
		t.Fatalf("admit failed: %v", err)
	}

	best, ok := Full[string]{}.GetBestProgram(s)
	if !ok {
		t.Fatal("expected a best program")
	}
	if best != 1 {
		t.Errorf("expected program 1, got %d", best)
	}
}

func TestFull_GetValsetScore(t *testing.T) {
	s := state.New(core.Candidate{"main": "seed"}, []string{"a"}, map[string]float64{"a": 0.7})
	score, ok := Full[string]{}.GetValsetScore(0, s)
	if !ok || score != 0.7 {
		t.Errorf("expected 0.7, got %v (ok=%v)", score, ok)
	}
}
