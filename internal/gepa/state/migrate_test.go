package state

import (
	"math"
	"testing"
)

func TestMigrateV1ToV2_DropsNaNEntries(t *testing.T) {
	legacy := legacySnapshotV1[string]{
		ValidationIDs:    []string{"a", "b", "c"},
		SparseScoresList: [][]float64{{0.1, math.NaN(), 0.3}},
		NumComponents:    1,
	}

	snap, err := migrateV1ToV2(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.SparseScores) != 1 {
		t.Fatalf("expected one program row, got %d", len(snap.SparseScores))
	}
	scores := snap.SparseScores[0]
	if scores["a"] != 0.1 || scores["c"] != 0.3 {
		t.Errorf("expected a=0.1 c=0.3, got %v", scores)
	}
	if _, ok := scores["b"]; ok {
		t.Error("NaN-marked entry should be dropped, not migrated as a zero score")
	}
}

func TestMigrateV1ToV2_IgnoresOutOfRangeRowLength(t *testing.T) {
	legacy := legacySnapshotV1[string]{
		ValidationIDs:    []string{"a"},
		SparseScoresList: [][]float64{{0.5, 0.9}}, // longer than ValidationIDs
	}

	snap, err := migrateV1ToV2(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.SparseScores[0]) != 1 {
		t.Errorf("expected only the in-range entry to migrate, got %v", snap.SparseScores[0])
	}
}

func TestMigrateV1ToV2_PreservesBookkeepingFields(t *testing.T) {
	legacy := legacySnapshotV1[string]{
		Iteration:        5,
		TotalEvaluations: 10,
		FullValEvalCount: 2,
		NumComponents:    3,
	}

	snap, err := migrateV1ToV2(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Iteration != 5 || snap.TotalEvaluations != 10 || snap.FullValEvalCount != 2 || snap.NumComponents != 3 {
		t.Errorf("expected bookkeeping fields preserved, got %+v", snap)
	}
}
