package adapterutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

func TestParallelAdapter_Evaluate_PreservesOrder(t *testing.T) {
	adapter := &ParallelAdapter[int, string, string]{
		Evaluator: func(ctx context.Context, instance int, candidate core.Candidate, captureTrace bool) (string, string, float64, error) {
			return fmt.Sprintf("out-%d", instance), fmt.Sprintf("trace-%d", instance), float64(instance), nil
		},
		Concurrency: 4,
	}

	batch := []int{0, 1, 2, 3, 4, 5, 6, 7}
	result, err := adapter.Evaluate(context.Background(), batch, core.Candidate{"main": "x"}, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	for i, v := range batch {
		if result.Outputs[i] != fmt.Sprintf("out-%d", v) {
			t.Errorf("Outputs[%d] = %q, want out-%d", i, result.Outputs[i], v)
		}
		if result.Scores[i] != float64(v) {
			t.Errorf("Scores[%d] = %v, want %v", i, result.Scores[i], v)
		}
		if result.Trajectories[i] != fmt.Sprintf("trace-%d", v) {
			t.Errorf("Trajectories[%d] = %q, want trace-%d", i, result.Trajectories[i], v)
		}
	}
}

func TestParallelAdapter_Evaluate_NoTraces(t *testing.T) {
	adapter := &ParallelAdapter[int, string, string]{
		Evaluator: func(ctx context.Context, instance int, candidate core.Candidate, captureTrace bool) (string, string, float64, error) {
			if captureTrace {
				t.Errorf("captureTrace should be false")
			}
			return "out", "", 1.0, nil
		},
	}

	result, err := adapter.Evaluate(context.Background(), []int{1, 2, 3}, core.Candidate{}, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Trajectories != nil {
		t.Errorf("Trajectories should be nil when captureTraces is false")
	}
}

func TestParallelAdapter_Evaluate_InstanceErrorBecomesZeroScore(t *testing.T) {
	adapter := &ParallelAdapter[int, string, string]{
		Evaluator: func(ctx context.Context, instance int, candidate core.Candidate, captureTrace bool) (string, string, float64, error) {
			if instance == 2 {
				return "", "", 0, fmt.Errorf("instance failure")
			}
			return "ok", "", 1.0, nil
		},
	}

	result, err := adapter.Evaluate(context.Background(), []int{1, 2, 3}, core.Candidate{}, false)
	if err != nil {
		t.Fatalf("Evaluate returned batch-level error for an instance-level failure: %v", err)
	}
	if result.Scores[1] != 0.0 {
		t.Errorf("Scores[1] (failed instance) = %v, want 0.0", result.Scores[1])
	}
	if result.Scores[0] != 1.0 || result.Scores[2] != 1.0 {
		t.Errorf("unaffected instances should keep their scores: %v", result.Scores)
	}
}

func TestParallelAdapter_MakeReflectiveDataset_Delegates(t *testing.T) {
	called := false
	adapter := &ParallelAdapter[int, string, string]{
		BuildDataset: func(ctx context.Context, candidate core.Candidate, evalBatch ports.EvaluationBatch[string, string], componentsToUpdate []string) (map[string][]map[string]any, error) {
			called = true
			return map[string][]map[string]any{"main": {{"Feedback": "ok"}}}, nil
		},
	}

	out, err := adapter.MakeReflectiveDataset(context.Background(), core.Candidate{}, ports.EvaluationBatch[string, string]{}, []string{"main"})
	if err != nil {
		t.Fatalf("MakeReflectiveDataset: %v", err)
	}
	if !called {
		t.Fatalf("BuildDataset was not invoked")
	}
	if len(out["main"]) != 1 {
		t.Errorf("expected one record for component main, got %d", len(out["main"]))
	}
}
