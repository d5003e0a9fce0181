package textadapter

import (
	"context"
	"testing"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

type stubLM struct {
	response string
	err      error
}

func (s stubLM) Prompt(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func TestAdapter_Evaluate_ExactMatchScoresOne(t *testing.T) {
	a := New(stubLM{response: "Paris"}, "main", 0)
	candidate := core.Candidate{"main": "Answer the question."}
	batch := []Example{{ID: "1", Inputs: map[string]string{"question": "capital of France?"}, Expected: "paris"}}

	result, err := a.Evaluate(context.Background(), batch, candidate, true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Scores) != 1 || result.Scores[0] != 1.0 {
		t.Fatalf("scores = %v, want [1.0]", result.Scores)
	}
	if result.Trajectories[0].Output != "Paris" {
		t.Errorf("trajectory output = %q", result.Trajectories[0].Output)
	}
}

func TestAdapter_Evaluate_MismatchScoresZero(t *testing.T) {
	a := New(stubLM{response: "London"}, "main", 0)
	candidate := core.Candidate{"main": "Answer the question."}
	batch := []Example{{ID: "1", Inputs: map[string]string{"question": "capital of France?"}, Expected: "Paris"}}

	result, err := a.Evaluate(context.Background(), batch, candidate, false)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Scores[0] != 0.0 {
		t.Fatalf("scores = %v, want [0.0]", result.Scores)
	}
	if result.Trajectories != nil {
		t.Errorf("expected nil trajectories when captureTraces is false")
	}
}

func TestAdapter_MakeReflectiveDataset(t *testing.T) {
	a := New(stubLM{response: "Paris"}, "main", 0)
	batch := ports.EvaluationBatch[Trajectory, string]{
		Outputs:      []string{"London"},
		Scores:       []float64{0.0},
		Trajectories: []Trajectory{{Prompt: "question: capital of France?", Output: "London"}},
	}

	dataset, err := a.MakeReflectiveDataset(context.Background(), core.Candidate{"main": "x"}, batch, []string{"main"})
	if err != nil {
		t.Fatalf("MakeReflectiveDataset: %v", err)
	}
	records, ok := dataset["main"]
	if !ok || len(records) != 1 {
		t.Fatalf("dataset[main] = %v, want one record", records)
	}
	if records[0]["Generated Outputs"] != "London" {
		t.Errorf("Generated Outputs = %v", records[0]["Generated Outputs"])
	}
}
