// Package textadapter is a ready-to-run ports.Adapter for the common case
// of optimizing a single-component text prompt against a labeled set of
// input/expected-answer pairs, calling out to a ports.ReflectionLM to
// produce each rollout. It exists so cmd/gepa's run command has something
// concrete to drive without requiring every user to hand-write an adapter
// first, and as a template for adapters over richer tasks.
package textadapter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gepa-run/gepa-engine/internal/gepa/adapterutil"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// Example is one labeled instance: free-form named inputs rendered into
// the prompt, and the expected answer string graded against the LM's
// output.
type Example struct {
	ID       string
	Inputs   map[string]string
	Expected string
}

// Trajectory is the single step captured for one instance's rollout: the
// fully rendered prompt sent to the LM and the raw text it returned.
type Trajectory struct {
	Prompt string
	Output string
}

// Adapter scores a candidate's Component instruction text by rendering it
// together with each example's inputs, sending the result to LM, and
// comparing the trimmed, case-folded output against Expected.
type Adapter struct {
	parallel *adapterutil.ParallelAdapter[Example, Trajectory, string]
}

// New builds a text adapter. Component names the single candidate
// component this adapter reads and proposes over; concurrency bounds how
// many LM calls run at once (<=0 means unbounded).
func New(lm ports.ReflectionLM, component string, concurrency int) *Adapter {
	a := &Adapter{}
	a.parallel = &adapterutil.ParallelAdapter[Example, Trajectory, string]{
		Concurrency: concurrency,
		Evaluator: func(ctx context.Context, instance Example, candidate core.Candidate, captureTrace bool) (string, Trajectory, float64, error) {
			instruction := candidate[component]
			prompt := renderPrompt(instruction, instance.Inputs)

			output, err := lm.Prompt(ctx, prompt)
			if err != nil {
				return "", Trajectory{}, 0.0, err
			}

			score := scoreExactMatch(output, instance.Expected)

			var trace Trajectory
			if captureTrace {
				trace = Trajectory{Prompt: prompt, Output: output}
			}
			return output, trace, score, nil
		},
		BuildDataset: func(ctx context.Context, candidate core.Candidate, batch ports.EvaluationBatch[Trajectory, string], componentsToUpdate []string) (map[string][]map[string]any, error) {
			return buildReflectiveDataset(componentsToUpdate, batch), nil
		},
	}
	return a
}

// Evaluate implements ports.Adapter.
func (a *Adapter) Evaluate(ctx context.Context, batch []Example, candidate core.Candidate, captureTraces bool) (ports.EvaluationBatch[Trajectory, string], error) {
	return a.parallel.Evaluate(ctx, batch, candidate, captureTraces)
}

// MakeReflectiveDataset implements ports.Adapter.
func (a *Adapter) MakeReflectiveDataset(ctx context.Context, candidate core.Candidate, evalBatch ports.EvaluationBatch[Trajectory, string], componentsToUpdate []string) (map[string][]map[string]any, error) {
	return a.parallel.MakeReflectiveDataset(ctx, candidate, evalBatch, componentsToUpdate)
}

func renderPrompt(instruction string, inputs map[string]string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")
	for _, k := range sortedKeys(inputs) {
		fmt.Fprintf(&b, "%s: %s\n", k, inputs[k])
	}
	return b.String()
}

// scoreExactMatch checks the prediction against the expected output after
// trimming surrounding whitespace and folding case, returning 1.0 or 0.0.
func scoreExactMatch(actual, expected string) float64 {
	if strings.EqualFold(strings.TrimSpace(actual), strings.TrimSpace(expected)) {
		return 1.0
	}
	return 0.0
}

func buildReflectiveDataset(components []string, batch ports.EvaluationBatch[Trajectory, string]) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(components))
	for _, component := range components {
		records := make([]map[string]any, 0, len(batch.Outputs))
		for i, output := range batch.Outputs {
			feedback := "Correct!"
			if batch.Scores[i] == 0.0 {
				feedback = fmt.Sprintf("Got: %q (score %.2f)", output, batch.Scores[i])
			}
			record := map[string]any{
				"Generated Outputs": output,
				"Feedback":          feedback,
			}
			if i < len(batch.Trajectories) {
				record["Inputs"] = batch.Trajectories[i].Prompt
			}
			records = append(records, record)
		}
		out[component] = records
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
