package ports

import (
	"context"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
)

// EvaluationBatch is what an Adapter returns from Evaluate: scores, the
// rollout outputs, and — when tracing was requested — one trajectory per
// instance. The three slices (plus the input batch) must all share the
// same length and order; implementations that parallelize internally must
// still return results in input order.
type EvaluationBatch[T any, R any] struct {
	Outputs      []R
	Scores       []float64
	Trajectories []T // nil when capture_traces was false
}

// Adapter is the user-supplied bridge between the engine and the system
// being optimized. It is generic over three opaque types the core never
// inspects: D (a data instance), T (a trajectory), and R (a rollout
// output).
//
// Evaluate must not mutate batch or candidate. It must return the failure
// score (by convention 0.0) for individual instance errors rather than
// fail the whole call; only a batch-level error (the adapter itself being
// unreachable, for instance) should be returned as err.
type Adapter[D any, T any, R any] interface {
	Evaluate(ctx context.Context, batch []D, candidate core.Candidate, captureTraces bool) (EvaluationBatch[T, R], error)

	// MakeReflectiveDataset builds, for each requested component, an
	// ordered list of feedback records. A Record is any JSON-serializable
	// value; the default instruction-proposal routine expects (but does
	// not require) the keys "Inputs", "Generated Outputs", "Feedback".
	MakeReflectiveDataset(ctx context.Context, candidate core.Candidate, evalBatch EvaluationBatch[T, R], componentsToUpdate []string) (map[string][]map[string]any, error)
}

// TextProposer is the adapter's optional propose_new_texts hook. When an
// Adapter also implements TextProposer, the reflective-mutation proposer
// calls it instead of the default instruction-proposal routine.
type TextProposer interface {
	ProposeNewTexts(ctx context.Context, candidate core.Candidate, reflectiveDataset map[string][]map[string]any, componentsToUpdate []string) (map[string]string, error)
}
