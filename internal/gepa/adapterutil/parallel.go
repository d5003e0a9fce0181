// Package adapterutil provides helpers for building ports.Adapter
// implementations: in particular a wrapper that fans a per-instance
// evaluation function out across a worker pool while preserving the
// input batch's order in its output.
package adapterutil

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// InstanceEvaluator scores one data instance against a candidate. It is the
// single-instance unit of work that ParallelAdapter fans out across a
// worker pool. A non-nil error from InstanceEvaluator is treated as an
// instance-level failure: ParallelAdapter converts it to a zero score
// rather than failing the batch.
type InstanceEvaluator[D any, T any, R any] func(ctx context.Context, instance D, candidate core.Candidate, captureTrace bool) (output R, trace T, score float64, err error)

// ReflectiveDatasetBuilder builds the per-component feedback records for
// one evaluated batch. It is invoked once per MakeReflectiveDataset call;
// it matches ports.Adapter's own
// MakeReflectiveDataset signature so ParallelAdapter can delegate directly.
type ReflectiveDatasetBuilder[D any, T any, R any] func(ctx context.Context, candidate core.Candidate, evalBatch ports.EvaluationBatch[T, R], componentsToUpdate []string) (map[string][]map[string]any, error)

// ParallelAdapter wraps a per-instance evaluator and a reflective-dataset
// builder into a ports.Adapter, running instance evaluations concurrently
// with a bounded worker count while preserving input order in its output,
// the way the rest of this codebase fans concurrent work out with
// golang.org/x/sync/errgroup and re-assembles it by index rather than by
// arrival order.
type ParallelAdapter[D any, T any, R any] struct {
	Evaluator   InstanceEvaluator[D, T, R]
	BuildDataset ReflectiveDatasetBuilder[D, T, R]
	Concurrency int // <= 0 means unbounded (one goroutine per instance)
}

// Evaluate implements ports.Adapter.
func (a *ParallelAdapter[D, T, R]) Evaluate(ctx context.Context, batch []D, candidate core.Candidate, captureTraces bool) (ports.EvaluationBatch[T, R], error) {
	n := len(batch)
	outputs := make([]R, n)
	scores := make([]float64, n)
	var traces []T
	if captureTraces {
		traces = make([]T, n)
	}

	g, gCtx := errgroup.WithContext(ctx)
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}

	for i, instance := range batch {
		i, instance := i, instance
		g.Go(func() error {
			out, trace, score, err := a.Evaluator(gCtx, instance, candidate, captureTraces)
			if err != nil {
				scores[i] = 0.0
				return nil
			}
			outputs[i] = out
			scores[i] = score
			if captureTraces {
				traces[i] = trace
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ports.EvaluationBatch[T, R]{}, err
	}

	return ports.EvaluationBatch[T, R]{
		Outputs:      outputs,
		Scores:       scores,
		Trajectories: traces,
	}, nil
}

// MakeReflectiveDataset implements ports.Adapter by delegating to the
// configured builder.
func (a *ParallelAdapter[D, T, R]) MakeReflectiveDataset(ctx context.Context, candidate core.Candidate, evalBatch ports.EvaluationBatch[T, R], componentsToUpdate []string) (map[string][]map[string]any, error) {
	return a.BuildDataset(ctx, candidate, evalBatch, componentsToUpdate)
}
