// Package engine orchestrates the optimization loop from spec component M:
// initialization, the merge/reflective phase gate, the full-eval-and-admit
// path, persistence, and event emission.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/proposer/merge"
	"github.com/gepa-run/gepa-engine/internal/gepa/proposer/reflective"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// Config bundles every collaborator the engine needs. It is intentionally
// a flat struct, built by the config/wiring layer (internal/config,
// cmd/gepa), not by the engine itself.
type Config[ID comparable, D any, T any, R any] struct {
	RunID string

	SeedCandidate core.Candidate
	TrainLoader   ports.DataLoader[ID, D]
	ValLoader     ports.DataLoader[ID, D]
	Adapter       ports.Adapter[D, T, R]

	EvalPolicy         ports.EvaluationPolicy[ID]
	ReflectionProposer *reflective.Proposer[ID, D, T, R]
	MergeProposer      *merge.Proposer[ID, D, T, R]
	StopCondition      ports.StopCondition[ID]

	StateStore     ports.StateStore[ID]
	EventPublisher ports.EventPublisher

	Seed             int64
	RaiseOnException bool
}

// Engine is single-threaded cooperative: one iteration runs to completion
// before the next begins, and it owns the State exclusively while running.
type Engine[ID comparable, D any, T any, R any] struct {
	cfg   Config[ID, D, T, R]
	state *state.State[ID]
	log   *slog.Logger

	stopRequested atomic.Bool
}

func New[ID comparable, D any, T any, R any](cfg Config[ID, D, T, R]) (*Engine[ID, D, T, R], error) {
	if cfg.StopCondition == nil {
		return nil, domain.NewGEPAError(domain.ErrNoStopCondition, "at least one stop condition is required")
	}
	if cfg.Adapter == nil {
		return nil, domain.NewGEPAError(domain.ErrInvalidConfiguration, "adapter is required")
	}
	if cfg.EventPublisher == nil {
		cfg.EventPublisher = ports.NoopPublisher{}
	}
	return &Engine[ID, D, T, R]{
		cfg: cfg,
		log: slog.With("run_id", cfg.RunID),
	}, nil
}

// RequestStop sets the cooperative stop flag, observed at the top of the
// next iteration.
func (e *Engine[ID, D, T, R]) RequestStop() {
	e.stopRequested.Store(true)
}

// State exposes read-only access to the live state, e.g. for an HTTP
// status endpoint.
func (e *Engine[ID, D, T, R]) State() *state.State[ID] {
	return e.state
}

func (e *Engine[ID, D, T, R]) shouldStop() bool {
	return e.stopRequested.Load() || e.cfg.StopCondition.ShouldStop(e.state)
}

// Init performs spec 4.M's initialization: load persisted state if present,
// otherwise evaluate the seed candidate on the full validation set and
// construct fresh state. It emits the one-time base_program_metrics event.
func (e *Engine[ID, D, T, R]) Init(ctx context.Context) error {
	if e.cfg.StateStore != nil {
		loaded, ok, err := e.cfg.StateStore.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			e.state = loaded
			e.log.Info("resumed state from persistence", "pool_size", loaded.PoolSize())
			agg, _ := loaded.AggregateScore(0)
			e.cfg.EventPublisher.PublishBaseMetrics(ports.BaseProgramMetricsEvent{
				RunID:           e.cfg.RunID,
				Iteration:       1,
				SeedAggregate:   agg,
				ValidationCount: loaded.Coverage(0),
				Timestamp:       time.Now().UTC(),
			})
			return nil
		}
	}

	valIDs := e.cfg.ValLoader.AllIDs()
	valInstances, err := e.cfg.ValLoader.Fetch(valIDs)
	if err != nil {
		return domain.WrapAdapterError(err)
	}
	result, err := e.cfg.Adapter.Evaluate(ctx, valInstances, e.cfg.SeedCandidate, false)
	if err != nil {
		return domain.WrapAdapterError(err)
	}
	seedScores := make(map[ID]float64, len(valIDs))
	for i, id := range valIDs {
		seedScores[id] = result.Scores[i]
	}
	e.state = state.New[ID](e.cfg.SeedCandidate, valIDs, seedScores)

	agg, _ := e.state.AggregateScore(0)
	e.cfg.EventPublisher.PublishBaseMetrics(ports.BaseProgramMetricsEvent{
		RunID:           e.cfg.RunID,
		Iteration:       1,
		SeedAggregate:   agg,
		ValidationCount: len(valIDs),
		Timestamp:       time.Now().UTC(),
	})
	return nil
}

// Run drives iterations until should_stop fires or a fatal error occurs.
// On a fatal error it returns the error together with the engine's last-
// persisted state (still readable via State()); on a non-fatal adapter
// error with RaiseOnException=false, it logs and continues, so the final
// state reflects every iteration that completed cleanly.
func (e *Engine[ID, D, T, R]) Run(ctx context.Context) error {
	defer e.terminate(ctx)

	for !e.shouldStop() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.iterate(ctx); err != nil {
			e.log.Error("iteration failed", "iteration", e.state.Iteration(), "error", err)
			if e.cfg.RaiseOnException {
				return err
			}
		}
	}
	return nil
}

func (e *Engine[ID, D, T, R]) iterate(ctx context.Context) error {
	if e.cfg.StateStore != nil {
		if err := e.cfg.StateStore.Save(ctx, e.state); err != nil {
			e.log.Warn("periodic state save failed", "error", err)
		}
	}
	iteration := e.state.IncrementIteration()
	salt := iteration

	if e.cfg.MergeProposer != nil && e.cfg.MergeProposer.CanPropose() {
		rng := rand.New(rand.NewSource(e.cfg.Seed + salt*7919))
		proposal, err := e.cfg.MergeProposer.Propose(ctx, e.state, e.cfg.ValLoader, rng)
		if err != nil {
			return err
		}
		if proposal != nil {
			// A present proposal, accepted or rejected, consumes the
			// iteration; the reflective phase is mutually exclusive with it.
			accepted := core.SumFloat64(proposal.ScoresAfter) >= core.MaxFloat64(proposal.ScoresBefore...)
			if accepted {
				return e.fullEvalAndAdmit(ctx, proposal)
			}
			return nil
		}
		// No proposal (too few dominators, no desirable triplet, insufficient
		// overlap, or a dedup-blocked descriptor) falls through to the
		// reflective phase rather than idling the iteration.
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed + salt*104729))
	proposal, err := e.cfg.ReflectionProposer.Propose(ctx, e.state, e.cfg.TrainLoader, rng)
	if err != nil {
		return err
	}
	if proposal == nil {
		return nil
	}
	accepted := core.SumFloat64(proposal.ScoresAfter) > core.SumFloat64(proposal.ScoresBefore)
	if !accepted {
		return nil
	}
	if err := e.fullEvalAndAdmit(ctx, proposal); err != nil {
		return err
	}
	if e.cfg.MergeProposer != nil {
		e.cfg.MergeProposer.Schedule()
	}
	return nil
}

func (e *Engine[ID, D, T, R]) fullEvalAndAdmit(ctx context.Context, proposal *core.Proposal[ID]) error {
	discoveryBudget := e.state.TotalEvaluations()

	allValIDs := e.cfg.ValLoader.AllIDs()
	evalIDs := e.cfg.EvalPolicy.GetEvalBatch(allValIDs, e.state, nil, rand.New(rand.NewSource(e.cfg.Seed+discoveryBudget)))

	instances, err := e.cfg.ValLoader.Fetch(evalIDs)
	if err != nil {
		return domain.WrapAdapterError(err)
	}
	result, err := e.cfg.Adapter.Evaluate(ctx, instances, proposal.Child, false)
	if err != nil {
		return domain.WrapAdapterError(err)
	}
	e.state.IncrementFullValEval()
	e.state.AddEvaluations(len(evalIDs))

	scores := make(map[ID]float64, len(evalIDs))
	for i, id := range evalIDs {
		scores[id] = result.Scores[i]
	}

	newIdx, err := e.state.Admit(proposal.ParentIDs, proposal.Child, scores, discoveryBudget)
	if err != nil {
		return err
	}

	fronts := e.state.Fronts()
	frontBest := make(map[string]float64, len(fronts.Best))
	frontMembership := make(map[string][]int, len(fronts.Programs))
	for id, v := range fronts.Best {
		frontBest[idToString(id)] = v
	}
	for id, progs := range fronts.Programs {
		frontMembership[idToString(id)] = toIntSlice(progs.Slice())
	}
	aggregate, _ := e.state.AggregateScore(newIdx)
	bestIdx, _ := e.cfg.EvalPolicy.GetBestProgram(e.state)

	evaluatedIDStrings := make([]string, len(evalIDs))
	for i, id := range evalIDs {
		evaluatedIDStrings[i] = idToString(id)
	}

	e.cfg.EventPublisher.PublishIterationComplete(ports.IterationCompleteEvent{
		RunID:           e.cfg.RunID,
		Iteration:       e.state.Iteration(),
		NewProgramIdx:   int(newIdx),
		EvaluatedIDs:    evaluatedIDStrings,
		FrontBest:       frontBest,
		FrontMembership: frontMembership,
		AggregateScore:  aggregate,
		BestProgramIdx:  int(bestIdx),
		DiscoveryBudget: discoveryBudget,
		Tag:             proposal.Tag,
		Timestamp:       time.Now().UTC(),
	})
	return nil
}

func (e *Engine[ID, D, T, R]) terminate(ctx context.Context) {
	if e.cfg.StateStore != nil {
		if err := e.cfg.StateStore.Save(ctx, e.state); err != nil {
			e.log.Warn("final state save failed", "error", err)
		}
	}
	reason := "stop_condition"
	if e.stopRequested.Load() {
		reason = "request_stop"
	}
	e.cfg.EventPublisher.PublishTerminal(ports.TerminalEvent{
		RunID:     e.cfg.RunID,
		Iteration: e.state.Iteration(),
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

func idToString(id any) string {
	type stringer interface{ String() string }
	if s, ok := id.(stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", id)
}

func toIntSlice(idxs []core.ProgramIdx) []int {
	out := make([]int, len(idxs))
	for i, p := range idxs {
		out[i] = int(p)
	}
	return out
}
