package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gepa-run/gepa-engine/internal/adapters/eventbus"
	"github.com/gepa-run/gepa-engine/internal/adapters/id"
	"github.com/gepa-run/gepa-engine/internal/adapters/llm"
	"github.com/gepa-run/gepa-engine/internal/adapters/postgres"
	"github.com/gepa-run/gepa-engine/internal/domain"
	"github.com/gepa-run/gepa-engine/internal/gepa/core"
	"github.com/gepa-run/gepa-engine/internal/gepa/engine"
	"github.com/gepa-run/gepa-engine/internal/gepa/evalpolicy"
	"github.com/gepa-run/gepa-engine/internal/gepa/loader"
	"github.com/gepa-run/gepa-engine/internal/gepa/proposer/merge"
	"github.com/gepa-run/gepa-engine/internal/gepa/proposer/reflective"
	"github.com/gepa-run/gepa-engine/internal/gepa/sampler"
	"github.com/gepa-run/gepa-engine/internal/gepa/selector"
	"github.com/gepa-run/gepa-engine/internal/gepa/state"
	"github.com/gepa-run/gepa-engine/internal/gepa/stopcond"
	"github.com/gepa-run/gepa-engine/internal/gepa/textadapter"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// textEngine is the concrete instantiation cmd/gepa drives: int-indexed
// in-memory datasets of textadapter.Example, scored through an LM rollout.
type textEngine = engine.Engine[int, textadapter.Example, textadapter.Trajectory, string]

// buildEngine assembles one engine run from the resolved configuration and
// the CLI's dataset/seed/component flags. It is shared by run and resume
// since both drive the same kind of engine, differing only in whether a
// state file is expected to already exist.
func buildEngine(runID, trainPath, valPath, seedPath, component string, publisher ports.EventPublisher) (*textEngine, error) {
	seed, err := loadSeedCandidate(seedPath)
	if err != nil {
		return nil, err
	}
	if _, ok := seed[component]; !ok {
		return nil, fmt.Errorf("seed candidate has no component %q", component)
	}

	trainExamples, err := loadDataset(trainPath)
	if err != nil {
		return nil, err
	}
	valExamples, err := loadDataset(valPath)
	if err != nil {
		return nil, err
	}

	reflectionLM, err := llm.New(cfg.ReflectionLM)
	if err != nil {
		return nil, fmt.Errorf("build reflection LM: %w", err)
	}

	adapter := textadapter.New(reflectionLM, component, 0)

	candidateSelector, err := buildCandidateSelector()
	if err != nil {
		return nil, err
	}
	componentSelector, err := buildComponentSelector()
	if err != nil {
		return nil, err
	}
	batchSampler, err := buildBatchSampler()
	if err != nil {
		return nil, err
	}
	evalPolicy, err := buildEvalPolicy()
	if err != nil {
		return nil, err
	}
	stopCondition := buildStopCondition()

	reflectionProposer := &reflective.Proposer[int, textadapter.Example, textadapter.Trajectory, string]{
		Adapter:           adapter,
		CandidateSelector: candidateSelector,
		ComponentSelector: componentSelector,
		BatchSampler:      batchSampler,
		LM:                reflectionLM,
		PerfectScore:      1.0,
		SkipPerfectScore:  true,
	}
	mergeProposer := merge.New[int, textadapter.Example, textadapter.Trajectory, string](
		adapter, cfg.Run.UseMerge, cfg.Run.MaxMergeInvocations, cfg.Run.ValOverlapFloor,
	)

	var stateStore ports.StateStore[int]
	if fs := state.NewFileStore[int](cfg.Run.RunDir, ""); fs != nil {
		stateStore = fs
	}

	eng, err := engine.New(engine.Config[int, textadapter.Example, textadapter.Trajectory, string]{
		RunID:              runID,
		SeedCandidate:      core.Candidate(seed),
		TrainLoader:        loader.NewInMemory(trainExamples),
		ValLoader:          loader.NewInMemory(valExamples),
		Adapter:            adapter,
		EvalPolicy:         evalPolicy,
		ReflectionProposer: reflectionProposer,
		MergeProposer:      mergeProposer,
		StopCondition:      stopCondition,
		StateStore:         stateStore,
		EventPublisher:     publisher,
		Seed:               cfg.Run.Seed,
		RaiseOnException:   cfg.Run.RaiseOnException,
	})
	if err != nil {
		return nil, fmt.Errorf("construct engine: %w", err)
	}
	return eng, nil
}

func buildCandidateSelector() (ports.CandidateSelector[int], error) {
	switch cfg.Selector.CandidateSelector {
	case "pareto":
		return selector.Pareto[int]{}, nil
	case "current_best":
		return selector.CurrentBest[int]{}, nil
	case "epsilon_greedy":
		return selector.EpsilonGreedy[int]{Epsilon: cfg.Selector.Epsilon}, nil
	default:
		return nil, domain.NewGEPAError(domain.ErrInvalidSelectorName, "unknown candidate_selector "+cfg.Selector.CandidateSelector)
	}
}

func buildComponentSelector() (ports.ComponentSelector[int], error) {
	switch cfg.Selector.ComponentSelector {
	case "round_robin":
		return selector.RoundRobin[int]{}, nil
	case "all":
		return selector.All[int]{}, nil
	default:
		return nil, domain.NewGEPAError(domain.ErrInvalidSelectorName, "unknown component_selector "+cfg.Selector.ComponentSelector)
	}
}

func buildBatchSampler() (ports.BatchSampler[int], error) {
	minibatch := cfg.Selector.MinibatchSize
	if minibatch < 1 {
		minibatch = 1
	}
	switch cfg.Selector.BatchSampler {
	case "simple_circular":
		return sampler.NewSimpleCircular[int](minibatch), nil
	case "epoch_shuffled":
		return sampler.NewEpochShuffled[int](cfg.Run.Seed, minibatch), nil
	default:
		return nil, domain.NewGEPAError(domain.ErrInvalidSelectorName, "unknown batch_sampler "+cfg.Selector.BatchSampler)
	}
}

func buildEvalPolicy() (ports.EvaluationPolicy[int], error) {
	switch cfg.Selector.EvaluationPolicy {
	case "full":
		return evalpolicy.Full[int]{}, nil
	case "incremental":
		return evalpolicy.Incremental[int]{
			S0:        cfg.Selector.IncrementalS0,
			DeltaS:    cfg.Selector.IncrementalDeltaS,
			SMax:      cfg.Selector.IncrementalSMax,
			Threshold: cfg.Selector.IncrementalThresh,
		}, nil
	default:
		return nil, domain.NewGEPAError(domain.ErrInvalidSelectorName, "unknown evaluation_policy "+cfg.Selector.EvaluationPolicy)
	}
}

func buildStopCondition() ports.StopCondition[int] {
	var conditions stopcond.Any[int]
	if cfg.StopWhen.MaxMetricCalls > 0 {
		conditions = append(conditions, stopcond.MaxMetricCalls[int]{N: cfg.StopWhen.MaxMetricCalls})
	}
	if cfg.StopWhen.TimeoutSeconds > 0 {
		conditions = append(conditions, stopcond.NewTimeout[int](time.Duration(cfg.StopWhen.TimeoutSeconds)*time.Second))
	}
	if cfg.StopWhen.Patience > 0 {
		conditions = append(conditions, stopcond.NewNoImprovement[int](cfg.StopWhen.Patience))
	}
	if cfg.StopWhen.ScoreThreshold > 0 {
		conditions = append(conditions, stopcond.ScoreThreshold[int]{Threshold: cfg.StopWhen.ScoreThreshold})
	}
	if cfg.StopWhen.StopFilePath != "" {
		conditions = append(conditions, stopcond.FileStop[int]{Path: cfg.StopWhen.StopFilePath})
	}
	return conditions
}

// initDB opens a database connection pool for the supplementary run
// history store. It returns (nil, nil) when no PostgresURL is configured —
// that history tracking is optional.
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

// newRunRepository wraps a pool in the postgres-backed RunRepository, or
// returns nil if no pool is available.
func newRunRepository(pool *pgxpool.Pool) ports.RunRepository {
	if pool == nil {
		return nil
	}
	return postgres.NewOptimizationRepository(pool)
}

func idGenerator() *id.Generator {
	return id.New()
}

// newBroadcasterAndPublisher wires the in-process SSE fan-out used by
// serve and, optionally, by run/resume to report progress while blocking.
func newBroadcasterAndPublisher() (*eventbus.Broadcaster, *eventbus.Publisher) {
	b := eventbus.NewBroadcaster()
	return b, eventbus.NewPublisher(b)
}
