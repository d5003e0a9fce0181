package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gepa-run/gepa-engine/internal/domain/models"
)

// OptimizationRepository implements ports.RunRepository against the
// gepa_runs / gepa_candidates / gepa_evaluations tables. It is purely a
// queryable mirror of run history; the engine's authoritative State never
// round-trips through it.
type OptimizationRepository struct {
	BaseRepository
	txm *TransactionManager
}

func NewOptimizationRepository(pool *pgxpool.Pool) *OptimizationRepository {
	return &OptimizationRepository{
		BaseRepository: NewBaseRepository(pool),
		txm:            NewTransactionManager(pool),
	}
}

func (r *OptimizationRepository) CreateRun(ctx context.Context, run *models.Run) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(run.Meta)
	if err != nil {
		return err
	}
	weights, err := json.Marshal(run.ReportingWeights)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO gepa_runs (
			id, name, description, status, adapter_name, seed_aggregate_score,
			config, reporting_weights, meta, started_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.Name,
		run.Description,
		run.Status,
		run.AdapterName,
		run.SeedAggregate,
		config,
		weights,
		meta,
		run.StartedAt,
		run.CreatedAt,
		run.UpdatedAt,
	)
	return err
}

func (r *OptimizationRepository) GetRun(ctx context.Context, runID string) (*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, status, adapter_name, seed_aggregate_score,
		       best_score, iterations, total_evaluations, config, reporting_weights,
		       best_dim_scores, meta, started_at, completed_at, created_at, updated_at
		FROM gepa_runs
		WHERE id = $1 AND deleted_at IS NULL`

	return r.scanRun(r.conn(ctx).QueryRow(ctx, query, runID))
}

func (r *OptimizationRepository) ListRuns(ctx context.Context, status string, limit, offset int) ([]*models.Run, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, name, description, status, adapter_name, seed_aggregate_score,
		       best_score, iterations, total_evaluations, config, reporting_weights,
		       best_dim_scores, meta, started_at, completed_at, created_at, updated_at
		FROM gepa_runs
		WHERE deleted_at IS NULL`

	args := []any{}
	argPos := 1
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*models.Run, 0)
	for rows.Next() {
		run, err := r.scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *OptimizationRepository) UpdateRunProgress(ctx context.Context, runID string, iterations int, totalEvaluations int64, bestScore float64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE gepa_runs
		SET iterations = $1, total_evaluations = $2, best_score = $3, updated_at = now()
		WHERE id = $4 AND deleted_at IS NULL`

	result, err := r.conn(ctx).Exec(ctx, query, iterations, totalEvaluations, bestScore, runID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("optimization run not found")
	}
	return nil
}

func (r *OptimizationRepository) CompleteRun(ctx context.Context, runID string, bestScore float64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE gepa_runs
		SET status = $1, best_score = $2, completed_at = now(), updated_at = now()
		WHERE id = $3 AND deleted_at IS NULL`

	result, err := r.conn(ctx).Exec(ctx, query, models.RunStatusCompleted, bestScore, runID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("optimization run not found")
	}
	return nil
}

func (r *OptimizationRepository) FailRun(ctx context.Context, runID string, errMsg string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	meta, err := json.Marshal(map[string]any{"error": errMsg})
	if err != nil {
		return err
	}

	query := `
		UPDATE gepa_runs
		SET status = $1, meta = meta || $2::jsonb, completed_at = now(), updated_at = now()
		WHERE id = $3 AND deleted_at IS NULL`

	result, err := r.conn(ctx).Exec(ctx, query, models.RunStatusFailed, meta, runID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.New("optimization run not found")
	}
	return nil
}

func (r *OptimizationRepository) SaveCandidate(ctx context.Context, candidate *models.CandidateRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	parentIdxs, err := json.Marshal(candidate.ParentIdxs)
	if err != nil {
		return err
	}
	text, err := json.Marshal(candidate.Candidate)
	if err != nil {
		return err
	}
	dimScores, err := json.Marshal(candidate.DimensionScores)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(candidate.Meta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO gepa_candidates (
			id, run_id, program_idx, iteration, parent_idxs, tag, candidate,
			aggregate_score, coverage, dimension_scores, discovery_budget, meta, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (id) DO UPDATE SET
			aggregate_score = EXCLUDED.aggregate_score,
			coverage = EXCLUDED.coverage,
			dimension_scores = EXCLUDED.dimension_scores`

	_, err = r.conn(ctx).Exec(ctx, query,
		candidate.ID,
		candidate.RunID,
		candidate.ProgramIdx,
		candidate.Iteration,
		parentIdxs,
		candidate.Tag,
		text,
		candidate.AggregateScore,
		candidate.Coverage,
		dimScores,
		candidate.DiscoveryBudget,
		meta,
		candidate.CreatedAt,
	)
	return err
}

func (r *OptimizationRepository) GetCandidates(ctx context.Context, runID string) ([]*models.CandidateRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, run_id, program_idx, iteration, parent_idxs, tag, candidate,
		       aggregate_score, coverage, dimension_scores, discovery_budget, meta, created_at
		FROM gepa_candidates
		WHERE run_id = $1 AND deleted_at IS NULL
		ORDER BY program_idx ASC`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]*models.CandidateRecord, 0)
	for rows.Next() {
		c, err := r.scanCandidateRow(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *OptimizationRepository) GetBestCandidate(ctx context.Context, runID string) (*models.CandidateRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, run_id, program_idx, iteration, parent_idxs, tag, candidate,
		       aggregate_score, coverage, dimension_scores, discovery_budget, meta, created_at
		FROM gepa_candidates
		WHERE run_id = $1 AND deleted_at IS NULL
		ORDER BY aggregate_score DESC
		LIMIT 1`

	return r.scanCandidate(r.conn(ctx).QueryRow(ctx, query, runID))
}

func (r *OptimizationRepository) SaveEvaluation(ctx context.Context, eval *models.EvaluationRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	metrics, err := json.Marshal(eval.Metrics)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO gepa_evaluations (
			id, candidate_id, run_id, data_id, phase, score, success, latency_ms, metrics, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		eval.ID,
		eval.CandidateID,
		eval.RunID,
		eval.DataID,
		eval.Phase,
		eval.Score,
		eval.Success,
		eval.LatencyMs,
		metrics,
		nullString(eval.Error),
		eval.CreatedAt,
	)
	return err
}

// SaveCandidateWithEvaluations persists the candidate row and its
// per-instance evaluation rows inside one transaction, via
// TransactionManager.WithTransaction — SaveCandidate and SaveEvaluation
// pick up the in-flight transaction automatically through BaseRepository's
// context-aware conn(), so a failure partway through rolls back every
// insert in the batch rather than leaving the candidate orphaned from its
// evaluation history.
func (r *OptimizationRepository) SaveCandidateWithEvaluations(ctx context.Context, candidate *models.CandidateRecord, evals []*models.EvaluationRecord) error {
	return r.txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.SaveCandidate(ctx, candidate); err != nil {
			return err
		}
		for _, eval := range evals {
			if err := r.SaveEvaluation(ctx, eval); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OptimizationRepository) GetEvaluations(ctx context.Context, candidateID string) ([]*models.EvaluationRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, candidate_id, run_id, data_id, phase, score, success, latency_ms, metrics, error, created_at
		FROM gepa_evaluations
		WHERE candidate_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evaluations := make([]*models.EvaluationRecord, 0)
	for rows.Next() {
		var e models.EvaluationRecord
		var metrics []byte
		var errStr sql.NullString

		if err := rows.Scan(&e.ID, &e.CandidateID, &e.RunID, &e.DataID, &e.Phase,
			&e.Score, &e.Success, &e.LatencyMs, &metrics, &errStr, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalJSONField(metrics, &e.Metrics); err != nil {
			e.Metrics = make(map[string]any)
		}
		if e.Metrics == nil {
			e.Metrics = make(map[string]any)
		}
		e.Error = getString(errStr)
		evaluations = append(evaluations, &e)
	}
	return evaluations, rows.Err()
}

func (r *OptimizationRepository) scanRun(row pgx.Row) (*models.Run, error) {
	var run models.Run
	var description sql.NullString
	var config, weights, dimScores, meta []byte
	var bestScore sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Name, &description, &run.Status, &run.AdapterName, &run.SeedAggregate,
		&bestScore, &run.Iterations, &run.TotalEvaluations, &config, &weights, &dimScores, &meta,
		&run.StartedAt, &completedAt, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return hydrateRun(&run, description, config, weights, dimScores, meta, bestScore, completedAt)
}

func (r *OptimizationRepository) scanRunRow(rows pgx.Rows) (*models.Run, error) {
	var run models.Run
	var description sql.NullString
	var config, weights, dimScores, meta []byte
	var bestScore sql.NullFloat64
	var completedAt sql.NullTime

	err := rows.Scan(
		&run.ID, &run.Name, &description, &run.Status, &run.AdapterName, &run.SeedAggregate,
		&bestScore, &run.Iterations, &run.TotalEvaluations, &config, &weights, &dimScores, &meta,
		&run.StartedAt, &completedAt, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return hydrateRun(&run, description, config, weights, dimScores, meta, bestScore, completedAt)
}

func hydrateRun(run *models.Run, description sql.NullString, config, weights, dimScores, meta []byte, bestScore sql.NullFloat64, completedAt sql.NullTime) (*models.Run, error) {
	run.Description = getString(description)
	if err := unmarshalJSONField(config, &run.Config); err != nil {
		return nil, err
	}
	if run.Config == nil {
		run.Config = make(map[string]any)
	}
	if err := unmarshalJSONField(weights, &run.ReportingWeights); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(dimScores, &run.BestDimScores); err != nil {
		return nil, err
	}
	if run.BestDimScores == nil {
		run.BestDimScores = make(map[string]float64)
	}
	if err := unmarshalJSONField(meta, &run.Meta); err != nil {
		return nil, err
	}
	if run.Meta == nil {
		run.Meta = make(map[string]any)
	}
	if bestScore.Valid {
		run.BestScore = bestScore.Float64
	}
	run.CompletedAt = getTimePtr(completedAt)
	return run, nil
}

func (r *OptimizationRepository) scanCandidate(row pgx.Row) (*models.CandidateRecord, error) {
	var c models.CandidateRecord
	var parentIdxs, candidateText, dimScores, meta []byte

	err := row.Scan(&c.ID, &c.RunID, &c.ProgramIdx, &c.Iteration, &parentIdxs, &c.Tag, &candidateText,
		&c.AggregateScore, &c.Coverage, &dimScores, &c.DiscoveryBudget, &meta, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return hydrateCandidate(&c, parentIdxs, candidateText, dimScores, meta)
}

func (r *OptimizationRepository) scanCandidateRow(rows pgx.Rows) (*models.CandidateRecord, error) {
	var c models.CandidateRecord
	var parentIdxs, candidateText, dimScores, meta []byte

	err := rows.Scan(&c.ID, &c.RunID, &c.ProgramIdx, &c.Iteration, &parentIdxs, &c.Tag, &candidateText,
		&c.AggregateScore, &c.Coverage, &dimScores, &c.DiscoveryBudget, &meta, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return hydrateCandidate(&c, parentIdxs, candidateText, dimScores, meta)
}

func hydrateCandidate(c *models.CandidateRecord, parentIdxs, candidateText, dimScores, meta []byte) (*models.CandidateRecord, error) {
	if err := unmarshalJSONField(parentIdxs, &c.ParentIdxs); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(candidateText, &c.Candidate); err != nil {
		return nil, err
	}
	if c.Candidate == nil {
		c.Candidate = make(map[string]string)
	}
	if err := unmarshalJSONField(dimScores, &c.DimensionScores); err != nil {
		return nil, err
	}
	if err := unmarshalJSONField(meta, &c.Meta); err != nil {
		return nil, err
	}
	if c.Meta == nil {
		c.Meta = make(map[string]any)
	}
	return c, nil
}
