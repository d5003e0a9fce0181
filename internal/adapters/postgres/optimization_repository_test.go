package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/gepa-run/gepa-engine/internal/domain/models"
)

func TestOptimizationRepository_CreateRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	run := models.NewRun("run_1", "squad_qa", "exact_match_adapter")
	run.Config["max_metric_calls"] = float64(500)

	mock.ExpectExec("INSERT INTO gepa_runs").
		WithArgs(
			run.ID, run.Name, run.Description, run.Status, run.AdapterName, run.SeedAggregate,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			run.StartedAt, run.CreatedAt, run.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_GetRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	runID := "run_1"
	now := time.Now()
	config, _ := json.Marshal(map[string]any{"max_metric_calls": float64(500)})
	weights, _ := json.Marshal(map[string]float64{"exact_match": 1.0})
	dimScores, _ := json.Marshal(map[string]float64{"exact_match": 0.82})
	meta, _ := json.Marshal(map[string]any{})

	rows := pgxmock.NewRows([]string{
		"id", "name", "description", "status", "adapter_name", "seed_aggregate_score",
		"best_score", "iterations", "total_evaluations", "config", "reporting_weights",
		"best_dim_scores", "meta", "started_at", "completed_at", "created_at", "updated_at",
	}).AddRow(
		runID, "squad_qa", sql.NullString{String: "", Valid: false}, models.RunStatusCompleted, "exact_match_adapter", 0.4,
		sql.NullFloat64{Float64: 0.82, Valid: true}, 12, int64(340), config, weights,
		dimScores, meta, now, sql.NullTime{Time: now, Valid: true}, now, now,
	)

	mock.ExpectQuery("SELECT (.+) FROM gepa_runs").
		WithArgs(runID).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	run, err := repo.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.ID != runID {
		t.Errorf("expected ID %s, got %s", runID, run.ID)
	}
	if run.AdapterName != "exact_match_adapter" {
		t.Errorf("expected adapter_name exact_match_adapter, got %s", run.AdapterName)
	}
	if run.BestScore != 0.82 {
		t.Errorf("expected best score 0.82, got %f", run.BestScore)
	}
	if run.Iterations != 12 {
		t.Errorf("expected 12 iterations, got %d", run.Iterations)
	}
	if run.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if run.Meta == nil {
		t.Error("expected Meta to be initialized")
	}
	if run.ReportingWeights["exact_match"] != 1.0 {
		t.Errorf("expected reporting weight 1.0, got %v", run.ReportingWeights)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_GetRun_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT (.+) FROM gepa_runs").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.GetRun(ctx, "nonexistent")
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_UpdateRunProgress(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE gepa_runs").
		WithArgs(14, int64(400), 0.85, "run_1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	if err := repo.UpdateRunProgress(ctx, "run_1", 14, 400, 0.85); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_UpdateRunProgress_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE gepa_runs").
		WithArgs(1, int64(10), 0.1, "nonexistent").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ctx := setupMockContext(mock)
	err = repo.UpdateRunProgress(ctx, "nonexistent", 1, 10, 0.1)
	if err == nil {
		t.Fatal("expected error for not found, got nil")
	}
	if err.Error() != "optimization run not found" {
		t.Errorf("expected 'optimization run not found', got %q", err.Error())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_ListRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	emptyMap, _ := json.Marshal(map[string]any{})

	rows := pgxmock.NewRows([]string{
		"id", "name", "description", "status", "adapter_name", "seed_aggregate_score",
		"best_score", "iterations", "total_evaluations", "config", "reporting_weights",
		"best_dim_scores", "meta", "started_at", "completed_at", "created_at", "updated_at",
	}).
		AddRow("run_1", "sig1", sql.NullString{}, models.RunStatusCompleted, "adapter_a", 0.4,
			sql.NullFloat64{Float64: 0.95, Valid: true}, 5, int64(100), emptyMap, emptyMap, emptyMap, emptyMap,
			now, sql.NullTime{Time: now, Valid: true}, now, now).
		AddRow("run_2", "sig2", sql.NullString{}, models.RunStatusRunning, "adapter_a", 0.3,
			sql.NullFloat64{}, 2, int64(40), emptyMap, emptyMap, emptyMap, emptyMap,
			now, sql.NullTime{}, now, now)

	mock.ExpectQuery("SELECT (.+) FROM gepa_runs").
		WithArgs(50, 0).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	runs, err := repo.ListRuns(ctx, "", 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run_1" {
		t.Errorf("expected first run ID run_1, got %s", runs[0].ID)
	}
	if runs[1].Status != models.RunStatusRunning {
		t.Errorf("expected status running, got %s", runs[1].Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_ListRuns_WithStatusFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	emptyMap, _ := json.Marshal(map[string]any{})

	rows := pgxmock.NewRows([]string{
		"id", "name", "description", "status", "adapter_name", "seed_aggregate_score",
		"best_score", "iterations", "total_evaluations", "config", "reporting_weights",
		"best_dim_scores", "meta", "started_at", "completed_at", "created_at", "updated_at",
	}).AddRow("run_1", "sig1", sql.NullString{}, models.RunStatusCompleted, "adapter_a", 0.4,
		sql.NullFloat64{Float64: 0.95, Valid: true}, 5, int64(100), emptyMap, emptyMap, emptyMap, emptyMap,
		now, sql.NullTime{Time: now, Valid: true}, now, now)

	mock.ExpectQuery("SELECT (.+) FROM gepa_runs").
		WithArgs(models.RunStatusCompleted, 50, 0).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	runs, err := repo.ListRuns(ctx, models.RunStatusCompleted, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_SaveCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	candidate := models.NewCandidateRecord("cand_1", "run_1", 3, 7, []int{1}, "reflective_mutation",
		map[string]string{"answer_extractor": "Return the shortest span that answers the question."})
	candidate.AggregateScore = 0.77
	candidate.Coverage = 20

	mock.ExpectExec("INSERT INTO gepa_candidates").
		WithArgs(
			candidate.ID, candidate.RunID, candidate.ProgramIdx, candidate.Iteration,
			pgxmock.AnyArg(), candidate.Tag, pgxmock.AnyArg(), candidate.AggregateScore,
			candidate.Coverage, pgxmock.AnyArg(), candidate.DiscoveryBudget, pgxmock.AnyArg(), candidate.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.SaveCandidate(ctx, candidate); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_GetBestCandidate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	parentIdxs, _ := json.Marshal([]int{0})
	candidateText, _ := json.Marshal(map[string]string{"answer_extractor": "v2"})
	emptyMap, _ := json.Marshal(map[string]any{})

	rows := pgxmock.NewRows([]string{
		"id", "run_id", "program_idx", "iteration", "parent_idxs", "tag", "candidate",
		"aggregate_score", "coverage", "dimension_scores", "discovery_budget", "meta", "created_at",
	}).AddRow("cand_3", "run_1", 3, int64(7), parentIdxs, "reflective_mutation", candidateText,
		0.91, 20, emptyMap, int64(60), emptyMap, now)

	mock.ExpectQuery("SELECT (.+) FROM gepa_candidates").
		WithArgs("run_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	best, err := repo.GetBestCandidate(ctx, "run_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best.ID != "cand_3" {
		t.Errorf("expected cand_3, got %s", best.ID)
	}
	if best.AggregateScore != 0.91 {
		t.Errorf("expected aggregate score 0.91, got %f", best.AggregateScore)
	}
	if best.Candidate["answer_extractor"] != "v2" {
		t.Errorf("expected candidate text v2, got %v", best.Candidate)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_SaveEvaluation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	eval := models.NewEvaluationRecord("eval_1", "cand_3", "run_1", "val_042", "full_eval", 1.0, true, 340)

	mock.ExpectExec("INSERT INTO gepa_evaluations").
		WithArgs(
			eval.ID, eval.CandidateID, eval.RunID, eval.DataID, eval.Phase,
			eval.Score, eval.Success, eval.LatencyMs, pgxmock.AnyArg(), pgxmock.AnyArg(), eval.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.SaveEvaluation(ctx, eval); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_SaveCandidateWithEvaluations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	candidate := models.NewCandidateRecord("cand_1", "run_1", 3, 7, []int{1}, "reflective_mutation",
		map[string]string{"answer_extractor": "Return the shortest span."})
	evals := []*models.EvaluationRecord{
		models.NewEvaluationRecord("eval_1", candidate.ID, "run_1", "val_001", "full_eval", 1.0, true, 12),
		models.NewEvaluationRecord("eval_2", candidate.ID, "run_1", "val_002", "full_eval", 0.0, true, 9),
	}

	mock.ExpectExec("INSERT INTO gepa_candidates").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO gepa_evaluations").
		WithArgs(
			evals[0].ID, evals[0].CandidateID, evals[0].RunID, evals[0].DataID, evals[0].Phase,
			evals[0].Score, evals[0].Success, evals[0].LatencyMs, pgxmock.AnyArg(), pgxmock.AnyArg(), evals[0].CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO gepa_evaluations").
		WithArgs(
			evals[1].ID, evals[1].CandidateID, evals[1].RunID, evals[1].DataID, evals[1].Phase,
			evals[1].Score, evals[1].Success, evals[1].LatencyMs, pgxmock.AnyArg(), pgxmock.AnyArg(), evals[1].CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := repo.SaveCandidateWithEvaluations(ctx, candidate, evals); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestOptimizationRepository_SaveCandidateWithEvaluations_StopsOnFirstError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &OptimizationRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	candidate := models.NewCandidateRecord("cand_1", "run_1", 3, 7, nil, "reflective_mutation", nil)
	evals := []*models.EvaluationRecord{
		models.NewEvaluationRecord("eval_1", candidate.ID, "run_1", "val_001", "full_eval", 1.0, true, 12),
	}

	mock.ExpectExec("INSERT INTO gepa_candidates").
		WillReturnError(errors.New("constraint violation"))

	ctx := setupMockContext(mock)
	if err := repo.SaveCandidateWithEvaluations(ctx, candidate, evals); err == nil {
		t.Error("expected the candidate insert failure to propagate")
	}

	// The evaluation insert must never have been attempted.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
