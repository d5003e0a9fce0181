package ports

import (
	"context"

	"github.com/gepa-run/gepa-engine/internal/domain/models"
)

// RunRepository persists the supplementary run/candidate/evaluation
// history described in SPEC_FULL.md — a queryable mirror of what the
// engine is doing, independent of the authoritative State snapshot.
type RunRepository interface {
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, runID string) (*models.Run, error)
	ListRuns(ctx context.Context, status string, limit, offset int) ([]*models.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, iterations int, totalEvaluations int64, bestScore float64) error
	CompleteRun(ctx context.Context, runID string, bestScore float64) error
	FailRun(ctx context.Context, runID string, errMsg string) error

	SaveCandidate(ctx context.Context, candidate *models.CandidateRecord) error
	GetCandidates(ctx context.Context, runID string) ([]*models.CandidateRecord, error)
	GetBestCandidate(ctx context.Context, runID string) (*models.CandidateRecord, error)

	SaveEvaluation(ctx context.Context, eval *models.EvaluationRecord) error
	GetEvaluations(ctx context.Context, candidateID string) ([]*models.EvaluationRecord, error)

	// SaveCandidateWithEvaluations persists a candidate together with its
	// per-instance evaluation rows atomically: either both the candidate
	// and every evaluation land, or none do.
	SaveCandidateWithEvaluations(ctx context.Context, candidate *models.CandidateRecord, evals []*models.EvaluationRecord) error
}
