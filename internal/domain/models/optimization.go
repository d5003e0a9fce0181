// Package models holds the supplementary, persisted history of an
// optimization run: the run header, one row per admitted candidate, and
// one row per evaluation recorded against a candidate. This is reporting
// infrastructure layered on top of the core engine's State — the engine
// itself never reads these types back to make acceptance decisions.
package models

import "time"

// Run tracks one execution of the engine against a State, independent of
// the in-memory/on-disk State snapshot itself. It exists so a caller can
// list and inspect past and in-flight runs (via Postgres) without having
// to deserialize a state snapshot.
type Run struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Description      string             `json:"description,omitempty"`
	Status           string             `json:"status"`
	AdapterName      string             `json:"adapter_name"`
	SeedAggregate    float64            `json:"seed_aggregate_score,omitempty"`
	BestScore        float64            `json:"best_score,omitempty"`
	Iterations       int                `json:"iterations"`
	TotalEvaluations int64              `json:"total_evaluations"`
	ReportingWeights map[string]float64 `json:"reporting_weights,omitempty"`
	BestDimScores    map[string]float64 `json:"best_dim_scores,omitempty"`
	Config           map[string]any     `json:"config,omitempty"`
	Meta             map[string]any     `json:"meta,omitempty"`
	StartedAt        time.Time          `json:"started_at"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

func NewRun(id, name, adapterName string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:               id,
		Name:             name,
		Status:           RunStatusRunning,
		AdapterName:      adapterName,
		BestDimScores:    make(map[string]float64),
		Config:           make(map[string]any),
		Meta:             make(map[string]any),
		StartedAt:        now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func (r *Run) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *Run) MarkFailed() {
	now := time.Now().UTC()
	r.Status = RunStatusFailed
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// CandidateRecord is a persisted mirror of one admitted ProgramIdx: the
// engine's own genealogy and sparse scores remain authoritative in State;
// this row exists for querying run history without touching a snapshot.
type CandidateRecord struct {
	ID              string             `json:"id"`
	RunID           string             `json:"run_id"`
	ProgramIdx      int                `json:"program_idx"`
	Iteration       int64              `json:"iteration"`
	ParentIdxs      []int              `json:"parent_idxs"`
	Tag             string             `json:"tag"` // "seed", "reflective_mutation", "merge"
	Candidate       map[string]string  `json:"candidate"`
	AggregateScore  float64            `json:"aggregate_score"`
	Coverage        int                `json:"coverage"`
	// DimensionScores is informational only — an optional per-dimension
	// breakdown a caller's own reporting adapter can attach for display.
	// The Pareto front and admission logic never read it.
	DimensionScores map[string]float64 `json:"dimension_scores,omitempty"`
	DiscoveryBudget int64              `json:"discovery_budget"`
	Meta            map[string]any     `json:"meta,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func NewCandidateRecord(id, runID string, programIdx int, iteration int64, parentIdxs []int, tag string, candidate map[string]string) *CandidateRecord {
	return &CandidateRecord{
		ID:         id,
		RunID:      runID,
		ProgramIdx: programIdx,
		Iteration:  iteration,
		ParentIdxs: parentIdxs,
		Tag:        tag,
		Candidate:  candidate,
		Meta:       make(map[string]any),
		CreatedAt:  time.Now().UTC(),
	}
}

// GetWeightedScore blends DimensionScores by the given weights, falling
// back to AggregateScore when no breakdown or weights are available. Used
// only by reporting surfaces (CLI/HTTP), never by the engine.
func (c *CandidateRecord) GetWeightedScore(weights map[string]float64) float64 {
	if len(c.DimensionScores) == 0 || len(weights) == 0 {
		return c.AggregateScore
	}
	var score float64
	for dim, weight := range weights {
		if v, ok := c.DimensionScores[dim]; ok {
			score += v * weight
		}
	}
	return score
}

// EvaluationRecord is a persisted row for one adapter.Evaluate call result
// against a single data instance, kept for audit/debugging. The engine
// does not require this to be stored; the CLI builds these rows when it
// persists candidates to a configured run repository.
type EvaluationRecord struct {
	ID          string         `json:"id"`
	CandidateID string         `json:"candidate_id"`
	RunID       string         `json:"run_id"`
	DataID      string         `json:"data_id"`
	Phase       string         `json:"phase"` // "traced", "verification", "full_eval", "subsample"
	Score       float64        `json:"score"`
	Success     bool           `json:"success"`
	LatencyMs   int64          `json:"latency_ms"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewEvaluationRecord(id, candidateID, runID, dataID, phase string, score float64, success bool, latencyMs int64) *EvaluationRecord {
	return &EvaluationRecord{
		ID:          id,
		CandidateID: candidateID,
		RunID:       runID,
		DataID:      dataID,
		Phase:       phase,
		Score:       score,
		Success:     success,
		LatencyMs:   latencyMs,
		Metrics:     make(map[string]any),
		CreatedAt:   time.Now().UTC(),
	}
}
