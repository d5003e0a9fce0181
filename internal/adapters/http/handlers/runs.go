package handlers

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/gepa-run/gepa-engine/internal/ports"
)

// RunsHandler serves the read-only run/candidate/evaluation history API
// backed by a ports.RunRepository.
type RunsHandler struct {
	repo ports.RunRepository
}

// NewRunsHandler creates a RunsHandler.
func NewRunsHandler(repo ports.RunRepository) *RunsHandler {
	return &RunsHandler{repo: repo}
}

// List handles GET /runs.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.repo.ListRuns(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, "service_error", "failed to list runs", http.StatusInternalServerError)
		return
	}
	respondJSON(w, runs, http.StatusOK)
}

// Get handles GET /runs/{id}.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	run, err := h.repo.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			respondError(w, "not_found", "run not found", http.StatusNotFound)
			return
		}
		respondError(w, "service_error", "failed to get run", http.StatusInternalServerError)
		return
	}
	respondJSON(w, run, http.StatusOK)
}

// Candidates handles GET /runs/{id}/candidates.
func (h *RunsHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	candidates, err := h.repo.GetCandidates(r.Context(), runID)
	if err != nil {
		respondError(w, "service_error", "failed to get candidates", http.StatusInternalServerError)
		return
	}
	respondJSON(w, candidates, http.StatusOK)
}

// Pareto handles GET /runs/{id}/pareto: the current best candidate plus
// every admitted candidate's aggregate score, giving a caller a cheap
// approximation of the front's shape without touching the live State.
func (h *RunsHandler) Pareto(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	candidates, err := h.repo.GetCandidates(r.Context(), runID)
	if err != nil {
		respondError(w, "service_error", "failed to get candidates", http.StatusInternalServerError)
		return
	}

	best, err := h.repo.GetBestCandidate(r.Context(), runID)
	if err != nil {
		best = nil
	}

	respondJSON(w, map[string]any{
		"run_id":     runID,
		"best":       best,
		"candidates": candidates,
	}, http.StatusOK)
}

// Evaluations handles GET /candidates/{id}/evaluations.
func (h *RunsHandler) Evaluations(w http.ResponseWriter, r *http.Request) {
	candidateID, ok := validateURLParam(r, w, "id", "candidate id")
	if !ok {
		return
	}

	evals, err := h.repo.GetEvaluations(r.Context(), candidateID)
	if err != nil {
		respondError(w, "service_error", "failed to get evaluations", http.StatusInternalServerError)
		return
	}
	respondJSON(w, evals, http.StatusOK)
}
