package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// HealthResponse is the basic liveness response.
type HealthResponse struct {
	Status string `json:"status"`
}

// DetailedHealthResponse reports per-dependency health.
type DetailedHealthResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceHealth `json:"services"`
}

// ServiceHealth is one dependency's health check result.
type ServiceHealth struct {
	Status    string  `json:"status"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// HealthHandler serves /health and /health/detailed.
type HealthHandler struct {
	db *pgxpool.Pool
}

// NewHealthHandler creates a HealthHandler. db may be nil when no
// supplementary-history database is configured.
func NewHealthHandler(db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{db: db}
}

// Handle provides a basic liveness check.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{Status: "ok"}, http.StatusOK)
}

// HandleDetailed checks every configured dependency.
func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := DetailedHealthResponse{Services: make(map[string]ServiceHealth)}

	if h.db != nil {
		response.Services["database"] = h.checkDatabase(ctx)
	}

	status := "ok"
	for _, svc := range response.Services {
		if svc.Status != "ok" {
			status = "degraded"
		}
	}
	response.Status = status

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, response, code)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceHealth {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		errMsg := err.Error()
		return ServiceHealth{Status: "error", Error: &errMsg}
	}
	latency := time.Since(start).Milliseconds()
	return ServiceHealth{Status: "ok", LatencyMs: &latency}
}
