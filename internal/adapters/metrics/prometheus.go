package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gepa_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gepa_runs_active",
		Help: "Number of optimization runs currently executing",
	})

	IterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_iterations_total",
		Help: "Total engine iterations, by run",
	}, []string{"run_id"})

	ProposalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_proposals_total",
		Help: "Total proposals produced, by tag (reflective_mutation, merge) and outcome (accepted, rejected)",
	}, []string{"tag", "outcome"})

	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_evaluations_total",
		Help: "Total per-instance adapter evaluations, by run",
	}, []string{"run_id"})

	LLMRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gepa_llm_requests_total",
		Help: "Total reflection LM requests",
	}, []string{"model", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gepa_llm_request_duration_seconds",
		Help:    "Reflection LM round-trip duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"model"})

	ParetoFrontSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gepa_pareto_front_size",
		Help: "Number of programs currently on the Pareto front, by run",
	}, []string{"run_id"})

	PoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gepa_pool_size",
		Help: "Number of admitted programs in the candidate pool, by run",
	}, []string{"run_id"})
)
