package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gepa-run/gepa-engine/internal/adapters/eventbus"
	"github.com/gepa-run/gepa-engine/internal/adapters/http/handlers"
	"github.com/gepa-run/gepa-engine/internal/adapters/http/middleware"
	"github.com/gepa-run/gepa-engine/internal/config"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// Server is the run-status/SSE/Prometheus HTTP surface for one or more
// engines executing in this process.
type Server struct {
	config      *config.Config
	router      *chi.Mux
	httpServer  *http.Server
	runRepo     ports.RunRepository
	db          *pgxpool.Pool
	broadcaster *eventbus.Broadcaster
	publisher   *eventbus.Publisher
}

// NewServer wires the dependencies into a ready-to-serve router.
func NewServer(cfg *config.Config, runRepo ports.RunRepository, db *pgxpool.Pool, broadcaster *eventbus.Broadcaster, publisher *eventbus.Publisher) *Server {
	s := &Server{
		config:      cfg,
		runRepo:     runRepo,
		db:          db,
		broadcaster: broadcaster,
		publisher:   publisher,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(s.db)
	r.Get("/health", healthHandler.Handle)
	r.Get("/health/detailed", healthHandler.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	if s.runRepo != nil {
		runsHandler := handlers.NewRunsHandler(s.runRepo)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Get("/runs/{id}/candidates", runsHandler.Candidates)
		r.Get("/runs/{id}/pareto", runsHandler.Pareto)
		r.Get("/candidates/{id}/evaluations", runsHandler.Evaluations)
	}

	if s.broadcaster != nil && s.publisher != nil {
		eventsHandler := handlers.NewEventsHandler(s.broadcaster, s.publisher)
		r.Get("/runs/{id}/events", eventsHandler.Stream)
	}

	s.router = r
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams have no fixed write deadline
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting http server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the underlying chi.Mux, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
