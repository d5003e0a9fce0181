package eventbus

import (
	"sync"

	"github.com/gepa-run/gepa-engine/internal/adapters/metrics"
	"github.com/gepa-run/gepa-engine/internal/ports"
)

// Publisher implements ports.EventPublisher on top of a Broadcaster,
// translating the engine's three event types into the coarser
// ports.ProgressUpdate shape a status endpoint or UI actually wants, and
// recording Prometheus counters/gauges alongside. It also keeps the last
// ProgressUpdate per run so a newly connecting client can be handed a
// snapshot before it starts receiving live updates.
type Publisher struct {
	broadcaster *Broadcaster

	mu   sync.RWMutex
	last map[string]ports.ProgressUpdate
}

// NewPublisher wraps the given Broadcaster.
func NewPublisher(b *Broadcaster) *Publisher {
	return &Publisher{
		broadcaster: b,
		last:        make(map[string]ports.ProgressUpdate),
	}
}

// Snapshot returns the most recent ProgressUpdate published for runID, if any.
func (p *Publisher) Snapshot(runID string) (ports.ProgressUpdate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.last[runID]
	return u, ok
}

func (p *Publisher) record(update ports.ProgressUpdate) {
	p.mu.Lock()
	p.last[update.RunID] = update
	p.mu.Unlock()
	p.broadcaster.Broadcast(update.RunID, update)
}

// PublishBaseMetrics implements ports.EventPublisher.
func (p *Publisher) PublishBaseMetrics(e ports.BaseProgramMetricsEvent) {
	metrics.RunsActive.Inc()
	p.record(ports.ProgressUpdate{
		RunID:          e.RunID,
		Status:         "running",
		Iteration:      e.Iteration,
		AggregateScore: e.SeedAggregate,
		BestScore:      e.SeedAggregate,
		Message:        "seed candidate evaluated",
		Timestamp:      e.Timestamp.Unix(),
	})
}

// PublishIterationComplete implements ports.EventPublisher.
func (p *Publisher) PublishIterationComplete(e ports.IterationCompleteEvent) {
	metrics.IterationsTotal.WithLabelValues(e.RunID).Inc()
	metrics.ProposalsTotal.WithLabelValues(e.Tag, "accepted").Inc()
	metrics.PoolSize.WithLabelValues(e.RunID).Set(float64(e.NewProgramIdx + 1))
	metrics.ParetoFrontSize.WithLabelValues(e.RunID).Set(float64(len(e.FrontMembership)))

	best := e.AggregateScore
	if prev, ok := p.Snapshot(e.RunID); ok && prev.BestScore > best {
		best = prev.BestScore
	}

	p.record(ports.ProgressUpdate{
		RunID:          e.RunID,
		Status:         "running",
		Iteration:      e.Iteration,
		TotalEvals:     int64(len(e.EvaluatedIDs)),
		AggregateScore: e.AggregateScore,
		BestScore:      best,
		Message:        "candidate admitted: " + e.Tag,
		Timestamp:      e.Timestamp.Unix(),
	})
}

// PublishTerminal implements ports.EventPublisher.
func (p *Publisher) PublishTerminal(e ports.TerminalEvent) {
	metrics.RunsActive.Dec()

	status := "completed"
	if e.Err != "" {
		status = "failed"
	}

	prev, _ := p.Snapshot(e.RunID)
	p.record(ports.ProgressUpdate{
		RunID:          e.RunID,
		Status:         status,
		Iteration:      e.Iteration,
		AggregateScore: prev.AggregateScore,
		BestScore:      prev.BestScore,
		Message:        e.Reason,
		Timestamp:      e.Timestamp.Unix(),
	})
	p.broadcaster.Close(e.RunID)
}
