package ports

import "time"

// BaseProgramMetricsEvent is emitted once, at the start of a run, after the
// seed candidate has been evaluated on the full validation set.
type BaseProgramMetricsEvent struct {
	RunID            string    `json:"run_id"`
	Iteration        int64     `json:"iteration"`
	SeedAggregate    float64   `json:"seed_aggregate_score"`
	ValidationCount  int       `json:"validation_coverage"`
	Timestamp        time.Time `json:"timestamp"`
}

// IterationCompleteEvent is emitted whenever a proposal is accepted and
// admitted to the pool.
type IterationCompleteEvent struct {
	RunID            string         `json:"run_id"`
	Iteration        int64          `json:"iteration"`
	NewProgramIdx    int            `json:"new_program_idx"`
	EvaluatedIDs     []string       `json:"evaluated_validation_ids"`
	FrontBest        map[string]float64 `json:"front_best"`
	FrontMembership  map[string][]int   `json:"front_membership"`
	AggregateScore   float64        `json:"aggregate_score"`
	BestProgramIdx   int            `json:"best_program_idx"`
	DiscoveryBudget  int64          `json:"discovery_budget"`
	Tag              string         `json:"tag"`
	Timestamp        time.Time      `json:"timestamp"`
}

// TerminalEvent is emitted once, when the engine exits the loop for any
// reason (stop condition, request_stop, or a re-raised fatal error).
type TerminalEvent struct {
	RunID     string    `json:"run_id"`
	Iteration int64     `json:"iteration"`
	Reason    string    `json:"reason"`
	Err       string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventPublisher fans engine events out to interested subscribers
// (WebSocket clients, SSE streams, log sinks). The core names the events;
// transport is entirely the publisher's concern.
type EventPublisher interface {
	PublishBaseMetrics(BaseProgramMetricsEvent)
	PublishIterationComplete(IterationCompleteEvent)
	PublishTerminal(TerminalEvent)
}

// NoopPublisher discards every event. Useful as a default when the caller
// has no telemetry sink wired up.
type NoopPublisher struct{}

func (NoopPublisher) PublishBaseMetrics(BaseProgramMetricsEvent)         {}
func (NoopPublisher) PublishIterationComplete(IterationCompleteEvent)    {}
func (NoopPublisher) PublishTerminal(TerminalEvent)                      {}
