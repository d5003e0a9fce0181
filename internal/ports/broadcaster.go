package ports

// ProgressUpdate is the coarser, UI-facing projection of the engine events
// defined in events.go — convenient for a WebSocket/SSE broadcaster that
// does not want to know about Pareto-front internals.
type ProgressUpdate struct {
	RunID          string  `json:"run_id"`
	Status         string  `json:"status"`
	Iteration      int64   `json:"iteration"`
	TotalEvals     int64   `json:"total_evaluations"`
	AggregateScore float64 `json:"aggregate_score"`
	BestScore      float64 `json:"best_score"`
	Message        string  `json:"message,omitempty"`
	Timestamp      int64   `json:"timestamp"`
}

// ProgressBroadcaster fans ProgressUpdate values out to every subscriber of
// a run, e.g. over a WebSocket or an SSE stream.
type ProgressBroadcaster interface {
	Subscribe(runID string) <-chan ProgressUpdate
	Unsubscribe(runID string, ch <-chan ProgressUpdate)
	Broadcast(runID string, update ProgressUpdate)
	Close(runID string)
}
