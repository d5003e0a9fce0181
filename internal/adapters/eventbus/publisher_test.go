package eventbus

import (
	"testing"
	"time"

	"github.com/gepa-run/gepa-engine/internal/ports"
)

func TestPublisher_PublishBaseMetrics_RecordsSnapshot(t *testing.T) {
	p := NewPublisher(NewBroadcaster())

	p.PublishBaseMetrics(ports.BaseProgramMetricsEvent{
		RunID:         "run-1",
		Iteration:     0,
		SeedAggregate: 0.5,
		Timestamp:     time.Now(),
	})

	snap, ok := p.Snapshot("run-1")
	if !ok {
		t.Fatal("expected a snapshot after PublishBaseMetrics")
	}
	if snap.BestScore != 0.5 || snap.AggregateScore != 0.5 {
		t.Errorf("snapshot scores = %+v, want 0.5/0.5", snap)
	}
	if snap.Status != "running" {
		t.Errorf("Status = %q, want running", snap.Status)
	}
}

func TestPublisher_PublishIterationComplete_TracksBestScore(t *testing.T) {
	p := NewPublisher(NewBroadcaster())
	now := time.Now()

	p.PublishBaseMetrics(ports.BaseProgramMetricsEvent{RunID: "run-1", SeedAggregate: 0.6, Timestamp: now})
	p.PublishIterationComplete(ports.IterationCompleteEvent{
		RunID:          "run-1",
		Iteration:      1,
		AggregateScore: 0.4, // worse than the seed
		Tag:            "reflective_mutation",
		Timestamp:      now,
	})

	snap, _ := p.Snapshot("run-1")
	if snap.BestScore != 0.6 {
		t.Errorf("BestScore = %v, want 0.6 (best score should not regress)", snap.BestScore)
	}
	if snap.AggregateScore != 0.4 {
		t.Errorf("AggregateScore = %v, want 0.4 (reflects the latest admitted candidate)", snap.AggregateScore)
	}
}

func TestPublisher_PublishTerminal_SetsStatus(t *testing.T) {
	p := NewPublisher(NewBroadcaster())
	now := time.Now()

	p.PublishBaseMetrics(ports.BaseProgramMetricsEvent{RunID: "run-1", SeedAggregate: 0.5, Timestamp: now})
	p.PublishTerminal(ports.TerminalEvent{RunID: "run-1", Reason: "stop_condition", Timestamp: now})

	snap, ok := p.Snapshot("run-1")
	if !ok {
		t.Fatal("expected a snapshot after PublishTerminal")
	}
	if snap.Status != "completed" {
		t.Errorf("Status = %q, want completed", snap.Status)
	}
}

func TestPublisher_PublishTerminal_WithErrorIsFailed(t *testing.T) {
	p := NewPublisher(NewBroadcaster())
	now := time.Now()

	p.PublishBaseMetrics(ports.BaseProgramMetricsEvent{RunID: "run-1", SeedAggregate: 0.5, Timestamp: now})
	p.PublishTerminal(ports.TerminalEvent{RunID: "run-1", Reason: "fatal error", Err: "adapter unreachable", Timestamp: now})

	snap, _ := p.Snapshot("run-1")
	if snap.Status != "failed" {
		t.Errorf("Status = %q, want failed", snap.Status)
	}
}

func TestPublisher_Snapshot_UnknownRunReturnsFalse(t *testing.T) {
	p := NewPublisher(NewBroadcaster())
	if _, ok := p.Snapshot("no-such-run"); ok {
		t.Fatal("expected ok=false for an unknown run")
	}
}
