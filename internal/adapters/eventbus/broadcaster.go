// Package eventbus fans engine events out to in-process subscribers
// (the HTTP server's SSE handler) without any external broker.
package eventbus

import (
	"log/slog"
	"sync"

	"github.com/gepa-run/gepa-engine/internal/ports"
)

const subscriberBufferSize = 32

// Broadcaster is an in-process implementation of ports.ProgressBroadcaster:
// one fan-out channel set per run ID, guarded by a single mutex. A slow
// subscriber is dropped from a broadcast rather than blocking the run.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[chan ports.ProgressUpdate]struct{}
	log  *slog.Logger
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]map[chan ports.ProgressUpdate]struct{}),
		log:  slog.Default(),
	}
}

// Subscribe implements ports.ProgressBroadcaster.
func (b *Broadcaster) Subscribe(runID string) <-chan ports.ProgressUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ports.ProgressUpdate, subscriberBufferSize)
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[chan ports.ProgressUpdate]struct{})
	}
	b.subs[runID][ch] = struct{}{}
	b.log.Info("broadcaster subscribed", "run_id", runID, "subscribers", len(b.subs[runID]))
	return ch
}

// Unsubscribe implements ports.ProgressBroadcaster.
func (b *Broadcaster) Unsubscribe(runID string, ch <-chan ports.ProgressUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subs[runID]
	if !ok {
		return
	}
	for candidate := range subs {
		if candidate == ch {
			delete(subs, candidate)
			close(candidate)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, runID)
	}
}

// Broadcast implements ports.ProgressBroadcaster. It never blocks: a
// subscriber whose buffer is full is dropped from this broadcast only; it
// stays subscribed and receives later broadcasts once it has room.
func (b *Broadcaster) Broadcast(runID string, update ports.ProgressUpdate) {
	b.mu.RLock()
	subs, ok := b.subs[runID]
	if !ok {
		b.mu.RUnlock()
		return
	}
	targets := make([]chan ports.ProgressUpdate, 0, len(subs))
	for ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- update:
		default:
			b.log.Warn("dropping progress update for slow subscriber", "run_id", runID)
		}
	}
}

// Close implements ports.ProgressBroadcaster: it closes and removes every
// subscriber channel for runID, signaling end-of-stream to the SSE
// handler ranging over the channel.
func (b *Broadcaster) Close(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[runID] {
		close(ch)
	}
	delete(b.subs, runID)
}
