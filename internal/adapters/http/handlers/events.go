package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gepa-run/gepa-engine/internal/adapters/eventbus"
)

// EventsHandler streams a run's ports.ProgressUpdate events over SSE.
type EventsHandler struct {
	broadcaster *eventbus.Broadcaster
	publisher   *eventbus.Publisher
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(b *eventbus.Broadcaster, p *eventbus.Publisher) *EventsHandler {
	return &EventsHandler{broadcaster: b, publisher: p}
}

// Stream handles GET /runs/{id}/events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, "internal_error", "streaming not supported", http.StatusInternalServerError)
		return
	}

	eventCh := h.broadcaster.Subscribe(runID)
	defer h.broadcaster.Unsubscribe(runID, eventCh)

	if snap, ok := h.publisher.Snapshot(runID); ok {
		h.write(w, flusher, snap)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case update, ok := <-eventCh:
			if !ok {
				return
			}
			h.write(w, flusher, update)

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				slog.Warn("sse keepalive write failed", "run_id", runID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) write(w http.ResponseWriter, flusher http.Flusher, update any) {
	data, err := json.Marshal(update)
	if err != nil {
		slog.Warn("sse event marshal failed", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
