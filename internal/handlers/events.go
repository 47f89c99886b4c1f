package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jwebster45206/storyarc/internal/services/events"
)

const keepaliveInterval = 30 * time.Second

// EventsHandler handles Server-Sent Events (SSE) for story updates
type EventsHandler struct {
	broadcaster *events.Broadcaster
	logger      *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(broadcaster *events.Broadcaster, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ServeHTTP handles SSE requests for story events
// GET /v1/events/stories/{id}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event streaming is not available")
		return
	}
	storyID := chi.URLParam(r, "id")

	// Subscribe to story events channel and wait for the confirmation so no
	// event published after "connected" is missed.
	pubsub := h.broadcaster.Subscribe(r.Context(), storyID)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(r.Context()); err != nil {
		h.logger.Error("Failed to subscribe to story events", "error", err, "story_id", storyID)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Failed to subscribe to events")
		return
	}

	h.logger.Info("SSE connection established",
		"story_id", storyID,
		"remote_addr", r.RemoteAddr)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(keepaliveInterval)
	defer keepaliveTicker.Stop()

	// Send initial connection event
	h.sendSSE(w, "connected", map[string]any{
		"story_id": storyID,
		"message":  "Connected to event stream",
	})

	for {
		select {
		case <-r.Context().Done():
			// Client disconnected
			h.logger.Info("SSE client disconnected", "story_id", storyID)
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				h.logger.Error("Failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}

			// Forward event to client
			h.sendSSE(w, string(event.Type), event)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

// sendSSE sends a Server-Sent Event to the client
func (h *EventsHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write event", "error", err)
		return
	}
	flush(w)
}

// flush reaches through middleware wrappers that implement Unwrap.
func flush(w http.ResponseWriter) {
	_ = http.NewResponseController(w).Flush()
}
