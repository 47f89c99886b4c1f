package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/jwebster45206/storyarc/internal/services/events"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsReadLimit  = 512
)

// WebSocketHandler streams story events over a WebSocket. It carries the
// same events as the SSE endpoint.
type WebSocketHandler struct {
	broadcaster *events.Broadcaster
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewWebSocketHandler creates the handler. checkOrigin may be nil to allow
// any origin.
func NewWebSocketHandler(broadcaster *events.Broadcaster, checkOrigin func(*http.Request) bool, logger *slog.Logger) *WebSocketHandler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &WebSocketHandler{
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// wsMessage is the envelope written to the socket.
type wsMessage struct {
	Type  string        `json:"type"`
	Event *events.Event `json:"event,omitempty"`
	Time  int64         `json:"time"`
}

// ServeHTTP handles GET /v1/ws/stories/{id}
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.broadcaster == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Event streaming is not available")
		return
	}
	storyID := chi.URLParam(r, "id")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.logger.Warn("WebSocket upgrade failed", "error", err, "story_id", storyID)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	pubsub := h.broadcaster.Subscribe(ctx, storyID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe to story events", "error", err, "story_id", storyID)
		return
	}
	h.logger.Info("WebSocket connection established", "story_id", storyID, "remote_addr", r.RemoteAddr)

	// The read loop only handles control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsReadLimit)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, wsMessage{Type: "connected", Time: time.Now().Unix()}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	msgChan := pubsub.Channel()

	for {
		select {
		case <-closed:
			h.logger.Info("WebSocket client disconnected", "story_id", storyID)
			return
		case <-ctx.Done():
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
			if err := h.write(conn, wsMessage{Type: "event", Event: &event, Time: time.Now().Unix()}); err != nil {
				h.logger.Warn("Failed to write to WebSocket", "error", err, "story_id", storyID)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, msg wsMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
