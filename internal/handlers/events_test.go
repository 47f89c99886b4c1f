package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/storyarc/internal/services/events"
)

// readSSE returns the next event name and data line.
func readSSE(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_StreamsStoryEvents(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/stories/story-9", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	name, data := readSSE(t, r)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, "story-9")

	// Subscribed before "connected" was written, so nothing is lost.
	require.NoError(t, f.broadcaster.PublishRequestQueued(ctx, "story-9", "req-1", "2"))
	require.NoError(t, f.broadcaster.PublishRequestQueued(ctx, "other-story", "req-2", "1"))
	require.NoError(t, f.broadcaster.PublishRequestFailed(ctx, "story-9", "req-1", "generation failed"))

	name, data = readSSE(t, r)
	assert.Equal(t, string(events.EventTypeRequestQueued), name)
	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "req-1", ev.RequestID)

	name, data = readSSE(t, r)
	assert.Equal(t, string(events.EventTypeRequestFailed), name)
	assert.Contains(t, data, "generation failed")
}

func TestEventsHandler_NoBroadcaster(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/events/stories/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWebSocketHandler_StreamsStoryEvents(t *testing.T) {
	f := newAPIFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/stories/story-3"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "connected", msg.Type)

	ctx := context.Background()
	require.NoError(t, f.broadcaster.PublishRequestCompleted(ctx, "story-3", "req-7", map[string]any{"node_id": "n2"}))

	msg = wsMessage{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, events.EventTypeRequestCompleted, msg.Event.Type)
	assert.Equal(t, "req-7", msg.Event.RequestID)
	result, ok := msg.Event.Data["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "n2", result["node_id"])
}

func TestWebSocketHandler_RejectsOrigin(t *testing.T) {
	f := newAPIFixture(t)
	h := NewWebSocketHandler(f.broadcaster, func(*http.Request) bool { return false }, testLogger())
	srv := httptest.NewServer(h)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
