package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/storyarc/internal/handlers"
	"github.com/jwebster45206/storyarc/internal/services/events"
)

// AdvanceTimeout is max time to wait for a worker to finish a chapter
const AdvanceTimeout = 90 * time.Second

// StreamEvents opens the story's SSE stream and returns a channel of events.
// The stream is subscribed once "connected" has been received.
func StreamEvents(ctx context.Context, client *http.Client, baseURL, storyID string) (<-chan events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/v1/events/stories/%s", baseURL, storyID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create events request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The shared client's timeout would cut the stream.
	streamClient := &http.Client{Transport: client.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("events endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	reader := bufio.NewReader(resp.Body)
	name, _, err := readEvent(reader)
	if err != nil || name != "connected" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("expected connected event, got %q: %v", name, err)
	}

	out := make(chan events.Event, 8)
	go func() {
		defer close(out)
		defer func() { _ = resp.Body.Close() }()
		for {
			_, data, err := readEvent(reader)
			if err != nil {
				return
			}
			var ev events.Event
			if json.Unmarshal([]byte(data), &ev) != nil {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func readEvent(r *bufio.Reader) (name, data string, err error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", "", err
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data, nil
		}
	}
}

// PostAdvanceAsync queues an advance and returns the request id
func PostAdvanceAsync(ctx context.Context, client *http.Client, baseURL, storyID, choiceID string) (string, error) {
	body, err := json.Marshal(map[string]string{"choice_id": choiceID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/stories/%s/advance", baseURL, storyID), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create advance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send advance request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		b, _ := io.ReadAll(resp.Body)
		return "", &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	var accepted handlers.AdvanceAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", fmt.Errorf("failed to parse advance response: %w", err)
	}
	return accepted.RequestID, nil
}

// WaitForCompletion waits for the request's completed or failed event
func WaitForCompletion(ctx context.Context, stream <-chan events.Event, requestID string) (events.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, AdvanceTimeout)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return events.Event{}, fmt.Errorf("timed out waiting for request %s", requestID)
		case ev, ok := <-stream:
			if !ok {
				return events.Event{}, fmt.Errorf("event stream closed before request %s finished", requestID)
			}
			if ev.RequestID != requestID {
				continue
			}
			switch ev.Type {
			case events.EventTypeRequestCompleted:
				return ev, nil
			case events.EventTypeRequestFailed:
				return ev, fmt.Errorf("request %s failed: %v", requestID, ev.Data["error"])
			}
		}
	}
}
