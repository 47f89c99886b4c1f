package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRequestQueued     EventType = "request.queued"
	EventTypeRequestProcessing EventType = "request.processing"
	EventTypeRequestCompleted  EventType = "request.completed"
	EventTypeRequestFailed     EventType = "request.failed"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	StoryID   string         `json:"story_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel returns the pub/sub channel for a story.
func Channel(storyID string) string {
	return fmt.Sprintf("story-events:%s", storyID)
}

// Broadcaster publishes events to Redis Pub/Sub for SSE and WebSocket
// distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishRequestQueued publishes a request.queued event
func (b *Broadcaster) PublishRequestQueued(ctx context.Context, storyID, requestID, choiceID string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestQueued,
		RequestID: requestID,
		StoryID:   storyID,
		Data: map[string]any{
			"status":    "queued",
			"choice_id": choiceID,
		},
	})
}

// PublishRequestProcessing publishes a request.processing event
func (b *Broadcaster) PublishRequestProcessing(ctx context.Context, storyID, requestID, choiceID string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestProcessing,
		RequestID: requestID,
		StoryID:   storyID,
		Data: map[string]any{
			"status":    "processing",
			"choice_id": choiceID,
		},
	})
}

// PublishRequestCompleted publishes a request.completed event. result
// usually carries the new node.
func (b *Broadcaster) PublishRequestCompleted(ctx context.Context, storyID, requestID string, result map[string]any) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestCompleted,
		RequestID: requestID,
		StoryID:   storyID,
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	})
}

// PublishRequestFailed publishes a request.failed event
func (b *Broadcaster) PublishRequestFailed(ctx context.Context, storyID, requestID, errorMsg string) error {
	return b.publish(ctx, Event{
		Type:      EventTypeRequestFailed,
		RequestID: requestID,
		StoryID:   storyID,
		Data: map[string]any{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}

// Subscribe opens a subscription to a story's channel. The caller closes it.
func (b *Broadcaster) Subscribe(ctx context.Context, storyID string) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(storyID))
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.StoryID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)
	return nil
}
