package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/storyarc/pkg/queue"
)

const requestsKey = "requests"

// RequestQueue is the global FIFO of advance requests shared by all workers.
// Its Redis connection also carries story events and locks.
type RequestQueue struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRequestQueue uses an existing connection.
func NewRequestQueue(rdb *redis.Client, logger *slog.Logger) *RequestQueue {
	return &RequestQueue{
		rdb:    rdb,
		logger: logger,
	}
}

// Dial connects to Redis and returns a queue that owns the connection.
func Dial(ctx context.Context, redisURL string, logger *slog.Logger) (*RequestQueue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis for the request queue", "addr", opt.Addr)
	return NewRequestQueue(rdb, logger), nil
}

// Redis returns the underlying connection.
func (q *RequestQueue) Redis() *redis.Client {
	return q.rdb
}

// Close closes the Redis connection.
func (q *RequestQueue) Close() error {
	return q.rdb.Close()
}

// Enqueue adds a request to the end of the queue
func (q *RequestQueue) Enqueue(ctx context.Context, req *queue.Request) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}
	if err := q.rdb.RPush(ctx, requestsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue request: %w", err)
	}
	q.logger.Debug("Request enqueued", "request_id", req.RequestID, "story_id", req.StoryID)
	return nil
}

// Dequeue removes and returns the next request.
// Returns nil if queue is empty
func (q *RequestQueue) Dequeue(ctx context.Context) (*queue.Request, error) {
	result, err := q.rdb.LPop(ctx, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}
	return q.decode(result)
}

// BlockingDequeue waits up to timeout for a request. It returns nil, nil
// when the wait times out or ctx is done.
func (q *RequestQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.Request, error) {
	result, err := q.rdb.BLPop(ctx, timeout, requestsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue request: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}
	return q.decode(result[1])
}

func (q *RequestQueue) decode(raw string) (*queue.Request, error) {
	req, err := queue.FromJSON([]byte(raw))
	if err != nil {
		// A poison message would otherwise block the worker forever.
		q.logger.Error("Dropping unreadable request", "error", err, "payload", raw)
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return req, nil
}

// Depth returns the number of queued requests
func (q *RequestQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.rdb.LLen(ctx, requestsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get request queue depth: %w", err)
	}
	return int(count), nil
}
