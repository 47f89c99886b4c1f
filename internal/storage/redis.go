package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/storyarc/pkg/story"
	"github.com/jwebster45206/storyarc/pkg/storage"
)

const (
	storyKeyPrefix     = "story:"
	userIndexKeyPrefix = "user-stories:"
	shareKeyPrefix     = "share:"
	anonymousUser      = "anonymous"
)

// RedisStorage keeps each story as one JSON document, with a sorted set per
// user for listings and a token key per shared story.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	// ttl of 0 keeps stories forever.
	ttl time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance from a redis:// URL.
func NewRedisStorage(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisStorageWithClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStorageWithClient wraps an existing client.
func NewRedisStorageWithClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStorage {
	return &RedisStorage{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Client exposes the underlying client so the lock and queue can share it.
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Story operations

func (r *RedisStorage) SaveStory(ctx context.Context, s *story.Story) error {
	if s == nil {
		return errors.New("story cannot be nil")
	}
	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal story", "story_id", s.ID, "error", err)
		return fmt.Errorf("failed to marshal story: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, storyKeyPrefix+s.ID, data, r.ttl)
		pipe.ZAdd(ctx, userIndexKey(s.UserID), redis.Z{
			Score:  float64(s.LastUpdated.UnixMilli()),
			Member: s.ID,
		})
		if s.ShareToken != "" {
			pipe.Set(ctx, shareKeyPrefix+s.ShareToken, s.ID, r.ttl)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save story", "story_id", s.ID, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadStory(ctx context.Context, id string) (*story.Story, error) {
	data, err := r.client.Get(ctx, storyKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		r.logger.Error("Failed to load story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Error("Failed to unmarshal story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal story: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) DeleteStory(ctx context.Context, id string) error {
	s, err := r.LoadStory(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, storyKeyPrefix+id)
		pipe.ZRem(ctx, userIndexKey(s.UserID), id)
		if s.ShareToken != "" {
			pipe.Del(ctx, shareKeyPrefix+s.ShareToken)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete story", "story_id", id, "error", err)
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListStories(ctx context.Context, userID string) ([]story.Metadata, error) {
	indexKey := userIndexKey(userID)
	ids, err := r.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	out := []story.Metadata{}
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = storyKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load story metadata: %w", err)
	}

	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Expired or deleted behind our back.
			stale = append(stale, ids[i])
			continue
		}
		var md story.Metadata
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			r.logger.Warn("Skipping unreadable story", "story_id", ids[i], "error", err)
			continue
		}
		out = append(out, md)
	}
	if len(stale) > 0 {
		if err := r.client.ZRem(ctx, indexKey, stale...).Err(); err != nil {
			r.logger.Warn("Failed to prune story index", "user_id", userID, "error", err)
		}
	}
	return out, nil
}

func (r *RedisStorage) LoadStoryByShareToken(ctx context.Context, token string) (*story.Story, error) {
	if token == "" {
		return nil, storage.ErrNotFound
	}
	id, err := r.client.Get(ctx, shareKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve share token: %w", err)
	}
	s, err := r.LoadStory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsShareable || s.ShareToken != token {
		return nil, storage.ErrNotFound
	}
	return s, nil
}

func userIndexKey(userID string) string {
	if userID == "" {
		userID = anonymousUser
	}
	return userIndexKeyPrefix + userID
}
