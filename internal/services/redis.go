package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix  = "story-lock:"
	DefaultLockTTL = 30 * time.Second
)

// Locker serializes work on a single story across processes.
type Locker interface {
	// TryLock returns acquired=false without error when someone else holds
	// the lock. The returned unlock is nil unless acquired.
	TryLock(ctx context.Context, storyID string) (unlock func(), acquired bool, err error)
}

// Only delete if we own the lock
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Only extend if we own the lock
var renewScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// RedisLocker implements Locker with SETNX plus an owner-checked release.
// A held lock is extended every third of its TTL until released, so a slow
// generation cannot outlive it.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *RedisLocker) TryLock(ctx context.Context, storyID string) (func(), bool, error) {
	key := lockKeyPrefix + storyID
	owner := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire story lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	renewCtx, stopRenew := context.WithCancel(context.Background())
	renewed := make(chan struct{})
	go l.renew(renewCtx, key, owner, storyID, renewed)

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			stopRenew()
			<-renewed

			// The caller's context may already be done; release regardless.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.logger.Error("Failed to release story lock", "error", err, "story_id", storyID)
			}
		})
	}
	return unlock, true, nil
}

func (l *RedisLocker) renew(ctx context.Context, key, owner, storyID string, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, l.client, []string{key}, owner, l.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Warn("Failed to extend story lock", "error", err, "story_id", storyID)
				continue
			}
			if n == 0 {
				l.logger.Warn("Story lock expired while held", "story_id", storyID)
				return
			}
		}
	}
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*MemoryLocker)(nil)

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(ctx context.Context, storyID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[storyID]; busy {
		return nil, false, nil
	}
	l.held[storyID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, storyID)
			l.mu.Unlock()
		})
	}, true, nil
}
