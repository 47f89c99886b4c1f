// Package app wires the shared components used by the API and worker
// binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/storyarc/internal/config"
	"github.com/jwebster45206/storyarc/internal/genres"
	"github.com/jwebster45206/storyarc/internal/orchestrator"
	"github.com/jwebster45206/storyarc/internal/services"
	"github.com/jwebster45206/storyarc/internal/services/events"
	"github.com/jwebster45206/storyarc/internal/services/queue"
	"github.com/jwebster45206/storyarc/internal/storage"
	"github.com/jwebster45206/storyarc/pkg/arcs"
	"github.com/jwebster45206/storyarc/pkg/characters"
	pkgstorage "github.com/jwebster45206/storyarc/pkg/storage"
)

// App holds the long-lived components. Queue and Broadcaster are nil when
// Redis is unavailable.
type App struct {
	Storage      pkgstorage.Storage
	Generator    services.TextGenerator
	Orchestrator *orchestrator.Orchestrator
	Queue        *queue.RequestQueue
	Broadcaster  *events.Broadcaster

	logger *slog.Logger
}

// Build connects storage, the text generator, and Redis. When requireRedis
// is false a Redis outage only disables async advance and event streams.
func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, requireRedis bool) (*App, error) {
	store, err := storage.Open(ctx, cfg.StorageOptions(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	log.Info("Storage connection established", "backend", cfg.StorageBackend)

	gen, err := services.NewGenerator(ctx, cfg.ProviderOptions(), log)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}
	log.Info("Text generator ready", "provider", cfg.LLMProvider, "model", cfg.ModelName)

	pools := arcs.DefaultPools()
	n, err := pools.LoadPacksDir(cfg.ThemesDir)
	if err != nil {
		// Valid packs are still applied.
		log.Warn("Some theme packs failed to load", "error", err, "dir", cfg.ThemesDir)
	}
	if n > 0 {
		log.Info("Theme packs loaded", "count", n, "dir", cfg.ThemesDir)
	}
	planner := arcs.NewPlanner(pools, cfg.ArcConfig(), arcs.WithLogger(log))

	ladder := genres.NewLadder(gen, nil, cfg.LadderConfig(), log)
	registry := genres.NewRegistry(ladder)
	extractor := characters.NewExtractor(log)

	a := &App{Storage: store, Generator: gen, logger: log}

	var locker services.Locker
	q, err := queue.Dial(ctx, cfg.RedisURL, log)
	switch {
	case err == nil:
		a.Queue = q
		a.Broadcaster = events.NewBroadcaster(q.Redis(), log)
		locker = services.NewRedisLocker(q.Redis(), cfg.LockTTL, log)
	case requireRedis:
		_ = store.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	default:
		log.Warn("Redis unavailable; async advance and event streams are disabled", "error", err)
		locker = services.NewMemoryLocker()
	}

	a.Orchestrator = orchestrator.New(store, registry, planner, extractor, locker, log)
	return a, nil
}

// Redis returns the shared Redis client, or nil.
func (a *App) Redis() *redis.Client {
	if a.Queue == nil {
		return nil
	}
	return a.Queue.Redis()
}

// Close releases storage and Redis connections.
func (a *App) Close() error {
	var errs []error
	if err := a.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
