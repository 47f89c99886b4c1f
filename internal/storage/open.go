package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/storyarc/pkg/storage"
)

// Backend names accepted by Open.
const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend       string
	RedisURL      string
	TTL           time.Duration
	MongoURI      string
	MongoDatabase string
	SQLitePath    string
}

// Open constructs the configured backend and checks it is reachable.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (storage.Storage, error) {
	switch opts.Backend {
	case BackendRedis, "":
		r, err := NewRedisStorage(opts.RedisURL, opts.TTL, logger)
		if err != nil {
			return nil, err
		}
		if err := r.WaitForConnection(ctx); err != nil {
			return nil, err
		}
		return r, nil
	case BackendMongo:
		return NewMongoStorage(ctx, opts.MongoURI, opts.MongoDatabase, logger)
	case BackendSQLite:
		return OpenSQLite(opts.SQLitePath, logger)
	case BackendMemory:
		logger.Warn("Using in-memory storage; stories are lost on restart")
		return storage.NewMockStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
