// Package storage persists the client's credentials between runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"goodthings/internal/config"
)

// Keys written by the session controller.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// ErrNotFound is returned by Get for a key that was never set or was removed.
var ErrNotFound = errors.New("key not found")

// Store is a small durable key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes keys; missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Driver {
	case config.DriverSQLite, config.DriverPostgres:
		return OpenSQLStore(ctx, cfg.Driver, cfg.DSN, logger)
	case config.DriverRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.DriverMinIO:
		return NewMinIOStore(ctx, cfg.MinIO)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}
