// Package store provides the key-value persistence behind the lunch cache
// and the visibility settings.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/alandlunch/config"
)

// ErrNotFound is returned by Get when the key has never been written or
// was deleted.
var ErrNotFound = errors.New("store: key not found")

// Store is a durable key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Backend)
	}
}
