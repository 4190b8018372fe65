// Package cache persists the last successful lunch fetch.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/use-agent/alandlunch/models"
	"github.com/use-agent/alandlunch/store"
)

// Key is the store key the snapshot lives under.
const Key = "cachedLunchData"

// LunchCache holds at most one LunchData snapshot.
// It is safe for concurrent use.
type LunchCache struct {
	mu    sync.Mutex
	store store.Store
}

// New creates a LunchCache backed by s.
func New(s store.Store) *LunchCache {
	return &LunchCache{store: s}
}

// Load returns the cached snapshot, or nil if none has been saved.
// An unreadable snapshot is treated as a miss.
func (c *LunchCache) Load(ctx context.Context) (*models.LunchData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.store.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: load: %w", err)
	}

	var data models.LunchData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Warn("cache: discarding unreadable snapshot", "error", err)
		return nil, nil
	}
	return &data, nil
}

// Save replaces the snapshot with data.
func (c *LunchCache) Save(ctx context.Context, data models.LunchData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("cache: save: %w", err)
	}
	return nil
}

// Clear removes the snapshot.
func (c *LunchCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}
