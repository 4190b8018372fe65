// Package settings stores which restaurants the user has hidden.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/use-agent/alandlunch/store"
)

// Key is the store key the hidden set lives under.
const Key = "hiddenRestaurants"

// Visibility is a persisted set of hidden restaurant IDs. A restaurant is
// visible unless its ID is in the set, so restaurants never seen before
// are visible. Every mutation is written through to the store.
type Visibility struct {
	mu     sync.RWMutex
	store  store.Store
	hidden map[string]struct{}
}

// Open loads the hidden set from s. A missing or unreadable value starts
// from an empty set.
func Open(ctx context.Context, s store.Store) (*Visibility, error) {
	v := &Visibility{store: s, hidden: make(map[string]struct{})}

	raw, err := s.Get(ctx, Key)
	if errors.Is(err, store.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: load: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		slog.Warn("settings: discarding unreadable hidden set", "error", err)
		return v, nil
	}
	for _, id := range ids {
		v.hidden[id] = struct{}{}
	}
	return v, nil
}

// IsVisible reports whether id is not hidden.
func (v *Visibility) IsVisible(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	_, hidden := v.hidden[id]
	return !hidden
}

// HiddenCount returns the number of hidden IDs, including IDs of
// restaurants no longer on the page.
func (v *Visibility) HiddenCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.hidden)
}

// Hidden returns the hidden IDs, sorted.
func (v *Visibility) Hidden() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sortedLocked()
}

// SetHidden hides or shows id.
func (v *Visibility) SetHidden(ctx context.Context, id string, hidden bool) error {
	return v.update(ctx, func() {
		if hidden {
			v.hidden[id] = struct{}{}
		} else {
			delete(v.hidden, id)
		}
	})
}

// Toggle flips id and returns whether it is now visible.
func (v *Visibility) Toggle(ctx context.Context, id string) (bool, error) {
	var visible bool
	err := v.update(ctx, func() {
		if _, hidden := v.hidden[id]; hidden {
			delete(v.hidden, id)
			visible = true
		} else {
			v.hidden[id] = struct{}{}
		}
	})
	return visible, err
}

// ShowAll clears the hidden set.
func (v *Visibility) ShowAll(ctx context.Context) error {
	return v.update(ctx, func() {
		clear(v.hidden)
	})
}

// HideAll hides every id in ids, keeping anything already hidden.
func (v *Visibility) HideAll(ctx context.Context, ids []string) error {
	return v.update(ctx, func() {
		for _, id := range ids {
			v.hidden[id] = struct{}{}
		}
	})
}

// update applies fn and persists the result. On a store failure the
// in-memory set is rolled back.
func (v *Visibility) update(ctx context.Context, fn func()) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	before := make(map[string]struct{}, len(v.hidden))
	for id := range v.hidden {
		before[id] = struct{}{}
	}

	fn()

	raw, err := json.Marshal(v.sortedLocked())
	if err == nil {
		err = v.store.Set(ctx, Key, raw)
	}
	if err != nil {
		v.hidden = before
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

func (v *Visibility) sortedLocked() []string {
	ids := make([]string, 0, len(v.hidden))
	for id := range v.hidden {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
