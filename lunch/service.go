// Package lunch drives a refresh through render, extract, decode and
// reconcile, and exposes the resulting read model.
package lunch

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/use-agent/alandlunch/cache"
	"github.com/use-agent/alandlunch/extract"
	"github.com/use-agent/alandlunch/menu"
	"github.com/use-agent/alandlunch/models"
	"github.com/use-agent/alandlunch/reconcile"
	"github.com/use-agent/alandlunch/scraper"
	"github.com/use-agent/alandlunch/settings"
)

// State is the refresh state machine: Idle -> Loading -> {Success, Failed}.
type State int32

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Renderer loads a page and hands the rendered document to use.
// *scraper.Renderer satisfies it.
type Renderer interface {
	Render(ctx context.Context, url string, timeout time.Duration, use scraper.UseFunc) error
}

// Deps wires a Service.
type Deps struct {
	Renderer   Renderer
	Strategy   extract.Strategy
	Decoder    *menu.Decoder
	Cache      *cache.LunchCache
	Visibility *settings.Visibility

	URL     string
	Timeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// RestaurantName pairs an id with its display name.
type RestaurantName struct {
	ID   string
	Name string
}

// Service owns the displayed restaurants. All methods are safe for
// concurrent use.
type Service struct {
	deps Deps
	now  func() time.Time

	loading atomic.Bool
	state   atomic.Int32
	wg      sync.WaitGroup

	mu          sync.RWMutex
	restaurants []models.Restaurant
	fetchedAt   time.Time
	errMsg      string
}

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		deps:        deps,
		now:         now,
		restaurants: []models.Restaurant{},
	}
}

// Start shows the cached snapshot, if any, and starts a background refresh
// when there is no snapshot or it is from an earlier day. Use Wait to block
// until that refresh finishes.
func (s *Service) Start(ctx context.Context) {
	cached, err := s.deps.Cache.Load(ctx)
	if err != nil {
		slog.Warn("lunch: cache load failed", "error", err)
	}

	if cached != nil {
		s.mu.Lock()
		s.restaurants = cached.Restaurants
		if s.restaurants == nil {
			s.restaurants = []models.Restaurant{}
		}
		s.fetchedAt = cached.FetchedAt
		s.mu.Unlock()
	}

	if !reconcile.NeedsRefresh(cached, s.now()) {
		slog.Debug("lunch: cache is fresh", "fetched_at", cached.FetchedAt)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Refresh(ctx)
	}()
}

// Wait blocks until refreshes started by Start have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Refresh fetches the page and reconciles the result with what is shown.
// It returns false without doing anything if a refresh is already running.
func (s *Service) Refresh(ctx context.Context) bool {
	if !s.loading.CompareAndSwap(false, true) {
		slog.Debug("lunch: refresh already in flight")
		return false
	}
	final := StateFailed
	s.state.Store(int32(StateLoading))
	defer func() {
		s.state.Store(int32(final))
		s.loading.Store(false)
	}()

	start := time.Now()
	fetched, fetchErr := s.fetch(ctx)
	now := s.now()

	if fetchErr != nil {
		slog.Warn("lunch: refresh failed", "url", s.deps.URL, "error", fetchErr, "elapsed", time.Since(start))
	} else {
		slog.Info("lunch: refresh finished", "url", s.deps.URL, "restaurants", len(fetched), "elapsed", time.Since(start))
	}

	s.mu.Lock()
	previous := &models.LunchData{Restaurants: s.restaurants, FetchedAt: s.fetchedAt}
	out := reconcile.Reconcile(previous, fetched, fetchErr, now)
	s.restaurants = out.ToDisplay
	s.errMsg = out.UserError
	if out.ToPersist != nil {
		s.fetchedAt = out.ToPersist.FetchedAt
	}
	s.mu.Unlock()

	if out.ToPersist != nil {
		final = StateSuccess
		if err := s.deps.Cache.Save(ctx, *out.ToPersist); err != nil {
			slog.Warn("lunch: cache save failed", "error", err)
		}
	}
	return true
}

func (s *Service) fetch(ctx context.Context) ([]models.Restaurant, error) {
	var restaurants []models.Restaurant
	err := s.deps.Renderer.Render(ctx, s.deps.URL, s.deps.Timeout, func(ctx context.Context, doc scraper.Document) error {
		raw, err := s.deps.Strategy.Extract(ctx, doc)
		if err != nil {
			return err
		}
		restaurants, err = s.deps.Decoder.Decode(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restaurants, nil
}

// State returns the current refresh state.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Error returns the message to show in place of the list, or "" when the
// list has something to show.
func (s *Service) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Restaurants returns every displayed restaurant, hidden or not.
func (s *Service) Restaurants() []models.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.restaurants)
}

// VisibleRestaurants returns the displayed restaurants the user has not
// hidden, in page order.
func (s *Service) VisibleRestaurants() []models.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	visible := make([]models.Restaurant, 0, len(s.restaurants))
	for _, r := range s.restaurants {
		if s.deps.Visibility.IsVisible(r.ID) {
			visible = append(visible, r)
		}
	}
	return visible
}

// VisibleCount returns len(VisibleRestaurants()).
func (s *Service) VisibleCount() int {
	return len(s.VisibleRestaurants())
}

// AllRestaurantNames returns every displayed restaurant sorted by name.
func (s *Service) AllRestaurantNames() []RestaurantName {
	s.mu.RLock()
	names := make([]RestaurantName, 0, len(s.restaurants))
	for _, r := range s.restaurants {
		names = append(names, RestaurantName{ID: r.ID, Name: r.Name})
	}
	s.mu.RUnlock()

	slices.SortStableFunc(names, func(a, b RestaurantName) int {
		return strings.Compare(a.Name, b.Name)
	})
	return names
}

var relMagnitudes = []humanize.RelTimeMagnitude{
	{D: time.Minute, Format: "just now", DivBy: time.Second},
	{D: time.Hour, Format: "%dm %s", DivBy: time.Minute},
	{D: humanize.Day, Format: "%dh %s", DivBy: time.Hour},
	{D: humanize.Week, Format: "%dd %s", DivBy: humanize.Day},
	{D: math.MaxInt64, Format: "%dw %s", DivBy: humanize.Week},
}

// LastUpdated formats the time of the last successful fetch relative to
// now, e.g. "2h ago". It returns "" if nothing has been fetched.
func (s *Service) LastUpdated() string {
	s.mu.RLock()
	fetchedAt := s.fetchedAt
	s.mu.RUnlock()

	if fetchedAt.IsZero() {
		return ""
	}
	return humanize.CustomRelTime(fetchedAt, s.now(), "ago", "from now", relMagnitudes)
}

// ClearCache deletes the persisted snapshot. The displayed list is kept
// until the next refresh.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.deps.Cache.Clear(ctx)
}
