package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/use-agent/alandlunch/config"
	"github.com/use-agent/alandlunch/models"
)

// UseFunc reads a rendered document. It runs while the tab is still open.
type UseFunc func(ctx context.Context, doc Document) error

// Renderer loads a page in a fresh tab, waits for it to settle and hands the
// document to a UseFunc. Renders are serialized.
type Renderer struct {
	browser Browser
	cfg     config.ScraperConfig

	// sem holds one token per render in flight. The worker that owns the
	// tab returns it, so a render abandoned at its deadline still blocks
	// the next one until its tab is closed.
	sem chan struct{}
}

// NewRenderer creates a Renderer on top of b.
func NewRenderer(b Browser, cfg config.ScraperConfig) *Renderer {
	return &Renderer{browser: b, cfg: cfg, sem: make(chan struct{}, 1)}
}

// Render loads url and calls use with the rendered document.
//
// Lifecycle:
//
//  1. Timeout guard   – hard deadline on the entire operation, including
//     waiting for an earlier render and allocating the tab
//  2. Worker          – opens the tab, loads, settles, runs use, and closes
//     the tab before it reports
//  3. Race            – the worker and the deadline write to one result
//     slot; the first write wins and the other is dropped
//
// When the deadline wins, Render returns at once and the worker releases
// the tab as soon as the browser lets go of it.
//
// A timeout <= 0 uses the configured default.
func (r *Renderer) Render(ctx context.Context, url string, timeout time.Duration, use UseFunc) error {
	// ── 1. Timeout guard ──────────────────────────────────────────────
	if timeout <= 0 {
		timeout = r.cfg.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return categorizeError(ctx.Err(), "render did not complete in time")
	}

	// ── 2. Worker ─────────────────────────────────────────────────────
	slot := newOutcome()
	done := make(chan struct{})
	go func() {
		defer func() { <-r.sem }()
		defer close(done)
		slot.settle(r.run(ctx, url, use))
	}()

	// ── 3. Race against the deadline ──────────────────────────────────
	go func() {
		select {
		case <-ctx.Done():
			if slot.settle(categorizeError(ctx.Err(), "render did not complete in time")) {
				slog.Warn("render: deadline reached", "url", url, "timeout", timeout)
			}
		case <-done:
		}
	}()

	return slot.wait()
}

// run owns one tab from allocation to release. The tab is closed before run
// returns.
func (r *Renderer) run(ctx context.Context, url string, use UseFunc) error {
	tab, err := r.browser.NewTab(ctx)
	if err != nil {
		return categorizeError(err, "failed to open browsing context")
	}
	defer func() {
		if closeErr := tab.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to close browsing context", "error", closeErr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return categorizeError(err, "render did not complete in time")
	}
	return r.load(ctx, tab, url, use)
}

func (r *Renderer) load(ctx context.Context, tab Tab, url string, use UseFunc) error {
	slog.Debug("render: navigating", "url", url)
	if err := tab.Navigate(ctx, url); err != nil {
		return categorizeError(err, "navigation to lunch page failed")
	}

	// Client-side scripts get a fixed grace period to fill the page.
	// Tabs that never run scripts have nothing to wait for.
	if delay := r.cfg.SettleDelay; delay > 0 && runsScripts(tab) {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return categorizeError(ctx.Err(), "render did not complete in time")
		}
	}

	return use(ctx, tab)
}

// outcome is a single-assignment result slot.
type outcome struct {
	once sync.Once
	ch   chan error
}

func newOutcome() *outcome {
	return &outcome{ch: make(chan error, 1)}
}

// settle stores err if nothing has been stored yet and reports whether it won.
func (o *outcome) settle(err error) bool {
	won := false
	o.once.Do(func() {
		o.ch <- err
		won = true
	})
	return won
}

func (o *outcome) wait() error {
	return <-o.ch
}

// categorizeError wraps raw errors into typed ScrapeErrors. Errors that are
// already typed pass through unchanged.
func categorizeError(err error, msg string) error {
	var se *models.ScrapeError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return se
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNetwork, msg, err)
	}
}
