package main

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/alandlunch/config"
	"github.com/use-agent/alandlunch/models"
	"github.com/use-agent/alandlunch/scraper"
)

// lazyRenderer launches the browser on the first render, so runs served
// from a fresh cache never start Chromium. The launch counts against the
// render's deadline; a launch that outlives it keeps going in the
// background and serves the next render.
type lazyRenderer struct {
	open func() (scraper.Browser, error)
	cfg  config.ScraperConfig

	once    sync.Once
	started atomic.Bool
	ready   chan struct{}

	// Set before ready is closed.
	browser  scraper.Browser
	renderer *scraper.Renderer
	err      error
}

func newLazyRenderer(cfg config.ScraperConfig, open func() (scraper.Browser, error)) *lazyRenderer {
	return &lazyRenderer{open: open, cfg: cfg, ready: make(chan struct{})}
}

func (l *lazyRenderer) start() {
	l.once.Do(func() {
		l.started.Store(true)
		go func() {
			defer close(l.ready)
			l.browser, l.err = l.open()
			if l.err != nil {
				slog.Warn("browser launch failed", "error", l.err)
				return
			}
			l.renderer = scraper.NewRenderer(l.browser, l.cfg)
		}()
	})
}

func (l *lazyRenderer) Render(ctx context.Context, url string, timeout time.Duration, use scraper.UseFunc) error {
	if timeout <= 0 {
		timeout = l.cfg.Timeout
	}
	deadline := time.Now().Add(timeout)

	l.start()
	wait := time.NewTimer(timeout)
	defer wait.Stop()
	select {
	case <-l.ready:
	case <-wait.C:
		return models.NewScrapeError(models.ErrCodeTimeout, "browser did not start in time", nil)
	case <-ctx.Done():
		return models.NewScrapeError(models.ErrCodeTimeout, "browser did not start in time", ctx.Err())
	}
	if l.err != nil {
		return l.err
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return models.NewScrapeError(models.ErrCodeTimeout, "browser did not start in time", nil)
	}
	return l.renderer.Render(ctx, url, remaining, use)
}

func (l *lazyRenderer) used() bool {
	return l.started.Load()
}

// Close waits for a pending launch so no browser process is left behind.
func (l *lazyRenderer) Close() error {
	if !l.started.Load() {
		return nil
	}
	<-l.ready
	if l.browser == nil {
		return nil
	}
	return l.browser.Close()
}
