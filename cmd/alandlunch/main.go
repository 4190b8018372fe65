package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/use-agent/alandlunch/cache"
	"github.com/use-agent/alandlunch/config"
	"github.com/use-agent/alandlunch/extract"
	"github.com/use-agent/alandlunch/lunch"
	"github.com/use-agent/alandlunch/menu"
	"github.com/use-agent/alandlunch/scraper"
	"github.com/use-agent/alandlunch/settings"
	"github.com/use-agent/alandlunch/store"
)

type options struct {
	Refresh    bool     `short:"r" long:"refresh" description:"Fetch the lunch page even if today's menu is cached"`
	ClearCache bool     `long:"clear-cache" description:"Delete the cached menu before doing anything else"`
	Hide       []string `long:"hide" value-name:"ID" description:"Hide a restaurant (repeatable)"`
	Show       []string `long:"show" value-name:"ID" description:"Show a hidden restaurant (repeatable)"`
	Toggle     []string `long:"toggle" value-name:"ID" description:"Toggle a restaurant's visibility (repeatable)"`
	ShowAll    bool     `long:"show-all" description:"Show every restaurant"`
	HideAll    bool     `long:"hide-all" description:"Hide every restaurant currently listed"`
	List       bool     `short:"l" long:"list" description:"List restaurant ids and names, hidden ones included"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		slog.Error("alandlunch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	// ── 3. Open persistence ─────────────────────────────────────────
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	vis, err := settings.Open(ctx, st)
	if err != nil {
		return err
	}
	lc := cache.New(st)

	if opts.ClearCache {
		if err := lc.Clear(ctx); err != nil {
			return err
		}
		slog.Info("cache cleared")
	}

	// ── 4. Wire the pipeline ────────────────────────────────────────
	strategy, err := extract.New(cfg.Scraper.Extractor, cfg.Scraper.URL)
	if err != nil {
		return err
	}

	renderer := newLazyRenderer(cfg.Scraper, func() (scraper.Browser, error) {
		return openBrowser(cfg)
	})
	defer renderer.Close()

	svc := lunch.NewService(lunch.Deps{
		Renderer:   renderer,
		Strategy:   strategy,
		Decoder:    menu.NewDecoder(),
		Cache:      lc,
		Visibility: vis,
		URL:        cfg.Scraper.URL,
		Timeout:    cfg.Scraper.Timeout,
		Now:        func() time.Time { return time.Now().In(cfg.Location) },
	})

	slog.Info("alandlunch starting",
		"url", cfg.Scraper.URL,
		"fetchMode", cfg.Scraper.FetchMode,
		"extractor", strategy.Name(),
		"store", cfg.Store.Backend,
	)

	// ── 5. Load cache and refresh if stale ──────────────────────────
	svc.Start(ctx)
	svc.Wait()
	if opts.Refresh && !renderer.used() {
		svc.Refresh(ctx)
	}

	// ── 6. Apply visibility changes ─────────────────────────────────
	if err := applyVisibility(ctx, vis, svc, opts); err != nil {
		return err
	}

	// ── 7. Print ────────────────────────────────────────────────────
	if opts.List {
		printNames(out, svc, vis)
		return nil
	}
	printMenu(out, svc, vis)
	return nil
}

func applyVisibility(ctx context.Context, vis *settings.Visibility, svc *lunch.Service, opts options) error {
	if opts.ShowAll {
		if err := vis.ShowAll(ctx); err != nil {
			return err
		}
	}
	if opts.HideAll {
		names := svc.AllRestaurantNames()
		ids := make([]string, 0, len(names))
		for _, n := range names {
			ids = append(ids, n.ID)
		}
		if err := vis.HideAll(ctx, ids); err != nil {
			return err
		}
	}
	for _, id := range opts.Hide {
		if err := vis.SetHidden(ctx, id, true); err != nil {
			return err
		}
	}
	for _, id := range opts.Show {
		if err := vis.SetHidden(ctx, id, false); err != nil {
			return err
		}
	}
	for _, id := range opts.Toggle {
		if _, err := vis.Toggle(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func openBrowser(cfg *config.Config) (scraper.Browser, error) {
	switch cfg.Scraper.FetchMode {
	case "http":
		return scraper.NewHTTPBrowser(cfg.Browser.DefaultProxy), nil
	case "browser", "":
		return scraper.NewRodBrowser(cfg.Browser, cfg.Scraper)
	default:
		return nil, fmt.Errorf("unknown fetch mode %q", cfg.Scraper.FetchMode)
	}
}

func printMenu(out io.Writer, svc *lunch.Service, vis *settings.Visibility) {
	if msg := svc.Error(); msg != "" {
		fmt.Fprintln(out, msg)
		return
	}

	for _, r := range svc.VisibleRestaurants() {
		fmt.Fprintf(out, "%s\n", r.Name)
		if r.Phone != "" {
			fmt.Fprintf(out, "  tel %s\n", r.Phone)
		}
		for _, s := range r.Sections {
			if s.Title != "" {
				fmt.Fprintf(out, "  %s\n", s.Title)
			}
			for _, it := range s.Items {
				fmt.Fprintf(out, "    %-12s %s  %s\n", it.Category, it.Name, it.Price)
				if it.Description != "" {
					fmt.Fprintf(out, "    %-12s %s\n", "", it.Description)
				}
			}
		}
		fmt.Fprintln(out)
	}

	footer := fmt.Sprintf("%d restaurants", svc.VisibleCount())
	if n := vis.HiddenCount(); n > 0 {
		footer += fmt.Sprintf(" (%d hidden)", n)
	}
	if updated := svc.LastUpdated(); updated != "" {
		footer += ", updated " + updated
	}
	fmt.Fprintln(out, footer)
}

func printNames(out io.Writer, svc *lunch.Service, vis *settings.Visibility) {
	for _, n := range svc.AllRestaurantNames() {
		mark := " "
		if !vis.IsVisible(n.ID) {
			mark = "-"
		}
		fmt.Fprintf(out, "%s %-30s %s\n", mark, n.ID, n.Name)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// the menu on stdout stays clean.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
