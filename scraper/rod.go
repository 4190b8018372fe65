package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/alandlunch/config"
	"github.com/use-agent/alandlunch/models"
	"github.com/ysmood/gson"
)

// RodBrowser drives a headless Chromium. Every tab lives in its own
// incognito browser context.
type RodBrowser struct {
	browser    *rod.Browser
	scraperCfg config.ScraperConfig
}

// NewRodBrowser launches a headless browser and connects to it.
func NewRodBrowser(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*RodBrowser, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &RodBrowser{browser: browser, scraperCfg: scraperCfg}, nil
}

// NewTab opens an incognito context with a single page in it.
//
// Every CDP call made here is bound to ctx, so a wedged browser cannot hold
// a render past its deadline. The returned tab keeps unbound copies so that
// Close still works after the deadline has passed.
//
// Stealth injection and resource blocking are installed before the tab is
// returned: both only take effect for navigations that happen afterwards.
func (b *RodBrowser) NewTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, "render canceled before start")
	}
	bound, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, allocError(ctx, "failed to create incognito context", err)
	}
	incognito := bound.Context(context.Background())

	boundPage, err := bound.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		return nil, allocError(ctx, "failed to create page", err)
	}

	if b.scraperCfg.Stealth {
		if _, evalErr := boundPage.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// Always go to the network: the page changes daily.
	if err := (proto.NetworkEnable{}).Call(boundPage); err != nil {
		slog.Warn("failed to enable network domain", "error", err)
	}
	if err := (proto.NetworkSetCacheDisabled{CacheDisabled: true}).Call(boundPage); err != nil {
		slog.Warn("failed to disable browser cache", "error", err)
	}
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: proto.NetworkHeaders{
			"Cache-Control": gson.New("no-cache"),
			"Pragma":        gson.New("no-cache"),
		},
	}.Call(boundPage)

	if err := ctx.Err(); err != nil {
		_ = incognito.Close()
		return nil, categorizeError(err, "render did not complete in time")
	}

	page := boundPage.Context(context.Background())
	return &rodTab{
		incognito: incognito,
		page:      page,
		router:    setupHijack(page, b.scraperCfg.BlockedResourceTypes),
	}, nil
}

// allocError reports a failed allocation as a timeout when ctx ran out, and
// as a network error otherwise.
func allocError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return categorizeError(ctx.Err(), msg)
	}
	return models.NewScrapeError(models.ErrCodeNetwork, msg, err)
}

// Close kills the browser process.
// Call this on shutdown to prevent zombie Chrome processes.
func (b *RodBrowser) Close() error {
	slog.Info("closing browser")
	return b.browser.Close()
}

type rodTab struct {
	incognito *rod.Browser
	page      *rod.Page
	router    *rod.HijackRouter
}

func (t *rodTab) Navigate(ctx context.Context, url string) error {
	p := t.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation to lunch page failed")
	}
	if err := p.WaitLoad(); err != nil {
		return categorizeError(err, "page did not finish loading")
	}
	return nil
}

func (t *rodTab) HTML(ctx context.Context) (string, error) {
	res, err := t.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", scriptError(ctx, err)
	}
	return res.Value.Str(), nil
}

func (t *rodTab) EvalString(ctx context.Context, js string) (string, error) {
	res, err := t.page.Context(ctx).Eval(js)
	if err != nil {
		return "", scriptError(ctx, err)
	}
	if res.Type != proto.RuntimeRemoteObjectTypeString {
		return "", models.NewScrapeError(
			models.ErrCodeParsing,
			fmt.Sprintf("script returned %s, want string", res.Type),
			nil,
		)
	}
	return res.Value.Str(), nil
}

// Close stops request interception and disposes the incognito context,
// which closes its page along with it.
func (t *rodTab) Close() error {
	if t.router != nil {
		_ = t.router.Stop()
	}
	return t.incognito.Close()
}

func scriptError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return categorizeError(ctx.Err(), "script evaluation interrupted")
	}
	return models.NewScrapeError(models.ErrCodeScriptEvaluation, "script evaluation failed", err)
}
