package extract_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/alandlunch/config"
	"github.com/use-agent/alandlunch/extract"
	"github.com/use-agent/alandlunch/models"
	"github.com/use-agent/alandlunch/scraper"
)

// Pages both extractors must read the same way.
var agreementPages = map[string]struct {
	body  string
	check func(t *testing.T, got []models.RawRestaurant)
}{
	"/cafe": {
		body: `<div><h2>Café Test</h2><p>Soup    Tomato soup 7.50€</p></div>`,
		check: func(t *testing.T, got []models.RawRestaurant) {
			require.Len(t, got, 1)
			assert.Equal(t, "caf--test", got[0].ID)
			assert.Equal(t, "Tomato soup", got[0].Sections[0].Items[0].Description)
		},
	},
	"/astral": {
		body: `<div><h2>Pizza 🍕</h2><img src="/img/pizza.jpg"><p>Margherita  Tomato, mozzarella 11,90&nbsp;€</p></div>
<section><h3>` + strings.Repeat("🍕", 60) + `</h3><p>Calzone  Folded pizza 13€</p></section>`,
		check: func(t *testing.T, got []models.RawRestaurant) {
			require.Len(t, got, 2)
			assert.Equal(t, "pizza--", got[0].ID)
			assert.Equal(t, "11,90\u00a0€", got[0].Sections[0].Items[0].Price)
			assert.Equal(t, strings.Repeat("-", 60), got[1].ID)
		},
	},
}

func TestScript_AgreesWithHeuristic(t *testing.T) {
	if testing.Short() {
		t.Skip("starts Chromium")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium found")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := agreementPages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<!doctype html><html><head><meta charset="utf-8"></head><body>` + page.body + `</body></html>`))
	}))
	defer srv.Close()

	scraperCfg := config.ScraperConfig{Timeout: 30 * time.Second}
	browser, err := scraper.NewRodBrowser(config.BrowserConfig{Headless: true, NoSandbox: true, BrowserBin: bin}, scraperCfg)
	require.NoError(t, err)
	defer browser.Close()
	renderer := scraper.NewRenderer(browser, scraperCfg)

	for path, page := range agreementPages {
		t.Run(strings.TrimPrefix(path, "/"), func(t *testing.T) {
			url := srv.URL + path
			var fromScript, fromGo []models.RawRestaurant

			err := renderer.Render(context.Background(), url, 0, func(ctx context.Context, doc scraper.Document) error {
				raw, err := extract.Script{}.Extract(ctx, doc)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &fromScript); err != nil {
					return err
				}
				raw, err = extract.Heuristic{BaseURL: url}.Extract(ctx, doc)
				if err != nil {
					return err
				}
				return json.Unmarshal(raw, &fromGo)
			})
			require.NoError(t, err)

			assert.Equal(t, fromGo, fromScript)
			page.check(t, fromGo)
		})
	}
}
