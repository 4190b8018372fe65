package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/alandlunch/models"
)

func TestHTTPTab_NavigateBypassesCache(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div><h2>Bistro</h2></div></body></html>`))
	}))
	defer srv.Close()

	tab, err := NewHTTPBrowser("").NewTab(context.Background())
	require.NoError(t, err)
	defer tab.Close()

	require.NoError(t, tab.Navigate(context.Background(), srv.URL))
	html, err := tab.HTML(context.Background())
	require.NoError(t, err)

	got := <-headers
	assert.Contains(t, html, "Bistro")
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
	assert.Equal(t, chromeUA, got.Get("User-Agent"))
}

func TestHTTPTab_ErrorStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusBadGateway)
	}))
	defer srv.Close()

	tab, err := NewHTTPBrowser("").NewTab(context.Background())
	require.NoError(t, err)
	defer tab.Close()

	err = tab.Navigate(context.Background(), srv.URL)
	assert.Equal(t, models.ErrCodeNetwork, codeOf(t, err))
	assert.ErrorContains(t, err, "HTTP 502")
}

func TestHTTPTab_EvalUnsupported(t *testing.T) {
	tab, err := NewHTTPBrowser("").NewTab(context.Background())
	require.NoError(t, err)
	defer tab.Close()

	_, err = tab.EvalString(context.Background(), "() => 'x'")
	assert.Equal(t, models.ErrCodeScriptEvaluation, codeOf(t, err))
}

func TestHTTPBrowser_ThroughRenderer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>Soup 7€</p>`))
	}))
	defer srv.Close()

	r := NewRenderer(NewHTTPBrowser(""), testConfig())
	var html string
	err := r.Render(context.Background(), srv.URL, 0, func(ctx context.Context, doc Document) error {
		var err error
		html, err = doc.HTML(ctx)
		return err
	})

	require.NoError(t, err)
	assert.Contains(t, html, "Soup 7€")
}

func TestHTTPBrowser_SkipsSettleDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<p>Soup 7€</p>`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Timeout = 10 * time.Second
	cfg.SettleDelay = 5 * time.Second
	r := NewRenderer(NewHTTPBrowser(""), cfg)

	start := time.Now()
	err := r.Render(context.Background(), srv.URL, 0, func(ctx context.Context, doc Document) error {
		return nil
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
