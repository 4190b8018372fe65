package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{
		"LUNCH_URL", "LUNCH_TIMEOUT", "LUNCH_SETTLE_DELAY", "LUNCH_FETCH_MODE",
		"LUNCH_EXTRACTOR", "LUNCH_STORE", "LUNCH_TIMEZONE", "LUNCH_BLOCKED_RESOURCES",
	} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "https://www.aland.com/lunch", cfg.Scraper.URL)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Scraper.SettleDelay)
	assert.Equal(t, "browser", cfg.Scraper.FetchMode)
	assert.Equal(t, "heuristic", cfg.Scraper.Extractor)
	assert.Equal(t, []string{"Image", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.NotEmpty(t, cfg.Store.Dir)
	assert.Equal(t, time.Local, cfg.Location)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LUNCH_URL", "https://example.com/menu")
	t.Setenv("LUNCH_TIMEOUT", "5s")
	t.Setenv("LUNCH_SETTLE_DELAY", "250ms")
	t.Setenv("LUNCH_BLOCKED_RESOURCES", "Image, Stylesheet ,")
	t.Setenv("LUNCH_TIMEZONE", "Europe/Mariehamn")
	t.Setenv("LUNCH_HEADLESS", "false")

	cfg := Load()

	assert.Equal(t, "https://example.com/menu", cfg.Scraper.URL)
	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Scraper.SettleDelay)
	assert.Equal(t, []string{"Image", "Stylesheet"}, cfg.Scraper.BlockedResourceTypes)
	assert.Equal(t, "Europe/Mariehamn", cfg.Location.String())
	assert.False(t, cfg.Browser.Headless)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LUNCH_TIMEOUT", "soon")
	t.Setenv("LUNCH_TIMEZONE", "Nowhere/Atlantis")
	t.Setenv("LUNCH_STEALTH", "maybe")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, time.Local, cfg.Location)
	assert.False(t, cfg.Scraper.Stealth)
}
