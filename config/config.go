package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Browser BrowserConfig
	Scraper ScraperConfig
	Store   StoreConfig
	Log     LogConfig

	// Location defines the calendar day used for staleness checks.
	Location *time.Location
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// DefaultProxy is the proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls how the lunch page is loaded and read.
type ScraperConfig struct {
	// URL is the lunch page.
	URL string // default: https://www.aland.com/lunch

	// Timeout bounds a whole render, from navigation to extraction.
	Timeout time.Duration // default: 30s

	// SettleDelay is the grace period after the load event before the DOM
	// is read, so client-side scripts can populate the page.
	SettleDelay time.Duration // default: 2s

	// FetchMode selects the browsing engine: "browser" or "http".
	FetchMode string // default: "browser"

	// Extractor selects the extraction strategy: "heuristic" or "script".
	Extractor string // default: "heuristic"

	// Stealth masks navigator.webdriver and similar automation hints.
	Stealth bool // default: false

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// StoreConfig selects where the cache and visibility settings live.
type StoreConfig struct {
	// Backend is "file", "memory" or "redis".
	Backend string // default: "file"

	// Dir is the directory used by the file backend.
	Dir string

	// RedisAddr is the redis server for the redis backend.
	RedisAddr string // default: "localhost:6379"

	// RedisPrefix namespaces keys in redis.
	RedisPrefix string // default: "alandlunch:"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:     envBoolOr("LUNCH_HEADLESS", true),
			DefaultProxy: os.Getenv("LUNCH_PROXY"),
			NoSandbox:    envBoolOr("LUNCH_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("LUNCH_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			URL:         envOr("LUNCH_URL", "https://www.aland.com/lunch"),
			Timeout:     envDurationOr("LUNCH_TIMEOUT", 30*time.Second),
			SettleDelay: envDurationOr("LUNCH_SETTLE_DELAY", 2*time.Second),
			FetchMode:   envOr("LUNCH_FETCH_MODE", "browser"),
			Extractor:   envOr("LUNCH_EXTRACTOR", "heuristic"),
			Stealth:     envBoolOr("LUNCH_STEALTH", false),
			BlockedResourceTypes: envSliceOr("LUNCH_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Store: StoreConfig{
			Backend:     envOr("LUNCH_STORE", "file"),
			Dir:         envOr("LUNCH_STORE_DIR", defaultStoreDir()),
			RedisAddr:   envOr("LUNCH_REDIS_ADDR", "localhost:6379"),
			RedisPrefix: envOr("LUNCH_REDIS_PREFIX", "alandlunch:"),
		},
		Log: LogConfig{
			Level:  envOr("LUNCH_LOG_LEVEL", "info"),
			Format: envOr("LUNCH_LOG_FORMAT", "text"),
		},
		Location: envLocationOr("LUNCH_TIMEZONE", time.Local),
	}
}

func defaultStoreDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "alandlunch")
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envLocationOr(key string, fallback *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		if loc, err := time.LoadLocation(v); err == nil {
			return loc
		}
	}
	return fallback
}
