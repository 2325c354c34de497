package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraping  ScrapingConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for page.Navigate alone.
	NavigationTimeout time.Duration // default: 30s

	// BlockedResourceTypes lists resource types to block. Stylesheets
	// stay enabled: visibility checks depend on computed layout.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers drops requests to known ad and analytics hosts.
	BlockTrackers bool // default: true

	// IsolateSessions runs every scrape on a scraper instance that is
	// created and torn down inside a dedicated goroutine. Works around
	// platforms where sharing a browser across callers misbehaves.
	// default: true on windows
	IsolateSessions bool

	// UserAgents is the rotation pool for session fingerprints.
	UserAgents []string
}

// ScrapingConfig controls request pacing and the scrape budget.
// The zero value is not usable; construct via one of the presets.
type ScrapingConfig struct {
	// MinDelay and MaxDelay bound the random pause inserted before
	// every page fetch.
	MinDelay time.Duration
	MaxDelay time.Duration

	// RequestsPerHour caps fetches within any rolling 60-minute window.
	RequestsPerHour int

	// MaxDailyRequests is the hard ceiling per calendar day.
	MaxDailyRequests int

	// RotateFingerprint randomizes user agent and viewport per session.
	RotateFingerprint bool

	// UseProxy routes sessions through a random member of ProxyPool.
	UseProxy  bool
	ProxyPool []string

	// RespectRobots consults robots.txt before fetching. Lookup
	// failures are treated as allowed.
	RespectRobots bool

	// Workers is the batch parallelism (1-3). The shared budget still
	// serializes fetches; extra workers only overlap page processing.
	Workers int
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key API rate limiting. This is
// separate from the scrape budget in ScrapingConfig.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the scrape response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 1000
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// URL receives a signed POST when a batch finishes. Empty disables.
	URL string

	// Secret signs the payload with HMAC-SHA256.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultConfig is the baseline scrape budget: moderate pacing
// suitable for occasional use.
func DefaultConfig() ScrapingConfig {
	return ScrapingConfig{
		MinDelay:          5 * time.Second,
		MaxDelay:          15 * time.Second,
		RequestsPerHour:   10,
		MaxDailyRequests:  50,
		RotateFingerprint: true,
		RespectRobots:     true,
		Workers:           1,
	}
}

// SafeConfig is the most conservative preset: long delays, low caps.
func SafeConfig() ScrapingConfig {
	c := DefaultConfig()
	c.MinDelay = 8 * time.Second
	c.MaxDelay = 15 * time.Second
	c.RequestsPerHour = 5
	c.MaxDailyRequests = 20
	return c
}

// ProductionConfig balances throughput against detection risk.
func ProductionConfig() ScrapingConfig {
	c := DefaultConfig()
	c.MinDelay = 6 * time.Second
	c.MaxDelay = 12 * time.Second
	c.RequestsPerHour = 8
	c.MaxDailyRequests = 40
	return c
}

// ProxyConfig allows higher caps by spreading requests over a proxy pool.
func ProxyConfig(proxies []string) ScrapingConfig {
	c := DefaultConfig()
	c.MinDelay = 5 * time.Second
	c.MaxDelay = 10 * time.Second
	c.RequestsPerHour = 15
	c.MaxDailyRequests = 60
	c.UseProxy = len(proxies) > 0
	c.ProxyPool = proxies
	return c
}

// Chrome user agents matching recent stable releases on the three
// desktop platforms the viewport randomizer emulates.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("HARVEST_PORT", 8080),
			Mode: envOr("HARVEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:          envBoolOr("HARVEST_HEADLESS", true),
			NoSandbox:         envBoolOr("HARVEST_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("HARVEST_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("HARVEST_NAV_TIMEOUT", 30*time.Second),
			BlockedResourceTypes: envSliceOr("HARVEST_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers:   envBoolOr("HARVEST_BLOCK_TRACKERS", true),
			IsolateSessions: envBoolOr("HARVEST_ISOLATE_SESSIONS", runtime.GOOS == "windows"),
			UserAgents:      envSliceOr("HARVEST_USER_AGENTS", defaultUserAgents),
		},
		Scraping: scrapingFromEnv(),
		Auth: AuthConfig{
			Enabled: envBoolOr("HARVEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("HARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("HARVEST_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("HARVEST_CACHE_MAX_ENTRIES", 1000),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("HARVEST_WEBHOOK_URL"),
			Secret: os.Getenv("HARVEST_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("HARVEST_LOG_LEVEL", "info"),
			Format: envOr("HARVEST_LOG_FORMAT", "json"),
		},
	}
}

// scrapingFromEnv resolves the HARVEST_PRESET base and applies
// per-field overrides on top of it.
func scrapingFromEnv() ScrapingConfig {
	var sc ScrapingConfig
	switch strings.ToLower(os.Getenv("HARVEST_PRESET")) {
	case "safe":
		sc = SafeConfig()
	case "production":
		sc = ProductionConfig()
	case "proxy":
		sc = ProxyConfig(envSliceOr("HARVEST_PROXIES", nil))
	default:
		sc = DefaultConfig()
	}
	sc.MinDelay = envDurationOr("HARVEST_MIN_DELAY", sc.MinDelay)
	sc.MaxDelay = envDurationOr("HARVEST_MAX_DELAY", sc.MaxDelay)
	sc.RequestsPerHour = envIntOr("HARVEST_REQUESTS_PER_HOUR", sc.RequestsPerHour)
	sc.MaxDailyRequests = envIntOr("HARVEST_MAX_DAILY_REQUESTS", sc.MaxDailyRequests)
	sc.RotateFingerprint = envBoolOr("HARVEST_ROTATE_FINGERPRINT", sc.RotateFingerprint)
	sc.RespectRobots = envBoolOr("HARVEST_RESPECT_ROBOTS", sc.RespectRobots)
	sc.Workers = envIntOr("HARVEST_WORKERS", sc.Workers)
	if proxies := envSliceOr("HARVEST_PROXIES", nil); len(proxies) > 0 {
		sc.UseProxy = true
		sc.ProxyPool = proxies
	}
	return sc
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
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

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
