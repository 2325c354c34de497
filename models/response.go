package models

// ScrapeResponse is the response for POST /api/v1/scrape.
type ScrapeResponse struct {
	ScrapeResult

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ScrapeMs is the time spent inside the browser session, excluding
	// rate-limit waits and cache lookups.
	ScrapeMs int64 `json:"scrape_ms"`
}

// ErrorResponse is the envelope for API-level failures (auth,
// validation, per-key throttling).
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string      `json:"status"` // "healthy" or "degraded"
	Uptime  string      `json:"uptime"`
	Engine  EngineStats `json:"engine"`
	Version string      `json:"version"`
}

// EngineStats reports the state of the scraping engine.
type EngineStats struct {
	BrowserRunning bool         `json:"browser_running"`
	ActiveSessions int          `json:"active_sessions"`
	TotalScrapes   int64        `json:"total_scrapes"`
	Limiter        LimiterStats `json:"limiter"`
}

// LimiterStats reports request-budget consumption.
type LimiterStats struct {
	HourlyUsed  int    `json:"hourly_used"`
	HourlyLimit int    `json:"hourly_limit"`
	DailyUsed   int    `json:"daily_used"`
	DailyLimit  int    `json:"daily_limit"`
	ResetDate   string `json:"reset_date"` // day the daily counter belongs to, YYYY-MM-DD
}

// ProfileInfo summarizes a registered site profile for GET /api/v1/profiles.
type ProfileInfo struct {
	Key                 string `json:"key"`
	Name                string `json:"name"`
	DescriptionRules    int    `json:"description_rules"`
	ModalRules          int    `json:"modal_rules"`
	DynamicLoading      bool   `json:"dynamic_loading"`
	StrongBotProtection bool   `json:"strong_bot_protection"`
}
