package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the job posting to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxAge is the maximum acceptable cache age in milliseconds.
	// 0 (default) bypasses the cache entirely.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}
