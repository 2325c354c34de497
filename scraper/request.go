package scraper

import (
	"context"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/models"
)

// Request describes a one-shot scrape without standing up an engine.
type Request struct {
	// URL of the job posting.
	URL string

	// Config selects the scraping budget; nil means SafeConfig.
	Config *config.ScrapingConfig

	// Headless toggles the browser window; nil means headless.
	Headless *bool
}

// ScrapeJob runs a single scrape on a temporary engine. The browser is
// launched for this call and torn down before it returns.
func ScrapeJob(ctx context.Context, req Request) *models.ScrapeResult {
	cfg := req.Config
	if cfg == nil {
		c := config.SafeConfig()
		cfg = &c
	}
	browserCfg := config.Load().Browser
	if req.Headless != nil {
		browserCfg.Headless = *req.Headless
	}

	eng := New(*cfg, browserCfg)
	defer eng.Close()
	return eng.ScrapeOne(ctx, req.URL)
}

// ScrapeJobs runs a batch on a temporary engine, with duplicate
// marking applied to the results. A nil cfg selects SafeConfig.
func ScrapeJobs(ctx context.Context, urls []string, cfg *config.ScrapingConfig) []models.ScrapeResult {
	if cfg == nil {
		c := config.SafeConfig()
		cfg = &c
	}
	eng := New(*cfg, config.Load().Browser)
	defer eng.Close()
	return eng.ScrapeMany(ctx, urls)
}
