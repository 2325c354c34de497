package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/api/handler"
	"github.com/jobseekerhq/harvest/api/middleware"
	"github.com/jobseekerhq/harvest/cache"
	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(eng *scraper.Scraper, cfg *config.Config, cc *cache.Cache) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(eng))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	protected.POST("/scrape", handler.Scrape(eng, cc))

	// Batch
	protected.POST("/batch/scrape", handler.PostBatch(eng, cfg.Webhook))
	protected.GET("/batch/:id", handler.GetBatch())

	// Site profiles
	protected.GET("/profiles", handler.Profiles(eng))

	return r
}
