package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/scraper"
)

// Health returns a handler for GET /api/v1/health.
//
// Status degrades when less than 20% of the daily request budget
// remains, giving monitors warning before scrapes start getting
// rejected.
func Health(eng *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := eng.Stats()

		status := "healthy"
		if l := stats.Limiter; l.DailyLimit > 0 {
			if remaining := l.DailyLimit - l.DailyUsed; remaining*5 < l.DailyLimit {
				status = "degraded"
			}
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  eng.Uptime().Round(time.Second).String(),
			Engine:  stats,
			Version: "0.1.0",
		})
	}
}
