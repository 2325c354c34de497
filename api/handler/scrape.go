package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/cache"
	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/scraper"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse and validate the request.
//  2. Serve from cache when the caller accepts a stale result.
//  3. Run the engine; it always produces a result, so the handler only
//     translates the outcome into an HTTP status.
//  4. Store successful results for future cache hits.
func Scrape(eng *scraper.Scraper, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cache.Key(req.URL), req.MaxAge); hit {
				c.JSON(http.StatusOK, models.ScrapeResponse{
					ScrapeResult: *cached,
					CacheStatus:  "hit",
					Timing: models.TimingInfo{
						TotalMs: time.Since(totalStart).Milliseconds(),
					},
				})
				return
			}
		}

		scrapeStart := time.Now()
		res := eng.ScrapeOne(c.Request.Context(), req.URL)
		scrapeMs := time.Since(scrapeStart).Milliseconds()

		resp := models.ScrapeResponse{
			ScrapeResult: *res,
			Timing: models.TimingInfo{
				TotalMs:  time.Since(totalStart).Milliseconds(),
				ScrapeMs: scrapeMs,
			},
		}
		if cc != nil && req.MaxAge > 0 {
			if res.Success {
				cc.Set(cache.Key(req.URL), res)
			}
			resp.CacheStatus = "miss"
		}

		c.JSON(statusForResult(res), resp)
	}
}

// statusForResult maps scrape outcomes to HTTP status codes. The body
// is the full result either way; the status mirrors the ErrorKind.
func statusForResult(res *models.ScrapeResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.ErrorKind {
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeSessionStart:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeAccessBlocked:
		return http.StatusBadGateway // 502
	case models.ErrCodeExtraction:
		return http.StatusUnprocessableEntity // 422
	case models.ErrCodeChallengeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
