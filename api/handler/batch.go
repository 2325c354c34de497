package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/scraper"
	"github.com/jobseekerhq/harvest/webhook"
)

// batchJob tracks one batch from submission to completion. The runner
// goroutine writes it while status polls read it, so all field access
// goes through mu.
type batchJob struct {
	mu        sync.Mutex
	id        string
	status    string // "processing", "completed", "partial", "failed"
	total     int
	completed int
	results   []models.ScrapeResult

	createdAt int64 // written once before publication
}

func (j *batchJob) snapshot() models.BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	return models.BatchStatusResponse{
		ID:        j.id,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.total,
		Results:   j.results,
	}
}

// batchStore holds all in-flight and recently completed batches.
var batchStore sync.Map

func init() {
	// Expire batches older than 1 hour so abandoned polls cannot pin
	// result memory forever.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				if value.(*batchJob).createdAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/batch/scrape. The
// batch runs in the background; the response carries the ID to poll.
func PostBatch(eng *scraper.Scraper, hooks config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
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

		id := "batch-" + randomID()
		job := &batchJob{
			id:        id,
			status:    "processing",
			total:     len(req.URLs),
			createdAt: time.Now().Unix(),
		}
		batchStore.Store(id, job)

		go runBatch(eng, hooks, job, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     id,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}
		c.JSON(http.StatusOK, val.(*batchJob).snapshot())
	}
}

// runBatch drives the engine through all URLs and resolves the final
// batch status: completed, partial or failed.
func runBatch(eng *scraper.Scraper, hooks config.WebhookConfig, job *batchJob, req models.BatchRequest) {
	results := eng.ScrapeManyFunc(context.Background(), req.URLs, req.Workers,
		func(int, *models.ScrapeResult) {
			job.mu.Lock()
			job.completed++
			job.mu.Unlock()
		})

	succeeded := 0
	for i := range results {
		if results[i].Success {
			succeeded++
		}
	}
	status := "completed"
	switch {
	case succeeded == 0:
		status = "failed"
	case succeeded < len(results):
		status = "partial"
	}

	job.mu.Lock()
	job.results = results
	job.status = status
	job.completed = len(results)
	job.mu.Unlock()

	slog.Info("batch finished",
		"id", job.id,
		"status", status,
		"succeeded", succeeded,
		"total", len(results),
	)

	if hooks.URL != "" {
		webhook.DeliverAsync(hooks.URL, hooks.Secret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			BatchID:   job.id,
			Timestamp: time.Now().Unix(),
			Data:      job.snapshot(),
		})
	}
}

// randomID generates a short random hex string for batch IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
