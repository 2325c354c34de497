package scraper

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jobseekerhq/harvest/dedup"
	"github.com/jobseekerhq/harvest/models"
)

// ScrapeMany fetches a batch of postings and marks syndicated
// duplicates. With Workers at 1, the default, URLs run strictly in
// order; higher worker counts trade stealth for speed.
func (s *Scraper) ScrapeMany(ctx context.Context, urls []string) []models.ScrapeResult {
	return s.ScrapeManyFunc(ctx, urls, 0, nil)
}

// ScrapeManyFunc is ScrapeMany with a per-batch worker override
// (0 keeps the configured parallelism, the cap is 3) and a per-result
// callback invoked as each URL finishes. With more than one worker the
// callback may run concurrently.
func (s *Scraper) ScrapeManyFunc(ctx context.Context, urls []string, workers int, progress func(i int, r *models.ScrapeResult)) []models.ScrapeResult {
	results := make([]models.ScrapeResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	if workers < 1 {
		workers = s.cfg.Workers
	}
	if workers > 3 {
		workers = 3
	}
	if workers > len(urls) {
		workers = len(urls)
	}

	if workers <= 1 {
		for i, u := range urls {
			slog.Info("processing batch item", "index", i+1, "total", len(urls))
			results[i] = *s.ScrapeOne(ctx, u)
			if progress != nil {
				progress(i, &results[i])
			}
		}
	} else {
		type job struct {
			idx int
			url string
		}
		jobs := make(chan job)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range jobs {
					results[j.idx] = *s.ScrapeOne(ctx, j.url)
					if progress != nil {
						progress(j.idx, &results[j.idx])
					}
				}
			}()
		}
		for i, u := range urls {
			jobs <- job{idx: i, url: u}
		}
		close(jobs)
		wg.Wait()
	}

	dedup.Mark(results, dedup.DefaultThreshold)
	return results
}
