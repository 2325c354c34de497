// Package ratelimit enforces the shared scrape budget.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/models"
)

// Limiter paces page fetches with three stacked constraints: a rolling
// one-hour window, a hard daily ceiling, and a randomized pause before
// every request. One Limiter is shared by all workers of an engine so
// the budget applies to the process, not to a single caller.
type Limiter struct {
	mu sync.Mutex

	minDelay time.Duration
	maxDelay time.Duration
	perHour  int
	perDay   int

	window    []time.Time
	dailyUsed int
	dailyDate string // calendar day the counter belongs to, YYYY-MM-DD

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Limiter from the scrape budget settings. Inverted delay
// bounds are swapped and zero caps are raised to one so that a
// misconfigured budget degrades to a strict one instead of deadlocking.
func New(cfg config.ScrapingConfig) *Limiter {
	minD, maxD := cfg.MinDelay, cfg.MaxDelay
	if minD < 0 {
		minD = 0
	}
	if maxD < minD {
		minD, maxD = maxD, minD
	}
	perHour := cfg.RequestsPerHour
	if perHour < 1 {
		perHour = 1
	}
	perDay := cfg.MaxDailyRequests
	if perDay < 1 {
		perDay = 1
	}
	return &Limiter{
		minDelay: minD,
		maxDelay: maxD,
		perHour:  perHour,
		perDay:   perDay,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Acquire blocks until the caller may fetch a page, then records the
// request against the budget. It returns a RATE_LIMIT_EXCEEDED error
// without waiting when the daily ceiling is already spent, and the
// context error if ctx is cancelled during a pause.
//
// The hourly wait releases the lock and re-checks afterwards, since
// the window can roll past midnight or be consumed by another worker
// in the meantime.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	for {
		now := l.now()
		l.resetDailyLocked(now)

		if l.dailyUsed >= l.perDay {
			l.mu.Unlock()
			slog.Warn("daily request limit reached", "limit", l.perDay)
			return models.NewScrapeError(models.ErrCodeRateLimited,
				fmt.Sprintf("daily request limit (%d) exceeded", l.perDay), nil)
		}

		l.evictLocked(now)
		if len(l.window) < l.perHour {
			break
		}

		wait := l.window[0].Add(time.Hour).Sub(now)
		l.mu.Unlock()
		slog.Info("hourly budget exhausted, waiting for window to roll",
			"wait", wait.Round(time.Second), "per_hour", l.perHour)
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
		l.mu.Lock()
	}

	// The jitter pause stays inside the critical section so concurrent
	// workers cannot land requests closer together than MinDelay.
	if err := l.sleep(ctx, l.jitter()); err != nil {
		l.mu.Unlock()
		return err
	}

	l.window = append(l.window, l.now())
	l.dailyUsed++
	l.mu.Unlock()
	return nil
}

// Stats reports current budget consumption.
func (l *Limiter) Stats() models.LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.resetDailyLocked(now)
	l.evictLocked(now)
	return models.LimiterStats{
		HourlyUsed:  len(l.window),
		HourlyLimit: l.perHour,
		DailyUsed:   l.dailyUsed,
		DailyLimit:  l.perDay,
		ResetDate:   l.dailyDate,
	}
}

func (l *Limiter) resetDailyLocked(now time.Time) {
	date := now.Format("2006-01-02")
	if date != l.dailyDate {
		l.dailyUsed = 0
		l.dailyDate = date
	}
}

// evictLocked drops window entries aged one hour or more.
func (l *Limiter) evictLocked(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}

// jitter picks a pause from [MinDelay, MaxDelay], inclusive.
func (l *Limiter) jitter() time.Duration {
	span := l.maxDelay - l.minDelay
	if span <= 0 {
		return l.minDelay
	}
	return l.minDelay + rand.N(span+1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
