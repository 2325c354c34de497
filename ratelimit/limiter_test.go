package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/models"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testLimiter wires a limiter to a fake clock. Sleeps advance the
// clock instead of blocking, and every slept duration is recorded.
func testLimiter(cfg config.ScrapingConfig) (*Limiter, *fakeClock, *[]time.Duration) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	var slept []time.Duration
	l := New(cfg)
	l.now = clk.Now
	l.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		clk.Advance(d)
		return nil
	}
	return l, clk, &slept
}

func zeroDelayBudget(perHour, perDay int) config.ScrapingConfig {
	return config.ScrapingConfig{
		MinDelay:         0,
		MaxDelay:         0,
		RequestsPerHour:  perHour,
		MaxDailyRequests: perDay,
	}
}

func TestAcquire_DailyCeilingFailsImmediately(t *testing.T) {
	l, clk, _ := testLimiter(zeroDelayBudget(100, 3))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i+1, err)
		}
	}

	before := clk.Now()
	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("4th Acquire should fail once the daily ceiling is spent")
	}
	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeRateLimited {
		t.Fatalf("error = %v, want ScrapeError with code %s", err, models.ErrCodeRateLimited)
	}
	if !clk.Now().Equal(before) {
		t.Error("daily ceiling failure must not wait")
	}
}

func TestAcquire_RollingWindowWaits(t *testing.T) {
	l, clk, _ := testLimiter(zeroDelayBudget(3, 100))
	ctx := context.Background()
	start := clk.Now()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i+1, err)
		}
	}
	if got := clk.Now().Sub(start); got != 0 {
		t.Fatalf("first 3 acquires advanced clock by %v, want 0", got)
	}

	// The 4th must wait until the oldest entry leaves the window.
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("4th Acquire: %v", err)
	}
	if got := clk.Now().Sub(start); got != time.Hour {
		t.Errorf("4th Acquire waited %v, want 1h", got)
	}
}

func TestAcquire_InstantAfterWindowRolls(t *testing.T) {
	l, clk, slept := testLimiter(zeroDelayBudget(3, 100))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i+1, err)
		}
	}

	clk.Advance(61 * time.Minute)
	*slept = nil
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire after window rolled: %v", err)
	}
	for _, d := range *slept {
		if d != 0 {
			t.Errorf("expected no waiting after window rolled, slept %v", d)
		}
	}
}

func TestAcquire_DailyResetOnDateChange(t *testing.T) {
	l, clk, _ := testLimiter(zeroDelayBudget(100, 2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i+1, err)
		}
	}
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("3rd Acquire on the same day should fail")
	}

	clk.Advance(24 * time.Hour)
	if err := l.Acquire(ctx); err != nil {
		t.Errorf("Acquire after date change: %v", err)
	}
}

func TestAcquire_JitterWithinBounds(t *testing.T) {
	cfg := zeroDelayBudget(1000, 1000)
	cfg.MinDelay = 5 * time.Second
	cfg.MaxDelay = 10 * time.Second
	l, _, slept := testLimiter(cfg)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		*slept = nil
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i+1, err)
		}
		if len(*slept) != 1 {
			t.Fatalf("Acquire %d slept %d times, want exactly 1 jitter pause", i+1, len(*slept))
		}
		d := (*slept)[0]
		if d < cfg.MinDelay || d > cfg.MaxDelay {
			t.Errorf("jitter %v outside [%v, %v]", d, cfg.MinDelay, cfg.MaxDelay)
		}
	}
}

func TestAcquire_JitterAppliedEvenWhenIdle(t *testing.T) {
	cfg := zeroDelayBudget(1000, 1000)
	cfg.MinDelay = 7 * time.Second
	cfg.MaxDelay = 7 * time.Second
	l, clk, _ := testLimiter(cfg)
	start := clk.Now()

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := clk.Now().Sub(start); got != 7*time.Second {
		t.Errorf("first Acquire on an idle limiter paused %v, want 7s", got)
	}
}

func TestAcquire_ContextCancelled(t *testing.T) {
	cfg := zeroDelayBudget(1000, 1000)
	cfg.MinDelay = time.Second
	cfg.MaxDelay = time.Second
	l, _, _ := testLimiter(cfg)
	l.sleep = func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire with cancelled context = %v, want context.Canceled", err)
	}
	if st := l.Stats(); st.HourlyUsed != 0 || st.DailyUsed != 0 {
		t.Errorf("cancelled Acquire must not consume budget, stats = %+v", st)
	}
}

func TestAcquire_Concurrent(t *testing.T) {
	l, _, _ := testLimiter(zeroDelayBudget(100, 100))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
			}
		}()
	}
	wg.Wait()

	st := l.Stats()
	if st.HourlyUsed != 10 || st.DailyUsed != 10 {
		t.Errorf("stats after 10 concurrent acquires = %+v", st)
	}
}

func TestStats(t *testing.T) {
	l, clk, _ := testLimiter(zeroDelayBudget(5, 40))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatal(err)
		}
	}

	st := l.Stats()
	if st.HourlyUsed != 2 || st.HourlyLimit != 5 {
		t.Errorf("hourly = %d/%d, want 2/5", st.HourlyUsed, st.HourlyLimit)
	}
	if st.DailyUsed != 2 || st.DailyLimit != 40 {
		t.Errorf("daily = %d/%d, want 2/40", st.DailyUsed, st.DailyLimit)
	}
	if want := clk.Now().Format("2006-01-02"); st.ResetDate != want {
		t.Errorf("ResetDate = %q, want %q", st.ResetDate, want)
	}

	// Entries past the hour stop counting against the window.
	clk.Advance(2 * time.Hour)
	if st := l.Stats(); st.HourlyUsed != 0 {
		t.Errorf("HourlyUsed after 2h = %d, want 0", st.HourlyUsed)
	}
}

func TestNew_NormalizesBudget(t *testing.T) {
	l := New(config.ScrapingConfig{
		MinDelay:         10 * time.Second,
		MaxDelay:         2 * time.Second,
		RequestsPerHour:  0,
		MaxDailyRequests: -5,
	})

	if l.minDelay != 2*time.Second || l.maxDelay != 10*time.Second {
		t.Errorf("inverted delays not swapped: %v..%v", l.minDelay, l.maxDelay)
	}
	if l.perHour != 1 || l.perDay != 1 {
		t.Errorf("caps = %d/hr %d/day, want raised to 1", l.perHour, l.perDay)
	}
}
