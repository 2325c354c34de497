// Package scraper drives a stealth browser through job posting pages:
// site detection, rate limiting, fingerprint spoofing, bot challenge
// recovery, modal dismissal and selector-based extraction.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-rod/rod"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/content"
	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/profile"
	"github.com/jobseekerhq/harvest/ratelimit"
	"github.com/jobseekerhq/harvest/robots"
)

// directConnection is reported when no proxy was used.
const directConnection = "Direct connection"

// Scraper is the scraping engine. One instance owns a shared browser,
// a request budget and a site profile registry, and is safe for
// concurrent use.
type Scraper struct {
	cfg        config.ScrapingConfig
	browserCfg config.BrowserConfig

	registry *profile.Registry
	limiter  *ratelimit.Limiter
	gate     *robots.Gate
	ownsGate bool
	conv     *converter.Converter

	mu      sync.Mutex
	browser *rod.Browser

	// open creates page sessions; nil means openSession. Swappable so
	// the flow can run against scripted pages.
	open  func(ctx context.Context, target string) (pageSession, error)
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// isolate runs every scrape on a throwaway engine in its own
	// goroutine instead of sharing the browser.
	isolate bool

	activeSessions atomic.Int32
	totalScrapes   atomic.Int64
	startTime      time.Time
}

// New builds an engine from a scraping budget and a browser profile.
// The browser itself is launched lazily, or eagerly via Start.
func New(cfg config.ScrapingConfig, browserCfg config.BrowserConfig) *Scraper {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Workers > 3 {
		cfg.Workers = 3
	}

	s := &Scraper{
		cfg:        cfg,
		browserCfg: browserCfg,
		registry:   profile.Default(),
		limiter:    ratelimit.New(cfg),
		conv:       content.NewConverter(),
		now:        time.Now,
		sleep:      sleepCtx,
		isolate:    browserCfg.IsolateSessions,
		startTime:  time.Now(),
	}

	if cfg.RespectRobots {
		ua := fallbackUA
		if len(browserCfg.UserAgents) > 0 {
			ua = browserCfg.UserAgents[0]
		}
		s.gate = robots.NewGate(ua, time.Hour)
		s.ownsGate = true
	}
	return s
}

// SetRegistry replaces the site profile registry. Call before any
// scraping starts.
func (s *Scraper) SetRegistry(r *profile.Registry) {
	if r != nil {
		s.registry = r
	}
}

// Registry returns the active site profile registry.
func (s *Scraper) Registry() *profile.Registry { return s.registry }

// Start launches the shared browser eagerly so startup failures
// surface at boot instead of on the first request.
func (s *Scraper) Start() error {
	if _, err := s.ensureBrowser(); err != nil {
		return models.NewScrapeError(models.ErrCodeSessionStart, "failed to start browser: "+err.Error(), err)
	}
	return nil
}

// Close shuts down the browser and any background helpers. Safe to
// call when Start was never called.
func (s *Scraper) Close() {
	s.mu.Lock()
	b := s.browser
	s.browser = nil
	s.mu.Unlock()
	if b != nil {
		_ = b.Close()
	}
	if s.ownsGate && s.gate != nil {
		s.gate.Stop()
	}
}

// Stats reports a point-in-time view of the engine.
func (s *Scraper) Stats() models.EngineStats {
	s.mu.Lock()
	running := s.browser != nil
	s.mu.Unlock()
	return models.EngineStats{
		BrowserRunning: running,
		ActiveSessions: int(s.activeSessions.Load()),
		TotalScrapes:   s.totalScrapes.Load(),
		Limiter:        s.limiter.Stats(),
	}
}

// Uptime reports how long ago this engine was created.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// ScrapeOne fetches a single job posting. It always returns a result;
// failures are reported through the result's error fields, never as a
// panic.
func (s *Scraper) ScrapeOne(ctx context.Context, rawURL string) *models.ScrapeResult {
	s.totalScrapes.Add(1)
	s.activeSessions.Add(1)
	defer s.activeSessions.Add(-1)

	if s.isolate {
		return s.scrapeIsolated(ctx, rawURL)
	}
	return s.scrapeSafe(ctx, rawURL)
}

// scrapeSafe converts any panic inside the flow into an UNKNOWN_ERROR
// result so the engine keeps its no-panic contract.
func (s *Scraper) scrapeSafe(ctx context.Context, rawURL string) (res *models.ScrapeResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scrape panicked", "url", rawURL, "panic", r)
			res = models.Failed(rawURL, "unknown", models.ErrCodeUnknown, fmt.Sprintf("internal error: %v", r))
			res.FetchedAt = s.now().Unix()
		}
	}()
	return s.scrape(ctx, rawURL)
}

// scrapeIsolated runs the scrape on a throwaway engine with its own
// browser process. Some hosts cannot keep one shared browser healthy
// across many sessions, so each request gets a private process that is
// torn down afterwards. Budget, robots cache and registry stay shared.
func (s *Scraper) scrapeIsolated(ctx context.Context, rawURL string) *models.ScrapeResult {
	ch := make(chan *models.ScrapeResult, 1)
	go func() {
		worker := New(s.cfg, s.browserCfg)
		worker.isolate = false
		if worker.gate != nil {
			worker.gate.Stop()
		}
		worker.gate = s.gate
		worker.ownsGate = false
		worker.limiter = s.limiter
		worker.registry = s.registry
		worker.open = s.open
		worker.now = s.now
		worker.sleep = s.sleep
		defer worker.Close()
		ch <- worker.scrapeSafe(ctx, rawURL)
	}()
	return <-ch
}

// scrape is the full single-URL flow.
func (s *Scraper) scrape(ctx context.Context, rawURL string) *models.ScrapeResult {
	prof := s.registry.Detect(rawURL)
	res := &models.ScrapeResult{
		URL:       rawURL,
		Site:      prof.Name,
		ProxyUsed: directConnection,
	}
	defer func() { res.FetchedAt = s.now().Unix() }()

	slog.Info("scrape started", "url", rawURL, "site", prof.Name)

	// ── 1. Robots policy ─────────────────────────────────────────────
	if s.cfg.RespectRobots && s.gate != nil && !s.gate.Allowed(ctx, rawURL) {
		res.ErrorKind = models.ErrCodeAccessBlocked
		res.Error = "robots.txt disallows fetching this URL"
		return res
	}

	// ── 2. Request budget ────────────────────────────────────────────
	if err := s.limiter.Acquire(ctx); err != nil {
		fillFromError(res, err)
		return res
	}

	// ── 3. Browser session ───────────────────────────────────────────
	opener := s.open
	if opener == nil {
		opener = s.openSession
	}
	sess, err := opener(ctx, rawURL)
	if err != nil {
		res.ErrorKind = models.ErrCodeSessionStart
		res.Error = "failed to start browser session: " + err.Error()
		return res
	}
	defer sess.Close()
	if p := sess.Proxy(); p != "" {
		res.ProxyUsed = p
	}
	pg := sess.Page()

	// ── 4. Navigation ────────────────────────────────────────────────
	if err := pg.Navigate(rawURL); err != nil {
		fillFromError(res, err)
		return res
	}
	if err := pg.WaitStable(3 * time.Second); err != nil {
		slog.Debug("initial settle incomplete", "url", rawURL, "err", err)
	}

	// ── 5. Hard block check ──────────────────────────────────────────
	title, html := pageSnapshot(pg)
	if ind, blocked := blockIndicator(title, html); blocked {
		res.ErrorKind = models.ErrCodeAccessBlocked
		res.Error = fmt.Sprintf("%s is blocking automated access (%q); try again later or from a different network", prof.Name, ind)
		res.Diagnostics = append(res.Diagnostics, "hard block indicator: "+ind)
		slog.Warn("access blocked", "url", rawURL, "indicator", ind)
		return res
	}

	// ── 6. Human pacing ──────────────────────────────────────────────
	if err := s.sleep(ctx, randBetween(3*time.Second, 5*time.Second)); err != nil {
		fillFromError(res, err)
		return res
	}

	// ── 7. Challenge clearance ───────────────────────────────────────
	cleared := s.awaitClearance(ctx, pg, res)

	// ── 8. Modals ────────────────────────────────────────────────────
	res.ModalDismissed = s.dismissModals(ctx, pg, prof)

	// ── 9. Content settle ────────────────────────────────────────────
	s.settle(ctx, pg, prof)

	// ── 10. Extraction ───────────────────────────────────────────────
	desc, matched, trace := extractField(pg, prof.Description)
	res.Diagnostics = append(res.Diagnostics, trace...)
	res.Title = extractFirst(pg, prof.Title)
	res.Company = extractFirst(pg, prof.Company)
	res.Location = extractFirst(pg, prof.Location)

	var fragment string
	if desc == "" {
		desc, fragment = s.staticFallback(pg, prof, rawURL, res)
	} else if matched != "" {
		fragment, _ = pg.FirstHTML(matched)
	}

	// ── 11. Outcome ──────────────────────────────────────────────────
	if desc != "" {
		res.Description = desc
		res.Success = true
		if !cleared {
			// The page produced content anyway; surface the unresolved
			// challenge as an annotation rather than a failure.
			res.ErrorKind = models.ErrCodeChallengeTimeout
		}
		if fragment != "" {
			res.DescriptionMarkdown = s.toMarkdown(fragment, rawURL)
		}
		slog.Info("scrape succeeded", "url", rawURL, "site", prof.Name, "chars", len(desc))
		return res
	}

	res.ErrorKind = models.ErrCodeExtraction
	res.Error = "description extraction failed on all selectors"
	if !cleared {
		res.Diagnostics = append(res.Diagnostics, "challenge still present after final check")
	}
	slog.Warn("scrape failed", "url", rawURL, "site", prof.Name)
	return res
}

// settle coaxes lazily rendered content onto the page: scroll passes,
// a network-idle wait and per-site extras for dynamic sites.
func (s *Scraper) settle(ctx context.Context, pg Page, prof *profile.Profile) {
	_ = pg.Eval("() => window.scrollTo(0, document.body.scrollHeight / 2)")
	_ = s.sleep(ctx, 3*time.Second)
	_ = pg.Eval("() => window.scrollTo(0, document.body.scrollHeight)")
	_ = s.sleep(ctx, 2*time.Second)

	if err := pg.WaitStable(8 * time.Second); err != nil {
		slog.Debug("page never went fully idle", "err", err)
		_ = s.sleep(ctx, 3*time.Second)
	}

	if prof.DynamicLoading {
		extra := prof.ExtraWait
		if extra <= 0 {
			extra = 5 * time.Second
		}
		slog.Info("waiting for dynamic content", "site", prof.Name, "extra", extra)
		_ = s.sleep(ctx, extra)
	}

	if prof.StrongBotProtection {
		// A second scroll round-trip tends to convince aggressive
		// lazy-loaders that a person is reading.
		_ = pg.Eval("() => window.scrollTo(0, document.body.scrollHeight)")
		_ = s.sleep(ctx, 2*time.Second)
		_ = pg.Eval("() => window.scrollTo(0, 0)")
		_ = s.sleep(ctx, 2*time.Second)
		if len(prof.Description) > 0 {
			if err := pg.WaitFor(prof.Description[0], 5*time.Second); err != nil {
				slog.Debug("primary description selector never appeared", "selector", prof.Description[0])
			}
		}
	}
}

// fillFromError maps an internal error onto the result's error fields.
func fillFromError(res *models.ScrapeResult, err error) {
	var serr *models.ScrapeError
	switch {
	case errors.As(err, &serr):
		res.ErrorKind = serr.Code
		res.Error = serr.Message
	case errors.Is(err, context.DeadlineExceeded):
		res.ErrorKind = models.ErrCodeUnknown
		res.Error = "operation timed out: " + err.Error()
	case errors.Is(err, context.Canceled):
		res.ErrorKind = models.ErrCodeUnknown
		res.Error = "operation canceled"
	default:
		res.ErrorKind = models.ErrCodeUnknown
		res.Error = err.Error()
	}
}

func randBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
