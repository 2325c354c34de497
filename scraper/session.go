package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/jobseekerhq/harvest/config"
)

// fallbackUA is used when the rotation pool is empty.
const fallbackUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// pageSession is one isolated browser context holding a single page.
// Close must be safe to call more than once.
type pageSession interface {
	Page() Page
	Proxy() string
	Close()
}

// rodSession owns a dedicated incognito browser context. Cookies,
// storage and cache never leak between sessions, so every scrape looks
// like a fresh visitor.
type rodSession struct {
	raw     *rod.Page // unbound reference, used for teardown
	pg      Page      // context-bound adapter handed to the flow
	browser *rod.Browser
	ctxID   proto.BrowserBrowserContextID
	proxy   string
	router  *rod.HijackRouter
	once    sync.Once
}

func (s *rodSession) Page() Page    { return s.pg }
func (s *rodSession) Proxy() string { return s.proxy }

// Close tears the session down exactly once: router, page, then the
// browser context. It uses the original page reference so cleanup
// works even after the request context has expired.
func (s *rodSession) Close() {
	s.once.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		_ = s.raw.Close()
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: s.ctxID}.Call(s.browser)
	})
}

// launchBrowser starts a Chromium instance with the anti-automation
// launch surface trimmed down.
func launchBrowser(cfg config.BrowserConfig) (*rod.Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI,VizDisplayCompositor")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return browser, nil
}

// ensureBrowser launches the shared browser on first use.
func (s *Scraper) ensureBrowser() (*rod.Browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return s.browser, nil
	}
	browser, err := launchBrowser(s.browserCfg)
	if err != nil {
		return nil, err
	}
	s.browser = browser
	return browser, nil
}

// openSession creates an isolated browser context with a spoofed
// fingerprint, ready to navigate to target.
func (s *Scraper) openSession(ctx context.Context, target string) (pageSession, error) {
	browser, err := s.ensureBrowser()
	if err != nil {
		return nil, err
	}

	proxy := s.pickProxy()
	ctxRes, err := proto.TargetCreateBrowserContext{
		ProxyServer: proxy,
	}.Call(browser)
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}
	if proxy != "" {
		slog.Info("session routed through proxy", "proxy", proxy)
	}

	page, err := browser.Page(proto.TargetCreateTarget{
		URL:              "about:blank",
		BrowserContextID: ctxRes.BrowserContextID,
	})
	if err != nil {
		_ = proto.TargetDisposeBrowserContext{BrowserContextID: ctxRes.BrowserContextID}.Call(browser)
		return nil, fmt.Errorf("create page: %w", err)
	}

	sess := &rodSession{
		raw:     page,
		browser: browser,
		ctxID:   ctxRes.BrowserContextID,
		proxy:   proxy,
	}

	if err := s.disguise(page, target); err != nil {
		sess.Close()
		return nil, err
	}

	// Resource blocking must be mounted before navigation; hijacking
	// only applies to requests issued after the router is running.
	sess.router = setupHijack(page, s.browserCfg.BlockedResourceTypes, s.browserCfg.BlockTrackers)

	sess.pg = &rodPage{p: page.Context(ctx), navTimeout: s.browserCfg.NavigationTimeout}
	return sess, nil
}

// disguise applies the fingerprint spoof to a fresh page: stealth JS,
// user agent and platform, randomized viewport, timezone and locale,
// and a search-engine Referer. All of it must happen before the first
// navigation.
func (s *Scraper) disguise(page *rod.Page, target string) error {
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return fmt.Errorf("stealth injection: %w", err)
	}

	ua := s.pickUserAgent()
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: "en-US,en;q=0.9",
		Platform:       platformForUA(ua),
	}).Call(page); err != nil {
		return fmt.Errorf("user agent override: %w", err)
	}

	width, height, scale := s.pickViewport()
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: scale,
		Mobile:            false,
	}).Call(page); err != nil {
		return fmt.Errorf("viewport override: %w", err)
	}

	// Best-effort paint-over of the remaining device signals.
	_ = proto.EmulationSetTouchEmulationEnabled{Enabled: rand.IntN(2) == 0}.Call(page)
	_ = proto.EmulationSetTimezoneOverride{TimezoneID: "America/New_York"}.Call(page)
	_ = proto.EmulationSetLocaleOverride{Locale: "en-US"}.Call(page)

	// Arrive from a Google search for the site instead of from nowhere.
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}

	slog.Debug("session fingerprint applied",
		"ua", ua[:min(len(ua), 50)], "viewport", fmt.Sprintf("%dx%d", width, height))
	return nil
}

func (s *Scraper) pickUserAgent() string {
	pool := s.browserCfg.UserAgents
	if len(pool) == 0 {
		return fallbackUA
	}
	if !s.cfg.RotateFingerprint {
		return pool[0]
	}
	return pool[rand.IntN(len(pool))]
}

// pickViewport returns a desktop-plausible viewport. Randomized per
// session when fingerprint rotation is on, fixed otherwise.
func (s *Scraper) pickViewport() (width, height int, scale float64) {
	if !s.cfg.RotateFingerprint {
		return 1366, 768, 1
	}
	scales := []float64{1, 1.25, 1.5}
	return 1200 + rand.IntN(721), 800 + rand.IntN(281), scales[rand.IntN(len(scales))]
}

func (s *Scraper) pickProxy() string {
	if !s.cfg.UseProxy || len(s.cfg.ProxyPool) == 0 {
		return ""
	}
	return s.cfg.ProxyPool[rand.IntN(len(s.cfg.ProxyPool))]
}

// platformForUA returns the navigator.platform value matching a user
// agent, so the two signals never contradict each other.
func platformForUA(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return "Win32"
	case strings.Contains(ua, "Macintosh"):
		return "MacIntel"
	default:
		return "Linux x86_64"
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders
// type (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
