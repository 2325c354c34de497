// Package robots consults robots.txt before the browser touches a host.
package robots

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/temoto/robotstxt"

	"log/slog"
)

// Robots bodies beyond this size are truncated before parsing.
const maxRobotsBody = 512 << 10

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused for every
// connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

type hostEntry struct {
	// data is nil when the fetch failed; nil means allow everything.
	data      *robotstxt.RobotsData
	expiresAt time.Time
}

// Gate answers whether a URL may be fetched according to the host's
// robots.txt. Rules are cached per host with a TTL; transport failures
// fail open so an unreachable robots.txt never stalls scraping.
type Gate struct {
	client *http.Client
	agent  string
	ttl    time.Duration
	store  sync.Map // host (string) -> *hostEntry
	done   chan struct{}
}

// NewGate creates a Gate that matches rules against the given agent
// string and caches per-host rules for ttl. Stop must be called to
// release the cache janitor.
func NewGate(agent string, ttl time.Duration) *Gate {
	g := &Gate{
		client: &http.Client{
			Transport: newChromeTransport(),
			Timeout:   15 * time.Second,
		},
		agent: agent,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go g.cleanupLoop()
	return g
}

// newChromeTransport builds an http.Transport whose TLS handshake
// mimics Chrome. Sites that fingerprint TLS would otherwise serve a
// different robots.txt to obvious bots.
func newChromeTransport() *http.Transport {
	return &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("robots: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
}

// Allowed reports whether rawURL may be fetched. Unparseable URLs and
// failed lookups are allowed.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := g.lookup(ctx, u)
	if data == nil {
		return true
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, g.agent)
}

// Stop terminates the background cleanup goroutine.
func (g *Gate) Stop() {
	close(g.done)
}

func (g *Gate) lookup(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := strings.ToLower(u.Host)
	if v, ok := g.store.Load(host); ok {
		entry := v.(*hostEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.data
		}
		g.store.Delete(host)
	}

	data := g.fetch(ctx, u.Scheme, host)
	g.store.Store(host, &hostEntry{data: data, expiresAt: time.Now().Add(g.ttl)})
	return data
}

// fetch retrieves and parses robots.txt for a host. Returns nil on
// transport or parse failure, which callers treat as allow-all. HTTP
// status semantics (4xx allows, 5xx disallows) come from the parser.
func (g *Gate) fetch(ctx context.Context, scheme, host string) *robotstxt.RobotsData {
	if scheme == "" {
		scheme = "https"
	}
	robotsURL := scheme + "://" + host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.agent)
	req.Header.Set("Accept", "text/plain,*/*;q=0.8")

	resp, err := g.client.Do(req)
	if err != nil {
		slog.Debug("robots.txt unreachable, allowing", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		slog.Debug("robots.txt unparseable, allowing", "host", host, "error", err)
		return nil
	}
	return data
}

// cleanupLoop runs every hour, deleting expired entries.
func (g *Gate) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-g.done:
			return
		case <-ticker.C:
			now := time.Now()
			g.store.Range(func(key, value any) bool {
				entry := value.(*hostEntry)
				if now.After(entry.expiresAt) {
					g.store.Delete(key)
				}
				return true
			})
		}
	}
}
