package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAllowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("User-agent: *\nDisallow: /private/\nDisallow: /jobs/archived\n"))
	}))
	defer srv.Close()

	g := NewGate("Mozilla/5.0 (compatible; test)", time.Minute)
	defer g.Stop()
	ctx := context.Background()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root", "/", true},
		{"public posting", "/jobs/view/123", true},
		{"disallowed prefix", "/private/data", false},
		{"disallowed posting", "/jobs/archived/9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Allowed(ctx, srv.URL+tt.path); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestAllowed_CachesPerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	g := NewGate("test-agent", time.Minute)
	defer g.Stop()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !g.Allowed(ctx, srv.URL+"/jobs/view/1") {
			t.Fatal("allow-all robots should allow")
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1 (cached)", n)
	}
}

func TestAllowed_CacheExpires(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer srv.Close()

	g := NewGate("test-agent", 10*time.Millisecond)
	defer g.Stop()
	ctx := context.Background()

	g.Allowed(ctx, srv.URL+"/a")
	time.Sleep(30 * time.Millisecond)
	g.Allowed(ctx, srv.URL+"/b")

	if n := hits.Load(); n != 2 {
		t.Errorf("robots.txt fetched %d times, want refetch after TTL", n)
	}
}

func TestAllowed_FailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately unreachable

	g := NewGate("test-agent", time.Minute)
	defer g.Stop()

	if !g.Allowed(context.Background(), srv.URL+"/jobs/view/1") {
		t.Error("unreachable robots.txt should allow")
	}
}

func TestAllowed_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	g := NewGate("test-agent", time.Minute)
	defer g.Stop()

	if !g.Allowed(context.Background(), srv.URL+"/anything") {
		t.Error("404 robots.txt should allow")
	}
}

func TestAllowed_BadURL(t *testing.T) {
	g := NewGate("test-agent", time.Minute)
	defer g.Stop()

	if !g.Allowed(context.Background(), "::not a url") {
		t.Error("unparseable URL should be allowed through")
	}
	if !g.Allowed(context.Background(), "/relative/only") {
		t.Error("URL without host should be allowed through")
	}
}
