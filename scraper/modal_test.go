package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/profile"
)

func newModalScraper() *Scraper {
	s := New(testBudget(), config.BrowserConfig{})
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s
}

func TestDismissModals_ClicksFirstVisibleMatch(t *testing.T) {
	prof := profile.Default().Generic()
	pg := &fakePage{elems: map[string]fakeElem{
		".close-modal": {count: 1, visible: true},
	}}
	s := newModalScraper()

	if !s.dismissModals(context.Background(), pg, prof) {
		t.Fatal("visible close control was not dismissed")
	}
	if len(pg.clicks) != 1 || pg.clicks[0] != ".close-modal" {
		t.Errorf("clicks = %v, want just .close-modal", pg.clicks)
	}
	if pg.escapes != 0 {
		t.Error("escape pressed after a successful dismissal")
	}
}

func TestDismissModals_SkipsInvisibleAndFailedClicks(t *testing.T) {
	prof := profile.Default().Generic()
	pg := &fakePage{elems: map[string]fakeElem{
		".modal-close":               {count: 1, visible: false},
		".close-modal":               {count: 1, visible: true, clickErr: errors.New("element detached")},
		`button[aria-label="Close"]`: {count: 1, visible: true},
	}}
	s := newModalScraper()

	if !s.dismissModals(context.Background(), pg, prof) {
		t.Fatal("later close control was not tried")
	}
	if len(pg.clicks) != 1 || pg.clicks[0] != `button[aria-label="Close"]` {
		t.Errorf("clicks = %v, want the third selector only", pg.clicks)
	}
}

func TestDismissModals_EscapeFallback(t *testing.T) {
	prof := profile.Default().Generic()
	pg := &fakePage{}
	s := newModalScraper()

	if s.dismissModals(context.Background(), pg, prof) {
		t.Fatal("blind Escape must not count as dismissed")
	}
	if pg.escapes != 1 {
		t.Errorf("escapes = %d, want 1", pg.escapes)
	}
	if len(pg.clicks) != 0 {
		t.Errorf("clicks = %v, want none", pg.clicks)
	}
}
