package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobseekerhq/harvest/profile"
)

// dismissModals closes the login walls, cookie banners and signup
// prompts that cover postings. It tries the profile's known close
// controls first and falls back to the Escape key. Only a confirmed
// click counts as a dismissal; Escape is fired blind, so its effect is
// unknown.
func (s *Scraper) dismissModals(ctx context.Context, pg Page, prof *profile.Profile) bool {
	// Overlays often mount a beat after the DOM settles.
	_ = s.sleep(ctx, 2*time.Second)

	for _, sel := range prof.Modals {
		n, err := pg.Count(sel)
		if err != nil || n == 0 {
			continue
		}
		visible, err := pg.FirstVisible(sel)
		if err != nil || !visible {
			continue
		}
		if err := pg.Click(sel); err != nil {
			slog.Debug("modal close click failed", "selector", sel, "err", err)
			continue
		}
		slog.Info("dismissed modal", "selector", sel)
		_ = s.sleep(ctx, time.Second)
		return true
	}

	if err := pg.PressEscape(); err == nil {
		_ = s.sleep(ctx, 500*time.Millisecond)
	}
	return false
}
