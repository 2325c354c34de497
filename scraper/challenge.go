package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jobseekerhq/harvest/content"
	"github.com/jobseekerhq/harvest/models"
)

const (
	challengeMaxAttempts  = 6
	challengePollInterval = 5 * time.Second
)

// challengeIndicators mark an interstitial that usually clears on its
// own once the JS verification finishes.
var challengeIndicators = []string{
	"just a moment",
	"please wait",
	"checking your browser",
	"cloudflare",
	"ray id",
	"cf-browser-verification",
}

// hardBlockIndicators mark a terminal denial. Waiting does not help
// and hammering the page makes future blocks more likely.
var hardBlockIndicators = []string{
	"access denied",
	"forbidden",
	"captcha",
	"bot detection",
	"unusual traffic",
}

// blockIndicator reports the first hard block marker found in the page
// title or body, case-insensitively.
func blockIndicator(title, html string) (string, bool) {
	return findIndicator(hardBlockIndicators, title, html)
}

// challengeIndicator reports the first challenge marker found in the
// page title or body, case-insensitively.
func challengeIndicator(title, html string) (string, bool) {
	return findIndicator(challengeIndicators, title, html)
}

func findIndicator(indicators []string, title, html string) (string, bool) {
	title = strings.ToLower(title)
	html = strings.ToLower(html)
	for _, ind := range indicators {
		if strings.Contains(title, ind) || strings.Contains(html, ind) {
			return ind, true
		}
	}
	return "", false
}

// awaitClearance polls the page until the bot challenge interstitial
// clears, up to challengeMaxAttempts checks spaced by the poll
// interval. It returns true when the page is challenge-free. On false
// the caller still proceeds; some challenges swap in the real content
// without ever updating the markers we can see.
func (s *Scraper) awaitClearance(ctx context.Context, pg Page, res *models.ScrapeResult) bool {
	for attempt := 1; attempt <= challengeMaxAttempts; attempt++ {
		title, html := pageSnapshot(pg)
		ind, challenged := challengeIndicator(title, html)
		if !challenged {
			if attempt > 1 {
				res.Diagnostics = append(res.Diagnostics,
					fmt.Sprintf("challenge cleared after %d checks", attempt))
			}
			return true
		}

		slog.Info("bot challenge detected, waiting",
			"indicator", ind, "attempt", attempt, "max", challengeMaxAttempts)
		if err := s.sleep(ctx, challengePollInterval); err != nil {
			res.Diagnostics = append(res.Diagnostics, "challenge wait interrupted: "+err.Error())
			return false
		}
	}

	res.Diagnostics = append(res.Diagnostics,
		fmt.Sprintf("challenge still present after %d checks", challengeMaxAttempts))
	return false
}

// pageSnapshot grabs the current title and serialized HTML. The title
// falls back to parsing the HTML when the live query fails, which
// happens on pages that are mid-navigation.
func pageSnapshot(pg Page) (title, html string) {
	html, err := pg.HTML()
	if err != nil {
		slog.Debug("page snapshot failed", "err", err)
	}
	title, err = pg.Title()
	if err != nil || title == "" {
		title = content.Title(html)
	}
	return title, html
}
