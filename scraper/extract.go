package scraper

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jobseekerhq/harvest/content"
	"github.com/jobseekerhq/harvest/models"
	"github.com/jobseekerhq/harvest/profile"
)

// extractField walks the selector fallback chain and returns the first
// visible non-empty text, the selector that produced it and a trace of
// every attempt. Selectors after the winning one are never touched.
func extractField(pg Page, selectors []string) (text, matched string, trace []string) {
	for i, sel := range selectors {
		n, err := pg.Count(sel)
		if err != nil {
			trace = append(trace, fmt.Sprintf("selector %d %q: error: %v", i+1, sel, err))
			continue
		}
		if n == 0 {
			trace = append(trace, fmt.Sprintf("selector %d %q: no elements", i+1, sel))
			continue
		}
		trace = append(trace, fmt.Sprintf("selector %d %q: %d elements", i+1, sel, n))

		visible, err := pg.FirstVisible(sel)
		if err != nil {
			trace = append(trace, fmt.Sprintf("selector %d %q: error: %v", i+1, sel, err))
			continue
		}
		if !visible {
			trace = append(trace, fmt.Sprintf("selector %d %q: first element not visible", i+1, sel))
			continue
		}

		raw, err := pg.FirstText(sel)
		if err != nil {
			trace = append(trace, fmt.Sprintf("selector %d %q: error: %v", i+1, sel, err))
			continue
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			trace = append(trace, fmt.Sprintf("selector %d %q: visible but empty text", i+1, sel))
			continue
		}

		trace = append(trace, fmt.Sprintf("selector %d %q: extracted %d chars", i+1, sel, len(raw)))
		return raw, sel, trace
	}
	return "", "", trace
}

// extractFirst is extractField without the bookkeeping, for fields
// where a miss is routine.
func extractFirst(pg Page, selectors []string) string {
	text, _, trace := extractField(pg, selectors)
	if text == "" && len(trace) > 0 {
		slog.Debug("optional field not found", "attempts", strings.Join(trace, "; "))
	}
	return text
}

// staticFallback re-runs the selector chain against a serialized
// snapshot of the DOM, then lets readability pull the main content for
// unprofiled sites. Live queries miss elements on pages that detach
// and rebuild their tree during hydration.
func (s *Scraper) staticFallback(pg Page, prof *profile.Profile, rawURL string, res *models.ScrapeResult) (text, fragment string) {
	html, err := pg.HTML()
	if err != nil || html == "" {
		return "", ""
	}

	if m, ok := content.FromSelectors(html, prof.Description); ok {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("snapshot fallback matched %q", m.Selector))
		return m.Text, m.HTML
	}

	if prof == s.registry.Generic() {
		if text, mainHTML, ok := content.MainContent(html, rawURL); ok {
			res.Diagnostics = append(res.Diagnostics, "snapshot fallback: readability main content")
			return text, mainHTML
		}
	}
	return "", ""
}

// toMarkdown renders an HTML fragment as Markdown, resolving relative
// links against the page's host.
func (s *Scraper) toMarkdown(fragment, rawURL string) string {
	domain := ""
	if u, err := url.Parse(rawURL); err == nil {
		domain = u.Hostname()
	}
	md, err := content.ToMarkdown(s.conv, fragment, domain)
	if err != nil {
		slog.Debug("markdown conversion failed", "err", err)
		return ""
	}
	return strings.TrimSpace(md)
}
