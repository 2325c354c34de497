package scraper

import (
	"errors"
	"strings"
	"testing"

	"github.com/jobseekerhq/harvest/config"
	"github.com/jobseekerhq/harvest/models"
)

func TestExtractField_FallbackOrder(t *testing.T) {
	pg := &fakePage{elems: map[string]fakeElem{
		".primary":   {},
		".secondary": {count: 2, visible: true, text: "  found it  "},
		".tertiary":  {count: 1, visible: true, text: "never reached"},
	}}

	text, matched, trace := extractField(pg, []string{".primary", ".secondary", ".tertiary"})
	if text != "found it" {
		t.Errorf("text = %q, want trimmed %q", text, "found it")
	}
	if matched != ".secondary" {
		t.Errorf("matched = %q, want .secondary", matched)
	}

	joined := strings.Join(trace, "\n")
	if !strings.Contains(joined, `".primary": no elements`) {
		t.Errorf("trace missing the miss for .primary: %v", trace)
	}
	if !strings.Contains(joined, `".secondary": 2 elements`) {
		t.Errorf("trace missing the hit for .secondary: %v", trace)
	}
	if strings.Contains(joined, ".tertiary") {
		t.Errorf("a selector after the winner was attempted: %v", trace)
	}
}

func TestExtractField_SkipsInvisible(t *testing.T) {
	pg := &fakePage{elems: map[string]fakeElem{
		".hidden":  {count: 1, visible: false, text: "hidden text"},
		".visible": {count: 1, visible: true, text: "visible text"},
	}}

	text, matched, trace := extractField(pg, []string{".hidden", ".visible"})
	if text != "visible text" || matched != ".visible" {
		t.Errorf("got %q via %q, want the visible element", text, matched)
	}
	if !strings.Contains(strings.Join(trace, "\n"), "not visible") {
		t.Errorf("trace missing the visibility skip: %v", trace)
	}
}

func TestExtractField_SkipsEmptyText(t *testing.T) {
	pg := &fakePage{elems: map[string]fakeElem{
		".blank": {count: 1, visible: true, text: "   \n\t "},
		".full":  {count: 1, visible: true, text: "content"},
	}}

	text, _, trace := extractField(pg, []string{".blank", ".full"})
	if text != "content" {
		t.Errorf("text = %q, want %q", text, "content")
	}
	if !strings.Contains(strings.Join(trace, "\n"), "visible but empty text") {
		t.Errorf("trace missing the empty-text skip: %v", trace)
	}
}

func TestExtractField_SelectorError(t *testing.T) {
	pg := &fakePage{elems: map[string]fakeElem{
		".broken": {err: errors.New("boom")},
		".ok":     {count: 1, visible: true, text: "content"},
	}}

	text, _, trace := extractField(pg, []string{".broken", ".ok"})
	if text != "content" {
		t.Errorf("text = %q, want %q", text, "content")
	}
	if !strings.Contains(strings.Join(trace, "\n"), "error: boom") {
		t.Errorf("trace missing the query error: %v", trace)
	}
}

func TestExtractField_AllMiss(t *testing.T) {
	text, matched, trace := extractField(&fakePage{}, []string{".a", ".b"})
	if text != "" || matched != "" {
		t.Errorf("got %q via %q, want nothing", text, matched)
	}
	if len(trace) != 2 {
		t.Errorf("trace has %d entries, want one per selector: %v", len(trace), trace)
	}
}

func TestStaticFallback_FindsSnapshotContent(t *testing.T) {
	html := `<html><body><div class="description">Full job text for the posting.</div></body></html>`
	pg := &fakePage{states: []pageState{{title: "Job", html: html}}}
	s := New(testBudget(), config.BrowserConfig{})
	res := &models.ScrapeResult{}

	text, fragment := s.staticFallback(pg, s.registry.Generic(), "https://example.com/j/1", res)
	if text != "Full job text for the posting." {
		t.Errorf("text = %q", text)
	}
	if !strings.Contains(fragment, `class="description"`) {
		t.Errorf("fragment = %q, want the matched element's HTML", fragment)
	}
	found := false
	for _, d := range res.Diagnostics {
		if strings.Contains(d, "snapshot fallback") {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics missing the fallback note: %v", res.Diagnostics)
	}
}

func TestStaticFallback_ReadabilityOnlyForGeneric(t *testing.T) {
	para := strings.Repeat("<p>We are hiring a platform engineer to scale our ingest pipeline.</p>", 12)
	html := "<html><body><article-like>" + para + "</article-like></body></html>"
	pg := &fakePage{states: []pageState{{title: "Job", html: html}}}
	s := New(testBudget(), config.BrowserConfig{})

	// A profiled site must not fall through to readability; its
	// selectors are authoritative.
	linkedin := s.registry.Detect("https://www.linkedin.com/jobs/view/1")
	if text, _ := s.staticFallback(pg, linkedin, "https://www.linkedin.com/jobs/view/1", &models.ScrapeResult{}); text != "" {
		t.Errorf("profiled site used readability: %q", text)
	}

	if text, _ := s.staticFallback(pg, s.registry.Generic(), "https://unknown.example/j/1", &models.ScrapeResult{}); text == "" {
		t.Error("generic profile did not use readability for main content")
	}
}
