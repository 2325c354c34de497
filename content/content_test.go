package content

import (
	"strings"
	"testing"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"simple", "<html><head><title>Backend Engineer</title></head></html>", "Backend Engineer"},
		{"whitespace", "<title>  Just a moment...  </title>", "Just a moment..."},
		{"no title", "<html><body><p>hi</p></body></html>", ""},
		{"empty title", "<title></title>", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.html); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromSelectors(t *testing.T) {
	page := `<html><body>
		<div class="noise">nav</div>
		<div class="description"><p>Full job text with responsibilities.</p></div>
		<div class="job-details">short</div>
	</body></html>`

	m, ok := FromSelectors(page, []string{".job-description", ".description", ".job-details"})
	if !ok {
		t.Fatal("FromSelectors should match")
	}
	if m.Selector != ".description" {
		t.Errorf("matched selector = %q, want .description", m.Selector)
	}
	if m.Text != "Full job text with responsibilities." {
		t.Errorf("text = %q", m.Text)
	}
	if !strings.Contains(m.HTML, `<div class="description">`) {
		t.Errorf("HTML fragment = %q, want outer HTML of the match", m.HTML)
	}
}

func TestFromSelectors_SkipsEmptyElements(t *testing.T) {
	page := `<div class="a">   </div><div class="b">content</div>`

	m, ok := FromSelectors(page, []string{".a", ".b"})
	if !ok || m.Selector != ".b" {
		t.Fatalf("match = %+v, ok = %v; want .b to win over empty .a", m, ok)
	}
}

func TestFromSelectors_NoMatch(t *testing.T) {
	if _, ok := FromSelectors("<div>x</div>", []string{".missing", "#also-missing"}); ok {
		t.Error("FromSelectors should report no match")
	}
}

func TestFromSelectors_InvalidSelectorMatchesNothing(t *testing.T) {
	m, ok := FromSelectors(`<div class="ok">text</div>`, []string{"div[[", ".ok"})
	if !ok || m.Selector != ".ok" {
		t.Fatalf("match = %+v, ok = %v; invalid selector should be skipped", m, ok)
	}
}

func TestMainContent(t *testing.T) {
	var body strings.Builder
	body.WriteString("<html><body><nav>home jobs about</nav><article><h1>Senior Gopher</h1>")
	for i := 0; i < 12; i++ {
		body.WriteString("<p>You will design, build and operate distributed scraping infrastructure in Go.</p>")
	}
	body.WriteString("</article></body></html>")

	text, htmlContent, ok := MainContent(body.String(), "https://jobs.example.com/view/1")
	if !ok {
		t.Fatal("MainContent should extract the article")
	}
	if !strings.Contains(text, "distributed scraping infrastructure") {
		t.Errorf("text missing body content: %q", text)
	}
	if htmlContent == "" {
		t.Error("HTML content should be populated")
	}
}

func TestMainContent_TooShort(t *testing.T) {
	if _, _, ok := MainContent("<html><body><p>hi</p></body></html>", "https://example.com"); ok {
		t.Error("trivial pages should not pass as a posting body")
	}
}

func TestToMarkdown(t *testing.T) {
	conv := NewConverter()

	md, err := ToMarkdown(conv, `<h2>Requirements</h2><ul><li>Go</li><li>SQL</li></ul><a href="/apply">Apply</a>`, "jobs.example.com")
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	if !strings.Contains(md, "## Requirements") {
		t.Errorf("markdown missing heading: %q", md)
	}
	if !strings.Contains(md, "- Go") {
		t.Errorf("markdown missing list item: %q", md)
	}
	if !strings.Contains(md, "https://jobs.example.com/apply") {
		t.Errorf("relative link not absolutized: %q", md)
	}
}

func TestToMarkdown_StripsScripts(t *testing.T) {
	conv := NewConverter()

	md, err := ToMarkdown(conv, `<p>Pay: $90k</p><script>track()</script>`, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(md, "track()") {
		t.Errorf("script content leaked into markdown: %q", md)
	}
}
