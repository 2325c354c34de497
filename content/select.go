package content

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Match is the outcome of a static selector pass over an HTML snapshot.
type Match struct {
	Text     string // trimmed text content of the matched element
	HTML     string // outer HTML of the matched element
	Selector string // the selector that matched
}

// FromSelectors tries each selector against the snapshot in order and
// returns the first element with non-empty text. Selectors that fail
// to compile match nothing.
//
// This is the static counterpart of live-page extraction: it cannot
// check visibility, so it only runs after the live pass found nothing.
func FromSelectors(rawHTML string, selectors []string) (Match, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Match{}, false
	}

	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() == 0 {
			continue
		}
		first := sel.First()
		text := strings.TrimSpace(first.Text())
		if text == "" {
			continue
		}
		outer, err := goquery.OuterHtml(first)
		if err != nil {
			outer = ""
		}
		return Match{Text: text, HTML: outer, Selector: selector}, true
	}
	return Match{}, false
}
