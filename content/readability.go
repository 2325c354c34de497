package content

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum TextContent length (in characters)
// for readability output to be considered a plausible job description.
// Below this threshold we assume the algorithm latched onto navigation
// or boilerplate instead of the posting body.
const minContentLength = 50

// MainContent runs the Mozilla Readability algorithm on rawHTML and
// returns the main body as plain text and HTML. It reports false when
// the URL is unparseable, the algorithm errors, or the result is too
// short to be a posting.
func MainContent(rawHTML, sourceURL string) (text, htmlContent string, ok bool) {
	parsedURL, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Debug("readability: invalid source URL", "url", sourceURL, "error", err)
		return "", "", false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		slog.Debug("readability: extraction failed", "url", sourceURL, "error", err)
		return "", "", false
	}

	trimmed := strings.TrimSpace(article.TextContent)
	if len(trimmed) < minContentLength {
		slog.Debug("readability: extracted content too short",
			"url", sourceURL, "length", len(trimmed))
		return "", "", false
	}

	return trimmed, article.Content, true
}
