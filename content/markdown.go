package content

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// NewConverter creates a reusable, goroutine-safe Converter for turning
// extracted description HTML into Markdown:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea and HTML comments.
//   - commonmark plugin: standard Markdown rendering (headings, lists,
//     links, emphasis, blockquotes).
//   - table plugin: keeps salary bands and shift tables readable, with
//     minimal cell padding.
func NewConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
}

// ToMarkdown converts a description HTML fragment to Markdown. The
// domain parameter resolves relative URLs in <a> and <img> tags into
// absolute ones so the output is self-contained.
func ToMarkdown(conv *converter.Converter, fragment string, domain string) (string, error) {
	return conv.ConvertString(fragment, converter.WithDomain(domain))
}
