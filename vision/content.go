package vision

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the minimum readability TextContent length for the
// extraction to be considered valid. Below it we assume the algorithm missed
// the menu and fall back to the raw HTML.
const minContentLength = 50

// mdConverter is goroutine-safe and reused across calls.
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea, and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin: keeps table structure, which many menu pages use for the
//     item/price columns, with minimal cell padding to save tokens.
var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// PrepareHTML flattens a rendered menu page into Markdown for text-mode
// extraction. Readability strips nav, footer, and sidebar chrome first; if it
// chokes or returns too little, the raw HTML is converted instead.
func PrepareHTML(rawHTML, sourceURL string) (string, error) {
	content := rawHTML

	if parsedURL, err := nurl.Parse(sourceURL); err == nil {
		article, rerr := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
		if rerr != nil {
			slog.Warn("readability failed, using raw HTML", "url", sourceURL, "error", rerr)
		} else if len(strings.TrimSpace(article.TextContent)) < minContentLength {
			slog.Warn("readability output too short, using raw HTML",
				"url", sourceURL, "length", len(article.TextContent),
			)
		} else {
			content = article.Content
		}
	}

	domain := ""
	if u, err := nurl.Parse(sourceURL); err == nil {
		domain = u.Scheme + "://" + u.Host
	}
	return mdConverter.ConvertString(content, converter.WithDomain(domain))
}
