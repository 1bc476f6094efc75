package cleaner

import (
	"log/slog"
	nurl "net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// minContentLength is the shortest TextContent readability can return before
// the result is treated as a miss and the raw HTML is used instead.
const minContentLength = 50

// ExtractContent runs go-readability over rawHTML and reports whether the
// extraction was usable. Every failure path (bad source URL, parser error,
// near-empty result) degrades to an Article wrapping the raw input, so the
// pipeline always has content to convert. The bool is false on those
// degraded paths.
func ExtractContent(rawHTML string, sourceURL string) (readability.Article, bool) {
	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("readability: source URL unparseable, keeping raw HTML",
			"url", sourceURL, "error", err,
		)
		return rawArticle(rawHTML), false
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		slog.Warn("readability: extraction failed, keeping raw HTML",
			"url", sourceURL, "error", err,
		)
		return rawArticle(rawHTML), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		slog.Warn("readability: result too short, keeping raw HTML",
			"url", sourceURL, "length", len(article.TextContent),
		)
		return rawArticle(rawHTML), false
	}

	return article, true
}

// rawArticle wraps unprocessed HTML in an Article shell. TextContent keeps
// the markup as-is; the format stage decides what to do with it.
func rawArticle(rawHTML string) readability.Article {
	return readability.Article{
		Content:     rawHTML,
		TextContent: rawHTML,
	}
}
