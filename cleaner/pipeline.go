package cleaner

import (
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/pageminer/models"
)

// Cleaner turns raw page HTML into LLM-ready output in two stages: content
// extraction (readability, pruning, or both) followed by format conversion
// (markdown, citations, html, or text). One Cleaner serves all requests; the
// Markdown converter it holds is goroutine-safe.
type Cleaner struct {
	mdConverter *converter.Converter
}

// NewCleaner builds a Cleaner with the shared Markdown converter.
func NewCleaner() *Cleaner {
	return &Cleaner{
		mdConverter: newMarkdownConverter(),
	}
}

// CleanOptions carries the optional CSS include/exclude filters applied
// before extraction.
type CleanOptions struct {
	IncludeTags []string
	ExcludeTags []string
}

// Clean runs the full pipeline and returns a partial ScrapeResponse with
// Content, Metadata, Links, Images, and Tokens filled in. Timing, StatusCode,
// and FinalURL stay zero-valued for the API layer to complete.
func (c *Cleaner) Clean(rawHTML string, sourceURL string, format string, extractMode string, opts ...CleanOptions) (*models.ScrapeResponse, error) {
	originalTokens := EstimateTokens(rawHTML)

	if len(opts) > 0 {
		rawHTML = FilterContent(rawHTML, opts[0].IncludeTags, opts[0].ExcludeTags)
	}

	article := c.extract(rawHTML, sourceURL, extractMode)

	content, err := c.render(article, sourceURL, format)
	if err != nil {
		return nil, err
	}

	cleanedTokens := EstimateTokens(content)
	savings := 0.0
	if originalTokens > 0 {
		savings = float64(originalTokens-cleanedTokens) / float64(originalTokens) * 100
		savings = math.Round(savings*100) / 100
	}

	// Links, images, and OG tags come from the unextracted page. Extraction
	// strips navigation, which is exactly where most links live.
	links := ExtractLinks(rawHTML, sourceURL)
	images := ExtractImages(rawHTML, sourceURL)
	ogMeta := ExtractOGMetadata(rawHTML)

	return &models.ScrapeResponse{
		Success: true,
		Content: content,
		Metadata: models.Metadata{
			Title:       article.Title,
			Description: article.Excerpt,
			SiteName:    article.SiteName,
			Author:      article.Byline,
			Language:    article.Language,
			SourceURL:   sourceURL,
		},
		Links:      links,
		Images:     images,
		OGMetadata: ogMeta,
		Tokens: models.TokenInfo{
			OriginalEstimate: originalTokens,
			CleanedEstimate:  cleanedTokens,
			SavingsPercent:   savings,
		},
	}, nil
}

// extract runs stage one in the requested mode. It never fails; every mode
// degrades to raw HTML rather than returning an empty article.
func (c *Cleaner) extract(rawHTML, sourceURL, extractMode string) readability.Article {
	switch extractMode {
	case "raw":
		return rawArticle(rawHTML)

	case "pruning":
		pruned, err := PruneContent(rawHTML, sourceURL)
		if err != nil {
			slog.Warn("pruning failed, keeping raw HTML",
				"url", sourceURL, "error", err,
			)
			pruned = rawHTML
		}
		// Title, byline, and the rest still come from readability over
		// the full page.
		article, _ := ExtractContent(rawHTML, sourceURL)
		article.Content = pruned
		article.TextContent = stripTags(pruned)
		return article

	case "auto":
		return autoExtract(rawHTML, sourceURL)

	default:
		// "readability" and anything unrecognised.
		article, _ := ExtractContent(rawHTML, sourceURL)
		return article
	}
}

// render runs stage two, producing the requested output format from the
// extracted article.
func (c *Cleaner) render(article readability.Article, sourceURL, format string) (string, error) {
	switch format {
	case "html":
		return article.Content, nil
	case "text":
		return article.TextContent, nil
	case "markdown_citations":
		md, err := c.toMarkdown(article.Content, sourceURL)
		if err != nil {
			return "", err
		}
		return ConvertToCitations(md), nil
	default:
		// "markdown", the empty string, and anything unrecognised.
		return c.toMarkdown(article.Content, sourceURL)
	}
}

func (c *Cleaner) toMarkdown(htmlContent, sourceURL string) (string, error) {
	md, err := ToMarkdown(c.mdConverter, htmlContent, sourceURL)
	if err != nil {
		return "", models.NewScrapeError(
			models.ErrCodeReadability,
			"markdown conversion failed",
			err,
		)
	}
	return md, nil
}

// autoExtract runs readability and pruning concurrently and keeps whichever
// produced more text. A result more than ten times longer than a substantial
// alternative is assumed to have swallowed boilerplate and loses the tie.
func autoExtract(rawHTML, sourceURL string) readability.Article {
	var (
		article  readability.Article
		pruned   string
		pruneErr error
		wg       sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		article, _ = ExtractContent(rawHTML, sourceURL)
	}()
	go func() {
		defer wg.Done()
		pruned, pruneErr = PruneContent(rawHTML, sourceURL)
	}()
	wg.Wait()

	if pruneErr != nil {
		slog.Warn("auto extract: pruning failed, using readability",
			"url", sourceURL, "error", pruneErr,
		)
		return article
	}

	prunedText := stripTags(pruned)
	readableText := strings.TrimSpace(article.TextContent)

	preferReadability := len(readableText) >= len(prunedText)
	switch {
	case preferReadability && len(prunedText) > minContentLength && len(readableText) > 10*len(prunedText):
		preferReadability = false
	case !preferReadability && len(readableText) > minContentLength && len(prunedText) > 10*len(readableText):
		preferReadability = true
	}

	if preferReadability {
		return article
	}

	article.Content = pruned
	article.TextContent = prunedText
	return article
}

// stripTags extracts the visible text of an HTML fragment.
func stripTags(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
