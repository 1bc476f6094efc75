package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks parses markup and returns every anchor href resolved to an
// absolute URL against pageURL, deduplicated, in document order. No
// eligibility filtering happens here; callers compose this with Eligible.
//
// Parsing is best-effort: malformed markup yields whatever anchors could
// be recovered, never an error. Hrefs that cannot be resolved are skipped.
func ExtractLinks(markup, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || href == "" {
			return
		}

		// Resolve relative, protocol-relative, and fragment-only hrefs
		// against the page URL. Absolute hrefs pass through unchanged.
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}

		absURL := resolved.String()
		if _, ok := seen[absURL]; ok {
			return
		}
		seen[absURL] = struct{}{}
		links = append(links, absURL)
	})

	return links
}
