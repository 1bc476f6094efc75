package cleaner

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/pageminer/models"
)

// ExtractLinks returns the anchors of a page split by host: hrefs on the
// same host as sourceURL are internal, every other host is external. Hrefs
// resolve to absolute form against sourceURL, non-web schemes are dropped,
// and each URL is reported once, in document order.
func ExtractLinks(rawHTML string, sourceURL string) models.LinksResult {
	// Empty slices serialize as [] rather than null.
	out := models.LinksResult{
		Internal: []models.Link{},
		External: []models.Link{},
	}

	base, doc, ok := parsePage(rawHTML, sourceURL)
	if !ok {
		return out
	}

	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		abs, ok := resolveAttr(base, anchor, "href")
		if !ok || !isWebScheme(abs) {
			return
		}

		href := abs.String()
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		link := models.Link{Href: href, Text: strings.TrimSpace(anchor.Text())}
		bucket := &out.External
		if strings.EqualFold(abs.Host, base.Host) {
			bucket = &out.Internal
		}
		*bucket = append(*bucket, link)
	})

	return out
}

// ExtractImages returns the images of a page with src resolved to absolute
// form, deduplicated. Inline data: sources are skipped.
func ExtractImages(rawHTML string, sourceURL string) []models.Image {
	images := []models.Image{}

	base, doc, ok := parsePage(rawHTML, sourceURL)
	if !ok {
		return images
	}

	seen := make(map[string]struct{})
	doc.Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		abs, ok := resolveAttr(base, img, "src")
		if !ok || abs.Scheme == "data" {
			return
		}

		src := abs.String()
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}

		alt, _ := img.Attr("alt")
		images = append(images, models.Image{Src: src, Alt: strings.TrimSpace(alt)})
	})

	return images
}

// ExtractOGMetadata reads the page's Open Graph meta tags. Missing
// properties stay zero; when a property repeats, the last value wins.
func ExtractOGMetadata(rawHTML string) models.OGMetadata {
	var og models.OGMetadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return og
	}

	fields := map[string]*string{
		"og:title":       &og.Title,
		"og:description": &og.Description,
		"og:image":       &og.Image,
		"og:type":        &og.Type,
	}
	doc.Find("meta[property]").Each(func(_ int, meta *goquery.Selection) {
		content, _ := meta.Attr("content")
		if content == "" {
			return
		}
		prop, _ := meta.Attr("property")
		if dst, ok := fields[prop]; ok {
			*dst = content
		}
	})

	return og
}

// parsePage parses the source URL and the markup in one step. ok is false
// when either fails; extraction then returns its empty result.
func parsePage(rawHTML, sourceURL string) (*url.URL, *goquery.Document, bool) {
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil, nil, false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, nil, false
	}
	return base, doc, true
}

// resolveAttr resolves the named attribute of sel against base. ok is false
// for a missing or empty attribute and for values url.Parse rejects.
func resolveAttr(base *url.URL, sel *goquery.Selection, attr string) (*url.URL, bool) {
	raw, exists := sel.Attr(attr)
	if !exists || raw == "" {
		return nil, false
	}
	abs, err := base.Parse(raw)
	if err != nil {
		return nil, false
	}
	return abs, true
}

// isWebScheme reports whether u is fetchable over HTTP. mailto:, tel: and
// javascript: hrefs are not page links.
func isWebScheme(u *url.URL) bool {
	return u.Scheme == "http" || u.Scheme == "https"
}
