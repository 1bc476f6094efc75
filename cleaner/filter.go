package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FilterContent narrows an HTML document with CSS selectors before
// extraction runs. Exclusions are removed first; then, when include
// selectors are given, only the matching elements survive. Parse problems
// return the input untouched.
func FilterContent(html string, includeTags, excludeTags []string) string {
	if len(includeTags) == 0 && len(excludeTags) == 0 {
		return html
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	for _, sel := range excludeTags {
		doc.Find(sel).Remove()
	}

	if len(includeTags) > 0 {
		if kept := outerHTMLOf(doc.Find(strings.Join(includeTags, ", "))); kept != "" {
			return kept
		}
		// Include selectors matched nothing. Fall through with just the
		// exclusions applied rather than returning an empty page.
	}

	out, err := doc.Html()
	if err != nil {
		return html
	}
	return out
}

// outerHTMLOf concatenates the outer HTML of every element in the selection.
func outerHTMLOf(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Each(func(_ int, el *goquery.Selection) {
		if markup, err := goquery.OuterHtml(el); err == nil {
			b.WriteString(markup)
		}
	})
	return b.String()
}
