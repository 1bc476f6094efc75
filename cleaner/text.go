package cleaner

import (
	"strings"

	"golang.org/x/net/html"
)

// BodyText extracts the readable text of a document's body: script and
// style subtrees are dropped, every text node is split into lines, each
// line trimmed, blank lines discarded, and the remainder joined with
// newlines. Returns "" when the markup cannot be parsed or the body holds
// no text.
func BodyText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	body := findElement(doc, "body")
	if body == nil {
		return ""
	}
	var lines []string
	collectTextLines(body, &lines)
	return strings.Join(lines, "\n")
}

// findElement returns the first element named name, depth-first.
func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

// collectTextLines appends the trimmed, non-blank text lines under n,
// skipping script and style subtrees entirely.
func collectTextLines(n *html.Node, lines *[]string) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		for _, line := range strings.Split(n.Data, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				*lines = append(*lines, trimmed)
			}
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextLines(c, lines)
	}
}
