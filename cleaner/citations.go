package cleaner

import (
	"fmt"
	"regexp"
	"strings"
)

// inlineLinkRe matches Markdown inline links of the form [text](url).
var inlineLinkRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// ConvertToCitations rewrites inline Markdown links as numbered references
// with a trailing reference list, so long URLs appear once instead of being
// repeated mid-sentence. The same URL always maps to the same number. Text
// without links passes through unchanged.
func ConvertToCitations(markdown string) string {
	refNum := make(map[string]int)
	var order []string

	body := inlineLinkRe.ReplaceAllStringFunc(markdown, func(match string) string {
		parts := inlineLinkRe.FindStringSubmatch(match)
		if len(parts) != 3 {
			return match
		}

		url := parts[2]
		num, seen := refNum[url]
		if !seen {
			num = len(order) + 1
			refNum[url] = num
			order = append(order, url)
		}
		return fmt.Sprintf("[%s][%d]", parts[1], num)
	})

	if len(order) == 0 {
		return markdown
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n---\n")
	for i, url := range order {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%d]: %s", i+1, url)
	}
	return b.String()
}
