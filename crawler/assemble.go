package crawler

import (
	"fmt"
	"strings"

	"github.com/use-agent/pageminer/cleaner"
)

var pageSeparator = strings.Repeat("=", 80)

// AssembleText flattens crawled pages into one labeled document. Each page
// contributes a "=== PAGE n: url ===" header with a 1-based index, its
// body text (script and style content removed, lines trimmed, blank lines
// dropped), and a separator rule. Section order is visitation order.
func AssembleText(pages []Page) string {
	parts := make([]string, 0, len(pages)*3)
	for i, p := range pages {
		parts = append(parts, fmt.Sprintf("=== PAGE %d: %s ===\n", i+1, p.URL))
		if text := cleaner.BodyText(p.HTML); text != "" {
			parts = append(parts, text)
		}
		parts = append(parts, "\n"+pageSeparator+"\n")
	}
	return strings.Join(parts, "\n")
}
