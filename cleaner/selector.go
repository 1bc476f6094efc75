package cleaner

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ApplyCSSSelector keeps only the parts of rawHTML matching selector,
// concatenating the outer HTML of every match in document order. An invalid
// selector is an error; a valid selector with zero matches returns the input
// unchanged rather than an empty document.
func ApplyCSSSelector(rawHTML string, selector string) (string, error) {
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return "", err
	}

	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", err
	}

	nodes := cascadia.QueryAll(root, sel)
	if len(nodes) == 0 {
		return rawHTML, nil
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
