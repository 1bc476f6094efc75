package cleaner

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockSignals holds the raw measurements taken from one candidate block
// before weighting.
type blockSignals struct {
	textLen   int     // visible text bytes
	htmlLen   int     // serialized element size
	anchorLen int     // text bytes inside <a> descendants
	tagBias   float64 // semantic tag bonus or penalty
	attrBias  float64 // class/id hint bonus or penalty
}

// pruneWeights is the weighting applied to each signal when scoring a block.
// A block is kept when the weighted sum is positive.
var pruneWeights = struct {
	textDensity float64
	linkDensity float64
	tag         float64
	attr        float64
	length      float64
}{
	textDensity: 3.0,
	linkDensity: -2.0,
	tag:         1.5,
	attr:        1.0,
	length:      0.5,
}

// contentHints mark class/id values that usually wrap the article itself.
var contentHints = []string{
	"content", "article", "post", "entry", "body", "main", "text",
}

// chromeHints mark class/id values that usually wrap page furniture.
var chromeHints = []string{
	"sidebar", "ad", "widget", "nav", "menu", "comment", "footer",
	"header", "banner", "popup", "modal", "cookie", "social", "share",
	"related", "recommend", "promo",
}

// PruneContent walks the direct children of <body> and keeps only the blocks
// whose weighted content score is positive. Long prose with few links inside
// semantic containers scores high; link-heavy navigation and footer chrome
// lands below zero and is dropped. When every block fails the cut the whole
// body is returned, so callers never receive empty output for a non-empty
// page.
func PruneContent(rawHTML, sourceURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, err
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		// Not a full document. Nothing to score against.
		return rawHTML, nil
	}

	var kept []string
	body.Children().Each(func(_ int, block *goquery.Selection) {
		if measure(block).score() <= 0 {
			return
		}
		if markup, err := goquery.OuterHtml(block); err == nil {
			kept = append(kept, markup)
		}
	})

	if len(kept) == 0 {
		inner, err := body.Html()
		if err != nil {
			return rawHTML, nil
		}
		return inner, nil
	}

	return strings.Join(kept, "\n"), nil
}

// measure gathers the raw signals for one block.
func measure(block *goquery.Selection) blockSignals {
	var s blockSignals

	if markup, err := goquery.OuterHtml(block); err == nil {
		s.htmlLen = len(markup)
	}
	s.textLen = len(strings.TrimSpace(block.Text()))
	block.Find("a").Each(func(_ int, a *goquery.Selection) {
		s.anchorLen += len(strings.TrimSpace(a.Text()))
	})

	switch goquery.NodeName(block) {
	case "article", "main", "section":
		s.tagBias = 5.0
	case "nav", "footer", "aside", "header":
		s.tagBias = -5.0
	}

	class, _ := block.Attr("class")
	id, _ := block.Attr("id")
	attrs := strings.ToLower(class + " " + id)
	// Each direction counts at most once, however many hints match.
	if containsAny(attrs, contentHints) {
		s.attrBias += 3.0
	}
	if containsAny(attrs, chromeHints) {
		s.attrBias -= 3.0
	}

	return s
}

// score folds the signals into a single weighted number. The densities are
// ratios in [0,1]; the length term is log-scaled so a wall of text cannot
// drown out the link-density penalty.
func (s blockSignals) score() float64 {
	textDensity := 0.0
	if s.htmlLen > 0 {
		textDensity = float64(s.textLen) / float64(s.htmlLen)
	}
	linkDensity := 0.0
	if s.textLen > 0 {
		linkDensity = float64(s.anchorLen) / float64(s.textLen)
	}

	return textDensity*pruneWeights.textDensity +
		linkDensity*pruneWeights.linkDensity +
		s.tagBias*pruneWeights.tag +
		s.attrBias*pruneWeights.attr +
		math.Log10(float64(s.textLen)+1)*pruneWeights.length
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
