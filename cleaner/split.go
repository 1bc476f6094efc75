package cleaner

import "strings"

// DefaultSplitSize is the segment size used when feeding long documents to
// the refinement backend, chosen to stay well inside typical context windows.
const DefaultSplitSize = 6000

// SplitText splits text into segments of at most max characters, cutting on
// paragraph boundaries where possible. A single paragraph longer than max is
// hard-cut at the last space before the limit, or mid-word when it has no
// spaces at all. Segments preserve their original text; joining them with
// "\n\n" loses only the blank lines they were split on.
//
// max values below 1 fall back to DefaultSplitSize.
func SplitText(text string, max int) []string {
	if max < 1 {
		max = DefaultSplitSize
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= max {
		return []string{text}
	}

	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Oversized paragraph: flush what we have and hard-cut it.
		if len(para) > max {
			flush()
			segments = append(segments, hardCut(para, max)...)
			continue
		}

		// +2 accounts for the paragraph separator we re-insert.
		if current.Len() > 0 && current.Len()+2+len(para) > max {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return segments
}

// hardCut slices a single oversized paragraph into max-sized pieces,
// preferring to break at the last space inside each window.
func hardCut(para string, max int) []string {
	var pieces []string
	for len(para) > max {
		cut := strings.LastIndexByte(para[:max], ' ')
		if cut <= 0 {
			cut = max
		}
		pieces = append(pieces, strings.TrimSpace(para[:cut]))
		para = strings.TrimSpace(para[cut:])
	}
	if para != "" {
		pieces = append(pieces, para)
	}
	return pieces
}
