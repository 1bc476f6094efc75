package crawler

import (
	"testing"
)

func TestExtractLinks_ResolvesAgainstPage(t *testing.T) {
	markup := `<html><body>
		<a href="/docs">Docs</a>
		<a href="team">Team</a>
		<a href="https://elsewhere.org/page">Away</a>
		<a href="//cdn.x.com/asset">CDN</a>
		<a href="#section">Jump</a>
		<a href="mailto:hi@x.com">Mail</a>
	</body></html>`

	got := ExtractLinks(markup, "https://x.com/company/")
	want := []string{
		"https://x.com/docs",
		"https://x.com/company/team",
		"https://elsewhere.org/page",
		"https://cdn.x.com/asset",
		"https://x.com/company/#section",
		"mailto:hi@x.com",
	}

	if len(got) != len(want) {
		t.Fatalf("got %d links, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractLinks_DeduplicatesPreservingOrder(t *testing.T) {
	markup := `<html><body>
		<a href="/b">first</a>
		<a href="/c">second</a>
		<a href="/b">repeat</a>
	</body></html>`

	got := ExtractLinks(markup, "https://x.com/")
	want := []string{"https://x.com/b", "https://x.com/c"}

	if len(got) != len(want) {
		t.Fatalf("got %d links, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("link[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtractLinks_MalformedMarkup(t *testing.T) {
	// Unclosed tags and stray brackets must not abort extraction.
	markup := `<html><body><div><a href="/ok">ok<a href="/also">also<p></div>< broken`

	got := ExtractLinks(markup, "https://x.com/")
	if len(got) != 2 {
		t.Fatalf("expected 2 links from malformed markup, got %d: %v", len(got), got)
	}
	if got[0] != "https://x.com/ok" || got[1] != "https://x.com/also" {
		t.Errorf("unexpected links: %v", got)
	}
}

func TestExtractLinks_NoAnchors(t *testing.T) {
	if got := ExtractLinks("<html><body><p>nothing here</p></body></html>", "https://x.com/"); len(got) != 0 {
		t.Errorf("expected no links, got %v", got)
	}
}

func TestExtractLinks_EmptyAndUnresolvableHrefs(t *testing.T) {
	markup := `<html><body>
		<a href="">empty</a>
		<a href="http://bad` + "\x7f" + `.com/">control char</a>
		<a href="/fine">fine</a>
	</body></html>`

	got := ExtractLinks(markup, "https://x.com/")
	if len(got) != 1 || got[0] != "https://x.com/fine" {
		t.Errorf("expected only the resolvable link, got %v", got)
	}
}

func TestExtractLinks_BadPageURL(t *testing.T) {
	if got := ExtractLinks(`<a href="/x">x</a>`, "http://bad\x7f.com/"); got != nil {
		t.Errorf("expected nil for unparseable page URL, got %v", got)
	}
}
