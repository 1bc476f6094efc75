package cleaner

import (
	"strings"
	"testing"
)

func TestBodyText_BasicExtraction(t *testing.T) {
	markup := `<html><head><title>Ignored</title></head><body>
		<h1>Heading</h1>
		<p>First paragraph.</p>
		<p>Second <b>bold</b> paragraph.</p>
	</body></html>`

	got := BodyText(markup)
	want := "Heading\nFirst paragraph.\nSecond\nbold\nparagraph."
	if got != want {
		t.Errorf("BodyText = %q, want %q", got, want)
	}
}

func TestBodyText_SkipsScriptAndStyle(t *testing.T) {
	markup := `<html><body>
		<p>keep</p>
		<script>const gone = 1;</script>
		<style>p { display: none }</style>
		<p>also keep</p>
	</body></html>`

	got := BodyText(markup)
	if strings.Contains(got, "gone") || strings.Contains(got, "display") {
		t.Errorf("script/style text leaked: %q", got)
	}
	if got != "keep\nalso keep" {
		t.Errorf("BodyText = %q, want %q", got, "keep\nalso keep")
	}
}

func TestBodyText_HeadContentExcluded(t *testing.T) {
	markup := `<html><head><title>Site Title</title></head><body><p>body only</p></body></html>`

	got := BodyText(markup)
	if strings.Contains(got, "Site Title") {
		t.Errorf("head content leaked into body text: %q", got)
	}
	if got != "body only" {
		t.Errorf("BodyText = %q, want %q", got, "body only")
	}
}

func TestBodyText_BlankLinesDropped(t *testing.T) {
	markup := "<html><body><div>  one  \n\n   \n  two  </div></body></html>"

	if got := BodyText(markup); got != "one\ntwo" {
		t.Errorf("BodyText = %q, want %q", got, "one\ntwo")
	}
}

func TestBodyText_EmptyDocument(t *testing.T) {
	if got := BodyText(""); got != "" {
		t.Errorf("BodyText of empty markup = %q, want empty", got)
	}
	if got := BodyText("<html><body></body></html>"); got != "" {
		t.Errorf("BodyText of empty body = %q, want empty", got)
	}
}

func TestBodyText_FragmentGetsImplicitBody(t *testing.T) {
	// The HTML5 parser wraps naked fragments in html/body, so text still
	// comes back even without explicit body tags.
	if got := BodyText("<p>naked fragment</p>"); got != "naked fragment" {
		t.Errorf("BodyText = %q, want %q", got, "naked fragment")
	}
}
