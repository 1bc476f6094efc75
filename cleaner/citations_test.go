package cleaner

import (
	"strings"
	"testing"
)

func TestConvertToCitations(t *testing.T) {
	md := "See [Google](https://google.com) and [GitHub](https://github.com) and [Google again](https://google.com)."
	got := ConvertToCitations(md)

	if !strings.Contains(got, "[Google][1]") {
		t.Errorf("missing first citation:\n%s", got)
	}
	if !strings.Contains(got, "[GitHub][2]") {
		t.Errorf("missing second citation:\n%s", got)
	}
	if !strings.Contains(got, "[Google again][1]") {
		t.Errorf("duplicate URL should reuse reference 1:\n%s", got)
	}
	if !strings.Contains(got, "[1]: https://google.com") || !strings.Contains(got, "[2]: https://github.com") {
		t.Errorf("missing reference list:\n%s", got)
	}
}

func TestConvertToCitations_NoLinks(t *testing.T) {
	md := "Plain text without any links."
	if got := ConvertToCitations(md); got != md {
		t.Errorf("text without links should be unchanged, got:\n%s", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("empty = %d, want 0", got)
	}
	if got := EstimateTokens("ab"); got != 1 {
		t.Errorf("short = %d, want minimum 1", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 300)); got != 100 {
		t.Errorf("300 chars = %d, want 100", got)
	}
}
