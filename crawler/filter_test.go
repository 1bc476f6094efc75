package crawler

import (
	"testing"
)

func TestEligible_SchemePrefixes(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"empty", "", false},
		{"bare fragment", "#section", false},
		{"mailto", "mailto:team@x.com", false},
		{"tel", "tel:+15551234", false},
		{"plain page", "https://x.com/about", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.url, "x.com", true); got != tt.want {
				t.Errorf("Eligible(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestEligible_ExcludedExtensions(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"pdf", "https://x.com/report.pdf", false},
		{"uppercase pdf", "https://x.com/REPORT.PDF", false},
		{"zip", "https://x.com/bundle.zip", false},
		{"png", "https://x.com/logo.png", false},
		{"stylesheet", "https://x.com/site.css", false},
		{"script", "https://x.com/app.js", false},
		{"extension mid-path", "https://x.com/report.pdf/viewer", true},
		{"html page", "https://x.com/about.html", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.url, "x.com", true); got != tt.want {
				t.Errorf("Eligible(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestEligible_ExcludedKeywords(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"login path", "https://x.com/login", false},
		{"uppercase keyword", "https://x.com/LOGIN", false},
		{"keyword in query", "https://x.com/page?next=checkout", false},
		{"keyword inside word", "https://x.com/rapid-results", false},
		{"clean path", "https://x.com/about", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.url, "x.com", true); got != tt.want {
				t.Errorf("Eligible(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestEligible_DomainScope(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		sameDomainOnly bool
		want           bool
	}{
		{"same host", "https://x.com/about", true, true},
		{"other host", "https://other.com/about", true, false},
		{"subdomain is not same host", "https://blog.x.com/post", true, false},
		{"port ignored", "https://x.com:8443/about", true, true},
		{"other host without scoping", "https://other.com/about", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Eligible(tt.url, "x.com", tt.sameDomainOnly); got != tt.want {
				t.Errorf("Eligible(%q, sameDomainOnly=%v) = %v, want %v",
					tt.url, tt.sameDomainOnly, got, tt.want)
			}
		})
	}
}

func TestEligible_Deterministic(t *testing.T) {
	// Same inputs, same answer, every time: the filter holds no state.
	urls := []string{
		"https://x.com/login",
		"https://x.com/about",
		"https://other.com/about",
		"https://x.com/report.pdf",
	}
	want := []bool{false, true, false, false}

	for round := 0; round < 3; round++ {
		for i, u := range urls {
			if got := Eligible(u, "x.com", true); got != want[i] {
				t.Errorf("round %d: Eligible(%q) = %v, want %v", round, u, got, want[i])
			}
		}
	}
}

func TestHost(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "https://x.com/about", "x.com"},
		{"with port", "https://x.com:8443/about", "x.com"},
		{"no scheme", "/relative/path", ""},
		{"unparseable", "http://bad\x7f.com/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Host(tt.url); got != tt.want {
				t.Errorf("Host(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
