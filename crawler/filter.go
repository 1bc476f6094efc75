package crawler

import (
	"net/url"
	"strings"
)

// excludedExtensions are URL suffixes that never lead to crawlable HTML:
// documents, archives, executables, media files, and structured-data
// endpoints. Matched case-insensitively against the end of the URL.
var excludedExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".tar", ".gz", ".exe", ".dmg", ".pkg",
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg", ".ico",
	".mp3", ".mp4", ".avi", ".mov", ".wmv", ".flv", ".webm",
	".css", ".js", ".xml", ".json",
}

// excludedKeywords mark auth, account, commerce, and machine endpoints.
// A URL containing any of them anywhere (case-insensitive) is skipped.
var excludedKeywords = []string{
	"logout", "login", "signin", "signup", "register",
	"admin", "dashboard", "profile", "settings",
	"cart", "checkout", "payment", "billing",
	"download", "upload", "api", "feed",
}

// Host returns the host component of rawURL without the port, or "" when
// the URL cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Eligible reports whether a discovered URL is worth fetching. It is a pure
// predicate over its inputs: no I/O, no session state.
//
// A URL is rejected when it is empty, is a bare fragment, uses the mailto
// or tel scheme, ends with a denylisted file extension, or contains a
// denylisted keyword. With sameDomainOnly set, the URL's host must equal
// baseHost exactly (scheme and port are not compared). baseHost is derived
// from the seed once per session and never re-anchored.
func Eligible(rawURL, baseHost string, sameDomainOnly bool) bool {
	if rawURL == "" ||
		strings.HasPrefix(rawURL, "#") ||
		strings.HasPrefix(rawURL, "mailto:") ||
		strings.HasPrefix(rawURL, "tel:") {
		return false
	}

	lower := strings.ToLower(rawURL)
	for _, ext := range excludedExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	for _, kw := range excludedKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	if sameDomainOnly {
		return Host(rawURL) == baseHost
	}
	return true
}
