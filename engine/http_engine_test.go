package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articleBody = `<p>The northern river gradually carved a wide valley through the limestone
plateau, leaving terraces that record thousands of years of shifting flow. Early surveys
mapped the terraces by hand, and later expeditions confirmed the sequence with radiocarbon
dating of buried peat layers. The resulting chronology is one of the most complete in the
region and anchors most local climate reconstructions.</p>`

func staticPage(title string) string {
	return "<html><head><title>" + title + "</title></head><body>" + articleBody + "</body></html>"
}

func TestHTTPEngine_FetchStaticPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(staticPage("River Valley")))
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	result, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if result.Title != "River Valley" {
		t.Errorf("Title = %q, want River Valley", result.Title)
	}
	if result.EngineName != "http" {
		t.Errorf("EngineName = %q, want http", result.EngineName)
	}
	if !strings.Contains(result.HTML, "limestone") {
		t.Errorf("HTML missing page body")
	}
}

func TestHTTPEngine_RejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	if _, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestHTTPEngine_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	if _, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL}); err == nil {
		t.Fatal("expected error for JSON response")
	}
}

func TestHTTPEngine_RejectsJSShell(t *testing.T) {
	shell := `<html><head><title>App</title></head><body><div id="root"></div><script src="/bundle.js"></script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(shell))
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	_, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err == nil {
		t.Fatal("expected error for empty SPA shell")
	}
	if !strings.Contains(err.Error(), "JavaScript") {
		t.Errorf("error = %v, want mention of JavaScript rendering", err)
	}
}

func TestHTTPEngine_AppliesHeadersAndCookies(t *testing.T) {
	var gotHeader, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom")
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(staticPage("ok")))
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	req := &FetchRequest{
		URL:     srv.URL,
		Headers: map[string]string{"X-Custom": "hello"},
		Cookies: []http.Cookie{{Name: "session", Value: "abc123"}},
	}
	if _, err := e.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotHeader != "hello" {
		t.Errorf("X-Custom = %q, want hello", gotHeader)
	}
	if gotCookie != "abc123" {
		t.Errorf("session cookie = %q, want abc123", gotCookie)
	}
}

func TestHTTPEngine_RequestsIdentityEncoding(t *testing.T) {
	var gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(staticPage("Plain")))
	}))
	defer srv.Close()

	e := NewHTTPEngine(10 * time.Second)
	result, err := e.Fetch(context.Background(), &FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// The engine never negotiates compression; the body is read as sent.
	if gotEncoding != "identity" {
		t.Errorf("Accept-Encoding = %q, want identity", gotEncoding)
	}
	if !strings.Contains(result.HTML, "limestone") {
		t.Errorf("HTML missing uncompressed body")
	}
}

func TestLooksJSGated(t *testing.T) {
	longText := strings.Repeat("Readable sentence with actual words in it. ", 20)

	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "empty react root",
			body: `<html><body><div id="root"></div></body></html>`,
			want: true,
		},
		{
			name: "static article",
			body: `<html><body><article>` + longText + `</article></body></html>`,
			want: false,
		},
		{
			name: "noscript warning",
			body: `<html><body><noscript>Please enable JavaScript to view this site.</noscript>` + longText + `</body></html>`,
			want: true,
		},
		{
			name: "script heavy with thin text",
			body: `<html><body>` +
				strings.Repeat(`<script src="/chunk.js"></script>`, 12) +
				`<p>` + strings.Repeat("word ", 50) + `</p></body></html>`,
			want: true,
		},
	}
	for _, tt := range tests {
		if got := looksJSGated(tt.body); got != tt.want {
			t.Errorf("%s: looksJSGated = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExtractTitle(t *testing.T) {
	if got := extractTitle(`<html><head><title> Hello World </title></head></html>`); got != "Hello World" {
		t.Errorf("extractTitle = %q, want Hello World", got)
	}
	if got := extractTitle(`<html><head></head><body>no title</body></html>`); got != "" {
		t.Errorf("extractTitle = %q, want empty", got)
	}
}

func TestIsHTMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"image/png", false},
	}
	for _, tt := range tests {
		if got := isHTMLContentType(tt.ct); got != tt.want {
			t.Errorf("isHTMLContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
