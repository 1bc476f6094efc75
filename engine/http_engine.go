package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
)

const (
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	// maxBodyBytes caps how much of a response body is read, 10 MB.
	maxBodyBytes = 10 << 20
)

// HTTPEngine fetches pages over plain net/http with a Chrome TLS
// fingerprint. It is the fastest engine and handles any page that arrives as
// real HTML. Responses that look like empty JS shells come back as errors so
// the dispatcher can escalate to a browser engine.
type HTTPEngine struct {
	client *http.Client
}

// chromeH1Spec is the Chrome ClientHello with ALPN pinned to http/1.1.
// utls will happily negotiate h2, but Go's http.Transport cannot speak
// HTTP/2 over a pre-established utls conn, so h2 must never be offered.
var chromeH1Spec = chromeHelloSpec()

func chromeHelloSpec() tls.ClientHelloSpec {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Zero spec; ApplyPreset will surface the problem at dial time.
		return tls.ClientHelloSpec{}
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec
}

// dialChromeTLS dials addr and completes a TLS handshake presenting the
// Chrome ClientHello. The raw conn is closed on any failure.
func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// NewHTTPEngine builds an HTTPEngine. timeout bounds each fetch; zero means
// no limit beyond the request context.
func NewHTTPEngine(timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialTLSContext:    dialChromeTLS,
				ForceAttemptHTTP2: false,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_engine: build request: %w", err)
	}
	setBrowserHeaders(httpReq.Header, req.Headers)
	for i := range req.Cookies {
		httpReq.AddCookie(&req.Cookies[i])
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http_engine: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("http_engine: read body: %w", err)
	}
	page := string(body)

	// Anything that is not successful HTML is this engine's loss; hand the
	// URL back so the dispatcher can try a browser.
	ct := resp.Header.Get("Content-Type")
	switch {
	case resp.StatusCode >= 400, !isHTMLContentType(ct):
		return nil, fmt.Errorf("http_engine: non-html or error status %d (content-type: %s)", resp.StatusCode, ct)
	case looksJSGated(page):
		return nil, fmt.Errorf("http_engine: page appears to require JavaScript rendering: %s", req.URL)
	}

	return &FetchResult{
		HTML:       page,
		Title:      extractTitle(page),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

// setBrowserHeaders installs Chrome-like defaults, then the caller's custom
// headers on top. Accept-Encoding stays identity so the body needs no
// decompression pass.
func setBrowserHeaders(h http.Header, custom map[string]string) {
	h.Set("User-Agent", chromeUA)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Accept-Encoding", "identity")
	for k, v := range custom {
		h.Set(k, v)
	}
}

// isHTMLContentType reports whether a Content-Type header names an HTML document.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	for _, want := range []string{"text/html", "application/xhtml+xml"} {
		if strings.Contains(ct, want) {
			return true
		}
	}
	return false
}

// emptyRootMarkers are SPA mount points that indicate a client-rendered page
// when they arrive empty over plain HTTP.
var emptyRootMarkers = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

// reNoscriptJS matches <noscript> warnings that demand JavaScript.
var reNoscriptJS = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// looksJSGated uses heuristics to decide if HTTP-fetched HTML likely needs
// JS rendering (SPA shell, heavy JS dependency, noscript warnings).
func looksJSGated(body string) bool {
	text := visibleBodyText(body)

	// Very little visible text in <body> → likely an SPA shell.
	if len(text) < 200 {
		return true
	}

	lower := strings.ToLower(body)
	for _, marker := range emptyRootMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	if reNoscriptJS.MatchString(lower) {
		return true
	}

	// Many <script> tags + little body text → JS-heavy page.
	if strings.Count(lower, "<script") > 10 && len(text) < 500 {
		return true
	}

	return false
}

// extractTitle finds the first <title> element with the HTML tokenizer.
func extractTitle(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				if z.Next() == html.TextToken {
					return strings.TrimSpace(string(z.Text()))
				}
				return ""
			}
		}
	}
}

// visibleBodyText extracts the visible text from within <body>, stripping
// all tags and <script>/<style>/<noscript> content. Used for heuristic
// analysis only.
func visibleBodyText(body string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
