package engine

import (
	"context"
	"net/http"
	"time"
)

// Engine fetches one page. Implementations range from a plain HTTP client
// to a stealth-hardened headless browser; the dispatcher escalates through
// them until one succeeds.
type Engine interface {
	// Name identifies the engine in results, logs, and domain memory
	// ("http", "rod", "rod-stealth").
	Name() string

	// Fetch retrieves the page for req, respecting ctx for cancellation
	// and deadlines.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// Fetch modes restrict which engines may serve a request. The zero value
// behaves like ModeAuto.
const (
	ModeAuto    = "auto"
	ModeBrowser = "browser"
	ModeHTTP    = "http"
)

// FetchRequest carries everything an engine needs for one page load.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Cookies []http.Cookie
	Timeout time.Duration
	Stealth bool

	// Mode is ModeAuto, ModeBrowser, or ModeHTTP. Empty means ModeAuto.
	Mode string
}

// FetchResult is what a successful fetch produced.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}
