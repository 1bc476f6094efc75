package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/pageminer/engine"
	"github.com/use-agent/pageminer/models"
	"github.com/ysmood/gson"
)

// DoScrape fetches a page and returns its rendered HTML.
//
// With a dispatcher configured the request goes through the engine race
// first (HTTP, then rod, per the request's fetch mode). Only when the
// dispatcher fails outright does the direct rod path run, and never for
// requests pinned to mode "http".
func (s *Scraper) DoScrape(ctx context.Context, req *models.ScrapeRequest) (*ScrapeResult, error) {
	if s.dispatcher != nil {
		timeout := s.clampTimeout(req.Timeout)
		dispatchCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := s.dispatcher.Dispatch(dispatchCtx, &engine.FetchRequest{
			URL:     req.URL,
			Headers: req.Headers,
			Cookies: wireCookies(req.Cookies),
			Timeout: timeout,
			Stealth: req.Stealth,
			Mode:    req.FetchMode,
		})
		if err == nil {
			return &ScrapeResult{
				HTML:       result.HTML,
				Title:      result.Title,
				StatusCode: result.StatusCode,
				FinalURL:   result.FinalURL,
				EngineUsed: result.EngineName,
			}, nil
		}
		if req.FetchMode == engine.ModeHTTP {
			return nil, classifyError(err, "http fetch failed")
		}
		slog.Warn("dispatcher failed, falling back to direct rod scrape",
			"url", req.URL, "error", err)
	}

	return s.doScrapeRod(ctx, req)
}

// EngineFetch runs the direct rod path against an engine.FetchRequest. It is
// the callback wrapped by engine.NewRodEngine in main.go, which keeps the
// engine package free of a scraper import.
func (s *Scraper) EngineFetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	sreq := &models.ScrapeRequest{
		URL:     req.URL,
		Stealth: req.Stealth,
		Headers: req.Headers,
	}
	if req.Timeout > 0 {
		sreq.Timeout = int(req.Timeout / time.Second)
		if sreq.Timeout < 1 {
			sreq.Timeout = 1
		}
	}
	for _, c := range req.Cookies {
		sreq.Cookies = append(sreq.Cookies, models.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}

	result, err := s.doScrapeRod(ctx, sreq)
	if err != nil {
		return nil, err
	}
	return &engine.FetchResult{
		HTML:       result.HTML,
		Title:      result.Title,
		StatusCode: result.StatusCode,
		FinalURL:   result.FinalURL,
	}, nil
}

// clampTimeout converts the request's timeout (seconds) into a duration
// bounded by the configured default and maximum.
func (s *Scraper) clampTimeout(seconds int) time.Duration {
	timeout := time.Duration(seconds) * time.Second
	if timeout <= 0 {
		timeout = s.scraperCfg.DefaultTimeout
	}
	if timeout > s.scraperCfg.MaxTimeout {
		timeout = s.scraperCfg.MaxTimeout
	}
	return timeout
}

// wireCookies converts request cookies to net/http cookies for the engine layer.
func wireCookies(cookies []models.Cookie) []http.Cookie {
	out := make([]http.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		}
	}
	return out
}

// doScrapeRod drives a pooled browser tab through one fetch.
//
// The order is load-bearing: stealth JS, extra headers, cookies, and the
// hijack router only affect navigations that start AFTER they are installed,
// so all of them land before Navigate. The cleanup defer runs against the
// original page reference rather than the context-bound one, so the tab is
// parked on about:blank and returned to the pool even when the request
// context has already expired.
func (s *Scraper) doScrapeRod(ctx context.Context, req *models.ScrapeRequest) (*ScrapeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.clampTimeout(req.Timeout))
	defer cancel()

	// ── Acquire a tab from the adaptive pool ──────────────────────────
	handle, acquireErr := s.pool.Get(ctx)
	if acquireErr != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}
	page := s.page(handle.ID)
	if page == nil {
		s.pool.Put(handle, false)
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"pooled page no longer exists",
			nil,
		)
	}

	// ── Cleanup: park on about:blank, report health to the pool ──────
	fetchOK := false
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank",
				"error", navErr,
			)
		}
		s.pool.Put(handle, fetchOK)
	}()

	// ── Pre-navigation setup: stealth, headers, cookies, hijack ──────
	s.preparePage(page, req)
	if router := setupHijack(page, s.scraperCfg.BlockedResourceTypes, req.BlockAds); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── Navigate under the request context ───────────────────────────
	p := page.Context(ctx)
	if navErr := p.Navigate(req.URL); navErr != nil {
		return nil, classifyError(navErr, "navigation to target URL failed")
	}

	// WaitRequestIdle needs the Fetch domain, which collides with the
	// hijack router on Chromium 145+. WaitDOMStable stays off that domain.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	if req.RemoveOverlays {
		dismissOverlays(p)
	}

	// ── Extract rendered document ─────────────────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, classifyError(htmlErr, "failed to extract page HTML")
	}

	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	fetchOK = true
	return &ScrapeResult{
		HTML:       rawHTML,
		Title:      evalString(p, `() => document.title`),
		StatusCode: navigationStatus(p),
		FinalURL:   finalURL,
		EngineUsed: "browser",
	}, nil
}

// preparePage installs stealth JS, extra headers, and cookies on a tab.
// Failure of any of these is tolerated; the fetch proceeds without them.
func (s *Scraper) preparePage(page *rod.Page, req *models.ScrapeRequest) {
	if req.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if headers := headerSet(req); len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: protoHeaders(headers),
		}.Call(page)
	}

	for _, cookie := range req.Cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, parseErr := url.Parse(req.URL); parseErr == nil {
				domain = u.Host
			}
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   path,
		}.Call(page)
	}
}

// headerSet merges the request's custom headers with a synthetic Google
// search Referer. Sites that serve different markup to direct traffic
// usually treat search referrals as organic.
func headerSet(req *models.ScrapeRequest) map[string]string {
	headers := make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = v
	}
	if _, ok := headers["Referer"]; !ok {
		if u, err := url.Parse(req.URL); err == nil {
			headers["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	return headers
}

// navigationStatus reads the HTTP status of the last navigation from the
// performance timeline. CDP network events would also carry it, but enabling
// them conflicts with the hijack router on Chromium 145+.
func navigationStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const nav = performance.getEntriesByType("navigation");
			if (nav.length > 0) return nav[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// evalString evaluates a JS expression and returns its string result,
// swallowing any error.
func evalString(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// protoHeaders converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func protoHeaders(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// dismissOverlays strips elements that sit on top of the content: cookie
// walls, consent dialogs, newsletter modals. High-z fixed/sticky positioning
// is the first tell; a second pass catches the usual class and id patterns.
func dismissOverlays(p *rod.Page) {
	const js = `() => {
		for (const el of document.querySelectorAll('*')) {
			const cs = window.getComputedStyle(el);
			if (cs.position !== 'fixed' && cs.position !== 'sticky') continue;
			const z = parseInt(cs.zIndex, 10);
			if (z >= 900 || cs.zIndex === 'auto') el.remove();
		}
		for (const word of ['cookie', 'consent', 'overlay', 'popup', 'gdpr']) {
			for (const sel of ['[class*="' + word + '"]', '[id*="' + word + '"]']) {
				document.querySelectorAll(sel).forEach(el => {
					const cs = window.getComputedStyle(el);
					if (cs.position === 'fixed' || cs.position === 'sticky' || cs.position === 'absolute') {
						el.remove();
					}
				});
			}
		}
		// Modals often pin scrolling with overflow:hidden; release it.
		document.documentElement.style.overflow = '';
		document.body.style.overflow = '';
	}`
	_, _ = p.Eval(js)
}

// classifyError wraps raw fetch failures into typed ScrapeErrors so the API
// layer can map them onto HTTP status codes.
func classifyError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
