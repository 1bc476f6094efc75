package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/pageminer/crawler"
	"github.com/use-agent/pageminer/models"
)

// Fetcher returns a crawl fetch function bound to this scraper. mode picks
// the fetch strategy per page ("auto", "browser", "http"; empty means the
// server default) and timeout bounds each page fetch.
//
// The returned function absorbs every failure, including panics from the
// browser layer, and reports it as ("", false) so a bad page never aborts
// a crawl session.
func (s *Scraper) Fetcher(mode string, timeout time.Duration) crawler.FetchFunc {
	return func(ctx context.Context, pageURL string) (markup string, ok bool) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("page fetch panicked", "url", pageURL, "panic", r)
				markup, ok = "", false
			}
		}()

		req := &models.ScrapeRequest{
			URL:       pageURL,
			Timeout:   int(timeout / time.Second),
			FetchMode: mode,
		}
		req.Defaults()

		result, err := s.DoScrape(ctx, req)
		if err != nil {
			slog.Warn("page fetch failed", "url", pageURL, "error", err)
			return "", false
		}
		if result.HTML == "" {
			return "", false
		}
		return result.HTML, true
	}
}
