package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/pageminer/models"
)

// Session defaults.
const (
	DefaultMaxPages = 10
	DefaultDelay    = 2 * time.Second
)

// Config bounds one crawl session.
type Config struct {
	// MaxPages caps how many pages are fetched. Minimum 1.
	MaxPages int

	// Delay is the pause inserted after each successfully fetched page.
	// Zero disables pacing. Failed fetches are never paced.
	Delay time.Duration

	// SameDomainOnly restricts the crawl to URLs whose host equals the
	// seed's host. The anchor is the seed, for the whole session.
	SameDomainOnly bool
}

// DefaultConfig returns the stock session bounds: ten pages, two-second
// pacing, same-domain scope.
func DefaultConfig() Config {
	return Config{
		MaxPages:       DefaultMaxPages,
		Delay:          DefaultDelay,
		SameDomainOnly: true,
	}
}

// Validate rejects configurations that would make a session unrunnable.
func (c Config) Validate() error {
	if c.MaxPages < 1 {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			"max_pages must be at least 1", nil)
	}
	if c.Delay < 0 {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			"delay must not be negative", nil)
	}
	return nil
}

// FetchFunc retrieves the rendered markup for one URL. Implementations
// must not panic and must not fail past this boundary: any timeout,
// network, or navigation problem is reported as ("", false).
type FetchFunc func(ctx context.Context, url string) (markup string, ok bool)

// ProgressSink receives progress events. Events are delivered
// synchronously from the crawl loop in emission order, so a slow sink
// throttles the crawl.
type ProgressSink interface {
	OnProgress(models.ProgressEvent)
}

// ProgressSinkFunc adapts a plain function to the ProgressSink interface.
type ProgressSinkFunc func(models.ProgressEvent)

// OnProgress calls f(ev).
func (f ProgressSinkFunc) OnProgress(ev models.ProgressEvent) { f(ev) }

// Result is what a finished session hands back. Pages holds the raw markup
// of every successfully visited page in visitation order.
type Result struct {
	Pages      *ContentStore
	Stats      models.CrawlStats
	Discovered []string
}

// Crawler walks a site breadth-first from a seed URL: one page fetched at
// a time in FIFO discovery order, its links extracted, filtered against
// the seed-anchored scope, and queued, until the frontier drains or the
// page budget is spent. Individual page failures are reported and skipped;
// they never abort the session.
//
// A Crawler is single-use: construct one per session.
type Crawler struct {
	cfg      Config
	fetch    FetchFunc
	sink     ProgressSink
	frontier *Frontier
	baseHost string
	ran      bool
}

// New creates a crawl session. fetch retrieves pages; sink, when non-nil,
// receives progress events. Configuration problems are rejected here, not
// mid-crawl.
func New(cfg Config, fetch FetchFunc, sink ProgressSink) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetch == nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"fetch function is required", nil)
	}
	return &Crawler{
		cfg:      cfg,
		fetch:    fetch,
		sink:     sink,
		frontier: NewFrontier(),
	}, nil
}

// Run executes the crawl from seedURL and returns the collected pages and
// final stats. The only error paths are invalid seeds and reuse of the
// session; fetch and parse failures are absorbed by the loop, so a session
// that starts always completes, even when zero pages succeed.
//
// Cancelling ctx stops the loop at the next iteration boundary; the final
// summary event is still emitted and the partial result returned.
func (c *Crawler) Run(ctx context.Context, seedURL string) (*Result, error) {
	if c.ran {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"crawl session already used", nil)
	}
	c.ran = true

	seed := strings.TrimSpace(seedURL)
	u, err := url.Parse(seed)
	if err != nil || u.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput,
			"seed URL must be absolute", err)
	}
	c.baseHost = u.Hostname()

	slog.Info("starting crawl",
		"seed", seed,
		"max_pages", c.cfg.MaxPages,
		"delay", c.cfg.Delay,
		"same_domain_only", c.cfg.SameDomainOnly,
	)

	c.frontier.Seed(seed)
	c.emit("Starting crawl...", seed, 0)

	for !c.frontier.Done(c.cfg.MaxPages) {
		// Cancellation exits straight to the summary, with no further
		// fetch-related events.
		if ctx.Err() != nil {
			break
		}

		current, ok := c.frontier.PopNext()
		if !ok {
			break
		}

		// A queued URL can only be visited already if it was re-seeded;
		// skip without fetching.
		if c.frontier.Visited(current) {
			continue
		}

		c.emit("Scraping page...", current, 0)

		markup, ok := c.fetch(ctx, current)
		if !ok || markup == "" {
			slog.Warn("failed to scrape page", "url", current)
			c.emit("Failed to scrape", current, 0)
			continue
		}

		c.frontier.MarkVisited(current, markup)

		pageLinks := c.eligibleLinks(markup, current)
		newLinks := 0
		for _, link := range pageLinks {
			if c.frontier.Offer(link) {
				newLinks++
			}
		}

		c.emit(fmt.Sprintf("Found %d new links", newLinks), current, len(pageLinks))
		slog.Debug("page crawled",
			"url", current,
			"links_on_page", len(pageLinks),
			"new_links", newLinks,
			"visited", c.frontier.VisitedCount(),
			"queue", c.frontier.QueueLen(),
		)

		if c.cfg.Delay > 0 {
			select {
			case <-time.After(c.cfg.Delay):
			case <-ctx.Done():
			}
		}
	}

	stats := c.snapshotStats()
	c.emit(fmt.Sprintf("Crawling completed! Scraped %d pages, found %d total links",
		stats.PagesScraped, stats.TotalLinksDiscovered), "", 0)
	slog.Info("crawl completed",
		"pages_scraped", stats.PagesScraped,
		"links_discovered", stats.TotalLinksDiscovered,
		"queue_remaining", stats.PagesInQueue,
	)

	return &Result{
		Pages:      c.frontier.Content(),
		Stats:      stats,
		Discovered: c.frontier.DiscoveredURLs(),
	}, nil
}

// Stats returns a snapshot of the session's counters. Call it from the
// loop's goroutine (a progress sink) or after Run has returned; the
// frontier is not synchronized.
func (c *Crawler) Stats() models.CrawlStats {
	return c.snapshotStats()
}

// eligibleLinks extracts the page's links and keeps those that pass the
// session filter. The seed's host anchors the scope for every page, so
// moving across sub-domains never widens the crawl.
func (c *Crawler) eligibleLinks(markup, pageURL string) []string {
	var eligible []string
	for _, link := range ExtractLinks(markup, pageURL) {
		if Eligible(link, c.baseHost, c.cfg.SameDomainOnly) {
			eligible = append(eligible, link)
		}
	}
	return eligible
}

func (c *Crawler) snapshotStats() models.CrawlStats {
	return models.CrawlStats{
		PagesScraped:         c.frontier.VisitedCount(),
		TotalLinksDiscovered: c.frontier.DiscoveredCount(),
		PagesInQueue:         c.frontier.QueueLen(),
		MaxPages:             c.cfg.MaxPages,
		CompletionPercentage: completion(c.frontier.VisitedCount(), c.cfg.MaxPages),
		VisitedURLs:          c.frontier.Content().URLs(),
		RemainingQueue:       c.frontier.RemainingQueue(),
	}
}

func (c *Crawler) emit(message, currentURL string, linksOnPage int) {
	if c.sink == nil {
		return
	}
	c.sink.OnProgress(models.ProgressEvent{
		Message:            message,
		CurrentURL:         currentURL,
		VisitedCount:       c.frontier.VisitedCount(),
		QueueSize:          c.frontier.QueueLen(),
		TotalLinksFound:    c.frontier.DiscoveredCount(),
		LinksOnCurrentPage: linksOnPage,
		MaxPages:           c.cfg.MaxPages,
		ProgressPercentage: completion(c.frontier.VisitedCount(), c.cfg.MaxPages),
	})
}

// completion is the crawl progress as a percentage of the page budget,
// capped at 100.
func completion(visited, maxPages int) float64 {
	pct := float64(visited) / float64(maxPages) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
