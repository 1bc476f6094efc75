package scraper

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/engine"
	"github.com/use-agent/pageminer/models"
)

// Scraper manages the global browser lifecycle and the adaptive page pool.
// It is safe for concurrent use.
type Scraper struct {
	browser    *rod.Browser
	pool       *engine.AdaptivePool
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	startTime  time.Time
	dispatcher *engine.Dispatcher

	// pages maps pool handle IDs to live rod pages. The pool tracks health
	// and sizing; this registry owns the actual browser tabs.
	pagesMu    sync.Mutex
	pages      map[int64]*rod.Page
	nextPageID atomic.Int64

	effectiveMax int
}

// NewScraper launches a headless browser and initialises the adaptive page pool.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, poolCfg config.AdaptivePoolConfig) (*Scraper, error) {
	l := launcher.New().
		Headless(browserCfg.Headless).
		NoSandbox(browserCfg.NoSandbox)

	if browserCfg.BrowserBin != "" {
		l = l.Bin(browserCfg.BrowserBin)
	}
	if browserCfg.DefaultProxy != "" {
		l = l.Proxy(browserCfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	// The browser tab ceiling caps the pool regardless of pool config.
	hardMax := poolCfg.HardMax
	if browserCfg.MaxPages > 0 && hardMax > browserCfg.MaxPages {
		hardMax = browserCfg.MaxPages
	}
	minPages := poolCfg.MinPages
	if minPages > hardMax {
		minPages = hardMax
	}

	s := &Scraper{
		browser:      browser,
		browserCfg:   browserCfg,
		scraperCfg:   scraperCfg,
		startTime:    time.Now(),
		pages:        make(map[int64]*rod.Page),
		effectiveMax: hardMax,
	}

	pool, err := engine.NewAdaptivePool(engine.AdaptivePoolConfig{
		MinPages:     minPages,
		HardMax:      hardMax,
		MemThreshold: poolCfg.MemThreshold,
		ScaleStep:    poolCfg.ScaleStep,
	}, s.createPage, s.destroyPage)
	if err != nil {
		browser.MustClose()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page pool",
			err,
		)
	}
	s.pool = pool
	slog.Info("page pool created", "minPages", minPages, "hardMax", hardMax)

	return s, nil
}

// SetDispatcher sets the multi-engine dispatcher. When set, DoScrape
// delegates fetching to the dispatcher instead of going straight to rod.
func (s *Scraper) SetDispatcher(d *engine.Dispatcher) {
	s.dispatcher = d
}

// createPage is the pool factory: it opens a fresh browser tab and registers it.
func (s *Scraper) createPage() (int64, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return 0, err
	}
	id := s.nextPageID.Add(1)
	s.pagesMu.Lock()
	s.pages[id] = page
	s.pagesMu.Unlock()
	return id, nil
}

// destroyPage is the pool destroyer: it closes and deregisters a tab.
func (s *Scraper) destroyPage(id int64) {
	s.pagesMu.Lock()
	page := s.pages[id]
	delete(s.pages, id)
	s.pagesMu.Unlock()
	if page != nil {
		if err := page.Close(); err != nil {
			slog.Debug("failed to close retired page", "id", id, "error", err)
		}
	}
}

// page resolves a pool handle ID to its live rod page, or nil if the tab
// was already retired.
func (s *Scraper) page(id int64) *rod.Page {
	s.pagesMu.Lock()
	defer s.pagesMu.Unlock()
	return s.pages[id]
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.effectiveMax,
		ActivePages: s.pool.ActiveCount(),
		PooledPages: s.pool.Size(),
	}
}

// Uptime reports how long the scraper has been running.
func (s *Scraper) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining page pool")
	s.pool.Stop()
	slog.Info("scraper shutting down: closing browser")
	s.browser.MustClose()
	slog.Info("scraper shutdown complete")
}
