package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/pageminer/models"
)

// newCrawlSite serves the given path→markup pages from one test server.
// Unknown paths 404 (the "/" pattern would otherwise swallow them).
func newCrawlSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		markup, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, markup)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testFetch fetches over plain HTTP but refuses to leave the test server,
// so crawls that discover external URLs never touch the network.
func testFetch(srv *httptest.Server) FetchFunc {
	return func(ctx context.Context, pageURL string) (string, bool) {
		if !strings.HasPrefix(pageURL, srv.URL) {
			return "", false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", false
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return "", false
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", false
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// eventRecorder captures progress events in emission order.
type eventRecorder struct {
	events []models.ProgressEvent
}

func (r *eventRecorder) OnProgress(ev models.ProgressEvent) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) last() models.ProgressEvent {
	return r.events[len(r.events)-1]
}

func TestCrawler_BFSOrder(t *testing.T) {
	srv := newCrawlSite(t, map[string]string{
		"/":  `<html><body><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/b": `<html><body><a href="/d">d</a></body></html>`,
		"/c": `<html><body>leaf</body></html>`,
		"/d": `<html><body>leaf</body></html>`,
	})

	c, err := New(Config{MaxPages: 10, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{srv.URL + "/", srv.URL + "/b", srv.URL + "/c", srv.URL + "/d"}
	got := result.Stats.VisitedURLs
	if len(got) != len(want) {
		t.Fatalf("visited %d pages, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("visit order[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCrawler_RespectsMaxPages(t *testing.T) {
	// A chain long enough to exceed any small budget.
	pages := map[string]string{
		"/":   `<html><body><a href="/p1">next</a></body></html>`,
		"/p1": `<html><body><a href="/p2">next</a></body></html>`,
		"/p2": `<html><body><a href="/p3">next</a></body></html>`,
		"/p3": `<html><body><a href="/p4">next</a></body></html>`,
		"/p4": `<html><body><a href="/p5">next</a></body></html>`,
		"/p5": `<html><body>end</body></html>`,
	}
	srv := newCrawlSite(t, pages)

	c, err := New(Config{MaxPages: 3, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	if got := result.Pages.Len(); got > 3 {
		t.Errorf("scraped %d pages, budget was 3", got)
	}
	if got := result.Stats.PagesScraped; got != 3 {
		t.Errorf("PagesScraped = %d, want 3", got)
	}
	if got := result.Stats.CompletionPercentage; got != 100 {
		t.Errorf("CompletionPercentage = %v, want 100", got)
	}
}

func TestCrawler_NoDuplicateVisits(t *testing.T) {
	// Every page links back to every other page.
	pages := map[string]string{
		"/":  `<html><body><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/b": `<html><body><a href="/">home</a><a href="/c">c</a></body></html>`,
		"/c": `<html><body><a href="/">home</a><a href="/b">b</a></body></html>`,
	}
	srv := newCrawlSite(t, pages)

	c, err := New(Config{MaxPages: 50, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for _, u := range result.Stats.VisitedURLs {
		seen[u]++
	}
	for u, n := range seen {
		if n > 1 {
			t.Errorf("URL %q visited %d times", u, n)
		}
	}
	if got := result.Stats.PagesScraped; got != 3 {
		t.Errorf("PagesScraped = %d, want 3", got)
	}
}

func TestCrawler_FailedSeedStillCompletes(t *testing.T) {
	failFetch := func(ctx context.Context, url string) (string, bool) {
		return "", false
	}

	rec := &eventRecorder{}
	c, err := New(Config{MaxPages: 5, SameDomainOnly: true}, failFetch, rec)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), "https://unreachable.test/")
	if err != nil {
		t.Fatalf("a failing seed must not error the session: %v", err)
	}

	if got := result.Pages.Len(); got != 0 {
		t.Errorf("expected no content, got %d pages", got)
	}
	if got := result.Stats.PagesScraped; got != 0 {
		t.Errorf("PagesScraped = %d, want 0", got)
	}

	final := rec.last()
	if !strings.HasPrefix(final.Message, "Crawling completed!") {
		t.Errorf("final event = %q, want completion summary", final.Message)
	}

	var sawFailure bool
	for _, ev := range rec.events {
		if ev.Message == "Failed to scrape" {
			sawFailure = true
		}
	}
	if !sawFailure {
		t.Error("expected a failure event for the seed")
	}
}

func TestCrawler_FailedPageIsSkipped(t *testing.T) {
	// "/gone" is not served, so its fetch fails with a 404.
	pages := map[string]string{
		"/":      `<html><body><a href="/gone">gone</a><a href="/ok">ok</a></body></html>`,
		"/ok":    `<html><body><a href="/after">after</a></body></html>`,
		"/after": `<html><body>end</body></html>`,
	}
	srv := newCrawlSite(t, pages)

	c, err := New(Config{MaxPages: 10, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	for _, u := range result.Stats.VisitedURLs {
		if u == srv.URL+"/gone" {
			t.Error("failed page must not be marked visited")
		}
	}
	if got := result.Stats.PagesScraped; got != 3 {
		t.Errorf("PagesScraped = %d, want 3 (root, ok, after)", got)
	}
	// The failed URL stays discovered even though it was never visited.
	if got := result.Stats.TotalLinksDiscovered; got != 4 {
		t.Errorf("TotalLinksDiscovered = %d, want 4 (seed + 3 links)", got)
	}
}

func TestCrawler_EmptyMarkupCountsAsFailure(t *testing.T) {
	emptyFetch := func(ctx context.Context, url string) (string, bool) {
		return "", true
	}

	c, err := New(Config{MaxPages: 5, SameDomainOnly: true}, emptyFetch, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), "https://blank.test/")
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Stats.PagesScraped; got != 0 {
		t.Errorf("PagesScraped = %d, want 0 for empty markup", got)
	}
}

func TestCrawler_SameDomainScopeAnchoredToSeed(t *testing.T) {
	pages := map[string]string{
		"/":       `<html><body><a href="/inside">inside</a><a href="https://elsewhere.org/out">outside</a></body></html>`,
		"/inside": `<html><body>leaf</body></html>`,
	}
	srv := newCrawlSite(t, pages)

	c, err := New(Config{MaxPages: 10, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	for _, u := range result.Discovered {
		if strings.Contains(u, "elsewhere.org") {
			t.Errorf("cross-domain URL %q should have been filtered", u)
		}
	}
	if got := result.Stats.PagesScraped; got != 2 {
		t.Errorf("PagesScraped = %d, want 2", got)
	}
}

func TestCrawler_CrossDomainFollowedWhenUnscoped(t *testing.T) {
	pages := map[string]string{
		"/": `<html><body><a href="https://elsewhere.org/out">outside</a></body></html>`,
	}
	srv := newCrawlSite(t, pages)

	c, err := New(Config{MaxPages: 10, SameDomainOnly: false}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	// The external URL is discovered and attempted; the sandboxed fetch
	// fails it, which the loop tolerates.
	var discoveredOutside bool
	for _, u := range result.Discovered {
		if u == "https://elsewhere.org/out" {
			discoveredOutside = true
		}
	}
	if !discoveredOutside {
		t.Error("external URL should be discovered when scoping is off")
	}
	if got := result.Stats.PagesScraped; got != 1 {
		t.Errorf("PagesScraped = %d, want 1", got)
	}
}

func TestCrawler_ProgressEventSequence(t *testing.T) {
	pages := map[string]string{
		"/":     `<html><body><a href="/only">only</a></body></html>`,
		"/only": `<html><body>leaf</body></html>`,
	}
	srv := newCrawlSite(t, pages)

	rec := &eventRecorder{}
	c, err := New(Config{MaxPages: 2, SameDomainOnly: true}, testFetch(srv), rec)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(context.Background(), srv.URL+"/"); err != nil {
		t.Fatal(err)
	}

	wantMessages := []string{
		"Starting crawl...",
		"Scraping page...",
		"Found 1 new links",
		"Scraping page...",
		"Found 0 new links",
		"Crawling completed! Scraped 2 pages, found 2 total links",
	}
	if len(rec.events) != len(wantMessages) {
		t.Fatalf("got %d events, want %d: %+v", len(rec.events), len(wantMessages), rec.events)
	}
	for i, want := range wantMessages {
		if rec.events[i].Message != want {
			t.Errorf("event[%d].Message = %q, want %q", i, rec.events[i].Message, want)
		}
	}

	start := rec.events[0]
	if start.CurrentURL != srv.URL+"/" || start.VisitedCount != 0 || start.QueueSize != 1 {
		t.Errorf("unexpected start event: %+v", start)
	}

	afterFirst := rec.events[2]
	if afterFirst.VisitedCount != 1 || afterFirst.LinksOnCurrentPage != 1 {
		t.Errorf("unexpected first-page event: %+v", afterFirst)
	}
	if afterFirst.ProgressPercentage != 50 {
		t.Errorf("ProgressPercentage = %v, want 50", afterFirst.ProgressPercentage)
	}

	final := rec.last()
	if final.CurrentURL != "" {
		t.Errorf("final event should carry no current URL, got %q", final.CurrentURL)
	}
	if final.ProgressPercentage != 100 {
		t.Errorf("final ProgressPercentage = %v, want 100", final.ProgressPercentage)
	}
}

func TestCrawler_ContextCancellation(t *testing.T) {
	pages := map[string]string{
		"/":  `<html><body><a href="/b">b</a><a href="/c">c</a></body></html>`,
		"/b": `<html><body>leaf</body></html>`,
		"/c": `<html><body>leaf</body></html>`,
	}
	srv := newCrawlSite(t, pages)

	ctx, cancel := context.WithCancel(context.Background())
	rec := &eventRecorder{}
	sink := ProgressSinkFunc(func(ev models.ProgressEvent) {
		rec.OnProgress(ev)
		// Cancel as soon as the first page has been processed.
		if strings.HasPrefix(ev.Message, "Found") {
			cancel()
		}
	})

	c, err := New(Config{MaxPages: 10, SameDomainOnly: true}, testFetch(srv), sink)
	if err != nil {
		t.Fatal(err)
	}
	result, err := c.Run(ctx, srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}

	if got := result.Stats.PagesScraped; got != 1 {
		t.Errorf("PagesScraped = %d, want 1 after cancellation", got)
	}
	if !strings.HasPrefix(rec.last().Message, "Crawling completed!") {
		t.Errorf("cancelled crawl must still emit the summary, got %q", rec.last().Message)
	}
}

func TestCrawler_SessionIsSingleUse(t *testing.T) {
	srv := newCrawlSite(t, map[string]string{
		"/": `<html><body>once</body></html>`,
	})

	c, err := New(Config{MaxPages: 1, SameDomainOnly: true}, testFetch(srv), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Run(context.Background(), srv.URL+"/"); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Run(context.Background(), srv.URL+"/"); err == nil {
		t.Fatal("second Run on the same session should fail")
	}
}

func TestCrawler_RejectsBadInputs(t *testing.T) {
	okFetch := func(ctx context.Context, url string) (string, bool) { return "", false }

	t.Run("zero max pages", func(t *testing.T) {
		_, err := New(Config{MaxPages: 0}, okFetch, nil)
		assertInvalidInput(t, err)
	})

	t.Run("negative delay", func(t *testing.T) {
		_, err := New(Config{MaxPages: 1, Delay: -1}, okFetch, nil)
		assertInvalidInput(t, err)
	})

	t.Run("nil fetch", func(t *testing.T) {
		_, err := New(Config{MaxPages: 1}, nil, nil)
		assertInvalidInput(t, err)
	})

	t.Run("relative seed", func(t *testing.T) {
		c, err := New(Config{MaxPages: 1}, okFetch, nil)
		if err != nil {
			t.Fatal(err)
		}
		_, err = c.Run(context.Background(), "/no-host")
		assertInvalidInput(t, err)
	})
}

func assertInvalidInput(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var se *models.ScrapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected *models.ScrapeError, got %T", err)
	}
	if se.Code != models.ErrCodeInvalidInput {
		t.Errorf("error code = %q, want %q", se.Code, models.ErrCodeInvalidInput)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxPages != 10 {
		t.Errorf("MaxPages = %d, want 10", cfg.MaxPages)
	}
	if cfg.Delay.Seconds() != 2 {
		t.Errorf("Delay = %v, want 2s", cfg.Delay)
	}
	if !cfg.SameDomainOnly {
		t.Error("SameDomainOnly should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}
