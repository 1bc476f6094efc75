// Command benchmark measures PageMiner scrape and crawl latency against a
// running server and writes a JSON report next to a console summary.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"
)

// CLI flags
var (
	apiURL     = flag.String("api-url", "http://localhost:8080", "PageMiner API base URL")
	apiKey     = flag.String("api-key", "", "API key for authenticated requests")
	runs       = flag.Int("runs", 5, "Number of runs per URL for averaging")
	crawlURL   = flag.String("crawl-url", "https://example.com", "Seed URL for the crawl benchmark (empty to skip)")
	crawlPages = flag.Int("crawl-pages", 5, "Page limit for the crawl benchmark")
	crawlRuns  = flag.Int("crawl-runs", 2, "Number of crawl benchmark runs")
	output     = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Test URLs covering 5 site types.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Blog", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"News", "https://www.bbc.com/news"},
	{"Complex", "https://github.com/go-rod/rod"},
}

// --- Request / Response types (mirrors models package) ---

type scrapeRequest struct {
	URL          string `json:"url"`
	OutputFormat string `json:"output_format"`
	Timeout      int    `json:"timeout"`
}

type scrapeResponse struct {
	Success    bool         `json:"success"`
	StatusCode int          `json:"status_code"`
	Content    string       `json:"content"`
	Metadata   metadata     `json:"metadata"`
	Links      links        `json:"links"`
	Tokens     tokenInfo    `json:"tokens"`
	Timing     timingInfo   `json:"timing"`
	EngineUsed string       `json:"engine_used"`
	Error      *errorDetail `json:"error,omitempty"`
}

type metadata struct {
	Title string `json:"title"`
}

type links struct {
	Internal []link `json:"internal"`
	External []link `json:"external"`
}

type link struct {
	Href string `json:"href"`
}

type tokenInfo struct {
	OriginalEstimate int     `json:"original_estimate"`
	CleanedEstimate  int     `json:"cleaned_estimate"`
	SavingsPercent   float64 `json:"savings_percent"`
}

type timingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	CleaningMs   int64 `json:"cleaning_ms"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type crawlStartResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type crawlStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Stats  *struct {
		PagesScraped         int `json:"pages_scraped"`
		TotalLinksDiscovered int `json:"total_links_discovered"`
		PagesInQueue         int `json:"pages_in_queue"`
	} `json:"stats"`
	Error *errorDetail `json:"error"`
}

// --- Benchmark result types ---

type runResult struct {
	Run            int     `json:"run"`
	TotalMs        int64   `json:"total_ms"`
	NavigationMs   int64   `json:"navigation_ms"`
	CleaningMs     int64   `json:"cleaning_ms"`
	OriginalTokens int     `json:"original_tokens"`
	CleanedTokens  int     `json:"cleaned_tokens"`
	SavingsPercent float64 `json:"savings_percent"`
	ContentLength  int     `json:"content_length"`
	StatusCode     int     `json:"status_code"`
	EngineUsed     string  `json:"engine_used"`
	HasTitle       bool    `json:"has_title"`
	HasLinks       bool    `json:"has_links"`
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
}

type latencyPercentiles struct {
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
}

type urlAverages struct {
	TotalMs        float64 `json:"total_ms"`
	NavigationMs   float64 `json:"navigation_ms"`
	CleaningMs     float64 `json:"cleaning_ms"`
	SavingsPercent float64 `json:"savings_percent"`
	ContentLength  float64 `json:"content_length"`
}

type urlResult struct {
	URL         string              `json:"url"`
	Label       string              `json:"label"`
	Runs        []runResult         `json:"runs"`
	Averages    *urlAverages        `json:"averages,omitempty"`
	Percentiles *latencyPercentiles `json:"percentiles,omitempty"`
}

type crawlRunResult struct {
	Run             int    `json:"run"`
	WallMs          int64  `json:"wall_ms"`
	PagesScraped    int    `json:"pages_scraped"`
	LinksDiscovered int    `json:"links_discovered"`
	Status          string `json:"status"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}

type crawlBenchResult struct {
	URL         string              `json:"url"`
	MaxPages    int                 `json:"max_pages"`
	Runs        []crawlRunResult    `json:"runs"`
	Percentiles *latencyPercentiles `json:"percentiles,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string            `json:"timestamp"`
	APIURL     string            `json:"api_url"`
	RunsPerURL int               `json:"runs_per_url"`
	Results    []urlResult       `json:"results"`
	Crawl      *crawlBenchResult `json:"crawl,omitempty"`
}

// apiClient wraps the base URL, API key, and a shared HTTP client so each
// benchmark step is one call.
type apiClient struct {
	base string
	key  string
	http *http.Client
}

func newAPIClient(base, key string) *apiClient {
	return &apiClient{base: base, key: key, http: &http.Client{Timeout: 90 * time.Second}}
}

func (c *apiClient) do(method, path string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal error: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("request error: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode error: %v", err)
	}
	return nil
}

func main() {
	flag.Parse()

	fmt.Println("=== PageMiner Benchmark Suite ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	client := newAPIClient(*apiURL, *apiKey)
	if err := client.do("GET", "/health", nil, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure PageMiner is running (e.g. make run)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
		Results:    runScrapeSuite(client),
	}
	if *crawlURL != "" {
		report.Crawl = benchmarkCrawl(client, *crawlURL, *crawlPages, *crawlRuns)
		fmt.Println()
	}

	printTable(report.Results)
	printCrawlSummary(report.Crawl)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

// runScrapeSuite benchmarks every test URL in sequence.
func runScrapeSuite(client *apiClient) []urlResult {
	var results []urlResult
	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(client, t.URL, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %.1f%% saved  (%s)\n", rr.TotalMs, rr.SavingsPercent, rr.EngineUsed)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		ur.Percentiles = computePercentiles(scrapeLatencies(ur.Runs))
		results = append(results, ur)
		fmt.Println()
	}
	return results
}

func benchmarkURL(client *apiClient, url string, run int) runResult {
	req := scrapeRequest{URL: url, OutputFormat: "markdown", Timeout: 60}

	var sr scrapeResponse
	if err := client.do("POST", "/api/v1/scrape", req, &sr); err != nil {
		return runResult{Run: run, Error: err.Error()}
	}

	rr := runResult{
		Run:            run,
		Success:        sr.Success,
		StatusCode:     sr.StatusCode,
		TotalMs:        sr.Timing.TotalMs,
		NavigationMs:   sr.Timing.NavigationMs,
		CleaningMs:     sr.Timing.CleaningMs,
		OriginalTokens: sr.Tokens.OriginalEstimate,
		CleanedTokens:  sr.Tokens.CleanedEstimate,
		SavingsPercent: sr.Tokens.SavingsPercent,
		ContentLength:  len(sr.Content),
		EngineUsed:     sr.EngineUsed,
		HasTitle:       sr.Metadata.Title != "",
		HasLinks:       len(sr.Links.Internal)+len(sr.Links.External) > 0,
	}
	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}
	return rr
}

func benchmarkCrawl(client *apiClient, url string, maxPages, n int) *crawlBenchResult {
	fmt.Printf("Benchmarking crawl of %s (%d pages) ...\n", url, maxPages)
	cb := &crawlBenchResult{URL: url, MaxPages: maxPages}

	for i := 1; i <= n; i++ {
		fmt.Printf("  Crawl %d/%d ... ", i, n)
		cr := runCrawlOnce(client, url, maxPages, i)
		if cr.Success {
			fmt.Printf("OK  %dms  %d pages  %d links\n", cr.WallMs, cr.PagesScraped, cr.LinksDiscovered)
		} else {
			fmt.Printf("FAILED: %s\n", cr.Error)
		}
		cb.Runs = append(cb.Runs, cr)
	}

	cb.Percentiles = computePercentiles(crawlLatencies(cb.Runs))
	return cb
}

// runCrawlOnce starts a crawl job and measures wall-clock time until it
// leaves the "running" state. Pacing is disabled so latency reflects
// fetch + extraction work, not the configured delay.
func runCrawlOnce(client *apiClient, url string, maxPages, run int) crawlRunResult {
	cr := crawlRunResult{Run: run}
	payload := map[string]any{
		"url":           url,
		"max_pages":     maxPages,
		"delay_seconds": 0,
	}

	start := time.Now()
	var started crawlStartResponse
	if err := client.do("POST", "/api/v1/crawl", payload, &started); err != nil {
		cr.Error = err.Error()
		return cr
	}
	if started.ID == "" {
		cr.Error = "crawl job creation failed"
		return cr
	}

	status, err := pollCrawl(client, started.ID)
	cr.WallMs = time.Since(start).Milliseconds()
	if err != nil {
		cr.Error = err.Error()
		return cr
	}

	cr.Status = status.Status
	cr.Success = status.Status == "completed"
	if status.Stats != nil {
		cr.PagesScraped = status.Stats.PagesScraped
		cr.LinksDiscovered = status.Stats.TotalLinksDiscovered
	}
	if status.Error != nil {
		cr.Error = status.Error.Message
	}
	return cr
}

func pollCrawl(client *apiClient, id string) (*crawlStatusResponse, error) {
	deadline := time.Now().Add(10 * time.Minute)

	for time.Now().Before(deadline) {
		time.Sleep(500 * time.Millisecond)

		var status crawlStatusResponse
		if err := client.do("GET", "/api/v1/crawl/"+id, nil, &status); err != nil {
			return nil, fmt.Errorf("poll %v", err)
		}
		if status.Status != "running" {
			return &status, nil
		}
	}

	return nil, fmt.Errorf("crawl %s did not finish within 10 minutes", id)
}

func computeAverages(runs []runResult) *urlAverages {
	var ok []runResult
	for _, r := range runs {
		if r.Success {
			ok = append(ok, r)
		}
	}
	if len(ok) == 0 {
		return nil
	}

	n := float64(len(ok))
	avg := &urlAverages{}
	for _, r := range ok {
		avg.TotalMs += float64(r.TotalMs) / n
		avg.NavigationMs += float64(r.NavigationMs) / n
		avg.CleaningMs += float64(r.CleaningMs) / n
		avg.SavingsPercent += r.SavingsPercent / n
		avg.ContentLength += float64(r.ContentLength) / n
	}
	return avg
}

func scrapeLatencies(runs []runResult) []float64 {
	var out []float64
	for _, r := range runs {
		if r.Success {
			out = append(out, float64(r.TotalMs))
		}
	}
	return out
}

func crawlLatencies(runs []crawlRunResult) []float64 {
	var out []float64
	for _, r := range runs {
		if r.Success {
			out = append(out, float64(r.WallMs))
		}
	}
	return out
}

// computePercentiles uses nearest-rank on the sorted latencies.
func computePercentiles(latencies []float64) *latencyPercentiles {
	if len(latencies) == 0 {
		return nil
	}
	sorted := append([]float64(nil), latencies...)
	sort.Float64s(sorted)

	return &latencyPercentiles{
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 95))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tp95\tTokens Saved\tContent Len\tStatus\n")
	fmt.Fprintf(w, "───\t───────────\t───\t────────────\t───────────\t──────\n")

	for _, r := range results {
		name := ellipsize(r.URL, 40)
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\n", name)
			continue
		}

		p95 := "-"
		if r.Percentiles != nil {
			p95 = fmt.Sprintf("%dms", int64(r.Percentiles.P95))
		}

		fmt.Fprintf(w, "%s\t%dms\t%s\t%.1f%%\t%s\t%d\n",
			name,
			int64(r.Averages.TotalMs),
			p95,
			r.Averages.SavingsPercent,
			withCommas(int(r.Averages.ContentLength)),
			modalStatus(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 95))
}

func printCrawlSummary(cb *crawlBenchResult) {
	if cb == nil {
		return
	}
	fmt.Printf("\nCrawl benchmark (%s, %d pages):\n", cb.URL, cb.MaxPages)
	if cb.Percentiles == nil {
		fmt.Println("  all runs failed")
		return
	}
	fmt.Printf("  p50 %dms  p95 %dms  p99 %dms\n",
		int64(cb.Percentiles.P50), int64(cb.Percentiles.P95), int64(cb.Percentiles.P99))
}

// modalStatus picks the most frequent status code among successful runs.
func modalStatus(runs []runResult) int {
	counts := map[int]int{}
	for _, r := range runs {
		if r.Success {
			counts[r.StatusCode]++
		}
	}
	best, bestCount := 0, 0
	for code, count := range counts {
		if count > bestCount {
			best, bestCount = code, count
		}
	}
	return best
}

func ellipsize(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// withCommas renders n with thousands separators.
func withCommas(n int) string {
	s := strconv.Itoa(n)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
