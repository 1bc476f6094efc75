package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the PageMiner API request model.
type scrapeRequest struct {
	URL          string `json:"url"`
	OutputFormat string `json:"output_format,omitempty"`
	ExtractMode  string `json:"extract_mode,omitempty"`
	FetchMode    string `json:"fetch_mode,omitempty"`
}

// scrapeResponse mirrors the PageMiner API response model.
type scrapeResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Metadata *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SiteName    string `json:"site_name"`
		Author      string `json:"author"`
		Language    string `json:"language"`
		SourceURL   string `json:"source_url"`
	} `json:"metadata"`
	Tokens *struct {
		OriginalEstimate int     `json:"original_estimate"`
		CleanedEstimate  int     `json:"cleaned_estimate"`
		SavingsPercent   float64 `json:"savings_percent"`
	} `json:"tokens"`
	EngineUsed string `json:"engine_used"`
	Error      *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// crawlResponse mirrors the PageMiner crawl API response.
type crawlResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// crawlStatusResponse mirrors the PageMiner crawl status API response.
type crawlStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Stats  *struct {
		PagesScraped         int      `json:"pages_scraped"`
		TotalLinksDiscovered int      `json:"total_links_discovered"`
		PagesInQueue         int      `json:"pages_in_queue"`
		VisitedURLs          []string `json:"visited_urls"`
	} `json:"stats"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// crawlContentResponse mirrors the PageMiner crawl content API response.
type crawlContentResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Refined bool   `json:"refined"`
	Pages   int    `json:"pages"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mapResponse mirrors the PageMiner map API response.
type mapResponse struct {
	Success bool     `json:"success"`
	URLs    []string `json:"urls"`
	Total   int      `json:"total"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// refineResponse mirrors the PageMiner refine API response.
type refineResponse struct {
	Success bool     `json:"success"`
	Content string   `json:"content"`
	Chunks  []string `json:"chunks"`
	Refined bool     `json:"refined"`
	Tokens  *struct {
		OriginalEstimate int     `json:"original_estimate"`
		CleanedEstimate  int     `json:"cleaned_estimate"`
		SavingsPercent   float64 `json:"savings_percent"`
	} `json:"tokens"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("PAGEMINER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("PAGEMINER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "PAGEMINER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"pageminer",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapePageTool := mcp.NewTool("scrape_page",
		mcp.WithDescription("Scrape a single web page and return cleaned content (markdown/text/html). Escalates from plain HTTP to a headless browser when the page needs JavaScript."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the web page to scrape"),
		),
		mcp.WithString("extract_mode",
			mcp.Description("Content extraction mode: 'readability' (default, extracts main article), 'raw' (full page HTML), 'pruning' (scoring-based pruning), or 'auto' (automatic selection)"),
			mcp.Enum("readability", "raw", "pruning", "auto"),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format: 'markdown' (default), 'text' (plain text), 'html', or 'markdown_citations'"),
			mcp.Enum("markdown", "text", "html", "markdown_citations"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetch strategy: 'auto' (default, HTTP first then browser), 'http' (never render), or 'browser' (always render)"),
			mcp.Enum("auto", "http", "browser"),
		),
	)
	s.AddTool(scrapePageTool, handleScrapePage(apiURL, apiKey))

	// crawl_site tool
	crawlSiteTool := mcp.NewTool("crawl_site",
		mcp.WithDescription("Crawl a website breadth-first from a starting URL, following same-page links up to a page limit. Returns the text of every visited page plus crawl statistics."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The starting URL to crawl from"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum number of pages to crawl (default: 10, max: 500)"),
		),
		mcp.WithNumber("delay_seconds",
			mcp.Description("Pause between page fetches in seconds (default: 2, max: 20)"),
		),
		mcp.WithBoolean("same_domain_only",
			mcp.Description("Only follow links on the starting URL's host (default: true)"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetch strategy for each page: 'auto' (default), 'http', or 'browser'"),
			mcp.Enum("auto", "http", "browser"),
		),
		mcp.WithString("format",
			mcp.Description("Assembled content format: 'text' (default) or 'markdown'"),
			mcp.Enum("text", "markdown"),
		),
	)
	s.AddTool(crawlSiteTool, handleCrawlSite(apiURL, apiKey))

	// map_site tool
	mapSiteTool := mcp.NewTool("map_site",
		mcp.WithDescription("Discover the URLs of a website by crawling it and extracting links. Returns a list of URLs without scraping their content."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the website to map"),
		),
		mcp.WithNumber("max_pages",
			mcp.Description("Maximum number of pages to visit while discovering (default: 10, max: 500)"),
		),
		mcp.WithBoolean("same_domain_only",
			mcp.Description("Only follow links on the starting URL's host (default: true)"),
		),
	)
	s.AddTool(mapSiteTool, handleMapSite(apiURL, apiKey))

	// refine_content tool
	refineContentTool := mcp.NewTool("refine_content",
		mcp.WithDescription("Refine text with the configured LLM: strip residual boilerplate ('clean') or split into semantically coherent sections ('chunk'). Falls back to a non-LLM path when no provider is configured."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The text to refine"),
		),
		mcp.WithString("op",
			mcp.Description("Refinement operation: 'clean' (default) or 'chunk'"),
			mcp.Enum("clean", "chunk"),
		),
	)
	s.AddTool(refineContentTool, handleRefineContent(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the PageMiner API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// apiGet sends a GET request to the PageMiner API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollCrawlCompletion polls a crawl job until status is no longer "running" or context is cancelled.
func pollCrawlCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) ([]byte, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiGet(ctx, client, apiURL, apiKey, endpoint)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			// Quick check if still running.
			var status struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}

			if status.Status != "running" {
				return body, nil
			}
		}
	}
}

func handleScrapePage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := scrapeRequest{
			URL:          url,
			ExtractMode:  request.GetString("extract_mode", ""),
			OutputFormat: request.GetString("output_format", ""),
			FetchMode:    request.GetString("fetch_mode", ""),
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape request failed: %v", err)), nil
		}

		var scrapeResp scrapeResponse
		if err := json.Unmarshal(respBody, &scrapeResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !scrapeResp.Success {
			errMsg := "scrape failed"
			if scrapeResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", scrapeResp.Error.Code, scrapeResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Build result with metadata header
		var result string
		if scrapeResp.Metadata != nil {
			m := scrapeResp.Metadata
			result = fmt.Sprintf("Title: %s\nSource: %s\n\n", m.Title, m.SourceURL)
		}
		result += scrapeResp.Content

		if scrapeResp.Tokens != nil {
			t := scrapeResp.Tokens
			result += fmt.Sprintf("\n\n---\nTokens: %d (saved %.0f%% from original %d)",
				t.CleanedEstimate, t.SavingsPercent, t.OriginalEstimate)
			if scrapeResp.EngineUsed != "" {
				result += fmt.Sprintf(" | engine: %s", scrapeResp.EngineUsed)
			}
		}

		return mcp.NewToolResultText(result), nil
	}
}

func handleCrawlSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url": url,
		}

		args := request.GetArguments()
		if maxPages, ok := args["max_pages"]; ok {
			payload["max_pages"] = maxPages
		}
		if delay, ok := args["delay_seconds"]; ok {
			payload["delay_seconds"] = delay
		}
		if sameDomain, ok := args["same_domain_only"]; ok {
			payload["same_domain_only"] = sameDomain
		}
		if fetchMode := request.GetString("fetch_mode", ""); fetchMode != "" {
			payload["fetch_mode"] = fetchMode
		}

		// POST to create crawl job.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("crawl request failed: %v", err)), nil
		}

		var crawlResp crawlResponse
		if err := json.Unmarshal(respBody, &crawlResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl response: %v", err)), nil
		}

		if crawlResp.ID == "" {
			return mcp.NewToolResultError("crawl job creation failed"), nil
		}

		// Poll until the job leaves "running".
		resultBody, err := pollCrawlCompletion(ctx, client, apiURL, apiKey, "/api/v1/crawl/"+crawlResp.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling crawl job failed: %v", err)), nil
		}

		var statusResp crawlStatusResponse
		if err := json.Unmarshal(resultBody, &statusResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl status: %v", err)), nil
		}

		if statusResp.Status == "failed" {
			errMsg := "crawl failed"
			if statusResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", statusResp.Error.Code, statusResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Fetch the assembled content.
		contentPath := "/api/v1/crawl/" + crawlResp.ID + "/content"
		if request.GetString("format", "") == "markdown" {
			contentPath += "?format=markdown"
		}
		contentBody, err := apiGet(ctx, client, apiURL, apiKey, contentPath)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("content request failed: %v", err)), nil
		}

		var contentResp crawlContentResponse
		if err := json.Unmarshal(contentBody, &contentResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse crawl content: %v", err)), nil
		}

		if contentResp.Error != nil {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", contentResp.Error.Code, contentResp.Error.Message)), nil
		}

		// Format results with a stats header.
		var sb strings.Builder
		if st := statusResp.Stats; st != nil {
			sb.WriteString(fmt.Sprintf("Crawl %s: %s (%d pages scraped, %d links discovered, %d still queued)\n\n",
				statusResp.ID, statusResp.Status, st.PagesScraped, st.TotalLinksDiscovered, st.PagesInQueue))
		} else {
			sb.WriteString(fmt.Sprintf("Crawl %s: %s\n\n", statusResp.ID, statusResp.Status))
		}
		sb.WriteString(contentResp.Content)

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleMapSite(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]interface{}{
			"url": url,
		}

		args := request.GetArguments()
		if maxPages, ok := args["max_pages"]; ok {
			payload["max_pages"] = maxPages
		}
		if sameDomain, ok := args["same_domain_only"]; ok {
			payload["same_domain_only"] = sameDomain
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/map", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("map request failed: %v", err)), nil
		}

		var mapResp mapResponse
		if err := json.Unmarshal(respBody, &mapResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse map response: %v", err)), nil
		}

		if !mapResp.Success {
			errMsg := "map failed"
			if mapResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", mapResp.Error.Code, mapResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Found %d URLs:\n\n", mapResp.Total))
		for _, u := range mapResp.URLs {
			sb.WriteString(u + "\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleRefineContent(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		payload := map[string]interface{}{
			"content": content,
		}
		if op := request.GetString("op", ""); op != "" {
			payload["op"] = op
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/refine", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("refine request failed: %v", err)), nil
		}

		var refineResp refineResponse
		if err := json.Unmarshal(respBody, &refineResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse refine response: %v", err)), nil
		}

		if !refineResp.Success {
			errMsg := "refine failed"
			if refineResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", refineResp.Error.Code, refineResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		// Chunk results come back as sections; join them with separators.
		if len(refineResp.Chunks) > 0 {
			var sb strings.Builder
			sb.WriteString(fmt.Sprintf("Split into %d chunks:\n\n", len(refineResp.Chunks)))
			for i, chunk := range refineResp.Chunks {
				sb.WriteString(fmt.Sprintf("--- Chunk %d ---\n%s\n\n", i+1, chunk))
			}
			return mcp.NewToolResultText(sb.String()), nil
		}

		result := refineResp.Content
		if refineResp.Tokens != nil {
			t := refineResp.Tokens
			result += fmt.Sprintf("\n\n---\nTokens: %d (saved %.0f%% from original %d)",
				t.CleanedEstimate, t.SavingsPercent, t.OriginalEstimate)
			if !refineResp.Refined {
				result += " | no LLM configured, content returned as-is"
			}
		}

		return mcp.NewToolResultText(result), nil
	}
}
