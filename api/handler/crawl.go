package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/crawler"
	"github.com/use-agent/pageminer/llm"
	"github.com/use-agent/pageminer/models"
	"github.com/use-agent/pageminer/webhook"
)

// FetcherProvider supplies per-session page-fetch functions.
// *scraper.Scraper implements it; tests substitute stubs.
type FetcherProvider interface {
	Fetcher(mode string, timeout time.Duration) crawler.FetchFunc
}

// crawlStore holds all in-flight and completed crawl jobs.
var crawlStore sync.Map

func init() {
	// Background goroutine to expire crawl jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			crawlStore.Range(func(key, value any) bool {
				job := value.(*crawlJob)
				if job.createdAt < cutoff {
					crawlStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// crawlJob tracks one crawl session. The mutex guards every field below
// it: the crawl goroutine writes, the status handlers read.
type crawlJob struct {
	id        string
	createdAt int64

	mu        sync.Mutex
	status    string // "running", "completed", "failed"
	progress  *models.ProgressEvent
	stats     *models.CrawlStats
	pages     []crawler.Page
	errDetail *models.ErrorDetail
}

// PostCrawl returns a handler for POST /api/v1/crawl.
//
// The request is validated up front; a session that starts always reaches
// the completed state, so the 202 job id is safe to poll immediately.
func PostCrawl(fp FetcherProvider, crawlerCfg config.CrawlerConfig, fetchTimeout time.Duration, nt *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// Session bounds: request values, clamped to the configured caps.
		cfg := crawler.Config{
			MaxPages:       req.MaxPages,
			Delay:          crawlerCfg.Delay,
			SameDomainOnly: crawlerCfg.SameDomainOnly,
		}
		if cfg.MaxPages == 0 {
			cfg.MaxPages = crawlerCfg.MaxPages
		}
		if crawlerCfg.MaxPagesLimit > 0 && cfg.MaxPages > crawlerCfg.MaxPagesLimit {
			cfg.MaxPages = crawlerCfg.MaxPagesLimit
		}
		if req.DelaySeconds != nil {
			cfg.Delay = time.Duration(*req.DelaySeconds * float64(time.Second))
		}
		if cfg.Delay > crawlerCfg.MaxDelay {
			cfg.Delay = crawlerCfg.MaxDelay
		}
		if req.SameDomainOnly != nil {
			cfg.SameDomainOnly = *req.SameDomainOnly
		}

		jobID := "crawl-" + randomID()
		job := &crawlJob{
			id:        jobID,
			createdAt: time.Now().Unix(),
			status:    "running",
		}
		crawlStore.Store(jobID, job)

		// Launch the crawl session in background.
		go runCrawl(fp, nt, job, cfg, req, fetchTimeout)

		c.JSON(http.StatusAccepted, models.CrawlResponse{
			ID:     jobID,
			Status: "running",
		})
	}
}

// GetCrawl returns a handler for GET /api/v1/crawl/:id.
func GetCrawl() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := crawlStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job not found",
				},
			})
			return
		}

		job := val.(*crawlJob)
		job.mu.Lock()
		resp := models.CrawlStatusResponse{
			ID:       job.id,
			Status:   job.status,
			Progress: job.progress,
			Stats:    job.stats,
			Error:    job.errDetail,
		}
		if job.stats != nil {
			resp.QueuePreview = queuePreview(job.stats.RemainingQueue, 10)
		}
		job.mu.Unlock()

		c.JSON(http.StatusOK, resp)
	}
}

// GetCrawlContent returns a handler for GET /api/v1/crawl/:id/content.
//
// Query parameters:
//   - format: "text" (default) assembles raw body text; "markdown" converts
//     each page through the cleaning pipeline.
//   - refine=llm: pass the assembled document through the LLM cleaner
//     (raw fallback when no provider is configured).
//   - chunks=true: additionally return LLM-sectioned chunks.
func GetCrawlContent(cl *cleaner.Cleaner, llmClient *llm.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := crawlStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, models.CrawlContentResponse{
				ID: jobID,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job not found",
				},
			})
			return
		}

		job := val.(*crawlJob)
		job.mu.Lock()
		status := job.status
		errDetail := job.errDetail
		pages := job.pages
		job.mu.Unlock()

		switch status {
		case "running":
			c.JSON(http.StatusConflict, models.CrawlContentResponse{
				ID: jobID,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "crawl job still running",
				},
			})
			return
		case "failed":
			if errDetail == nil {
				errDetail = &models.ErrorDetail{
					Code:    models.ErrCodeInternal,
					Message: "crawl job failed",
				}
			}
			c.JSON(http.StatusConflict, models.CrawlContentResponse{
				ID:    jobID,
				Error: errDetail,
			})
			return
		}

		var content string
		if c.Query("format") == "markdown" {
			content = assembleMarkdown(cl, pages)
		} else {
			content = crawler.AssembleText(pages)
		}

		refined := false
		if c.Query("refine") == "llm" && content != "" {
			content, refined = llmClient.Clean(c.Request.Context(), content)
		}

		resp := models.CrawlContentResponse{
			ID:      jobID,
			Content: content,
			Refined: refined,
			Pages:   len(pages),
		}

		if c.Query("chunks") == "true" && content != "" {
			chunks, _ := llmClient.Chunk(c.Request.Context(), content)
			resp.Chunks = chunks
		}

		c.JSON(http.StatusOK, resp)
	}
}

// runCrawl executes one crawl session and records its outcome on the job.
func runCrawl(fp FetcherProvider, nt *webhook.Notifier, job *crawlJob, cfg crawler.Config, req models.CrawlRequest, fetchTimeout time.Duration) {
	// The recorder sink keeps only the latest event; GET /crawl/:id serves
	// it as the live progress snapshot.
	recorder := crawler.ProgressSinkFunc(func(ev models.ProgressEvent) {
		job.mu.Lock()
		job.progress = &ev
		job.mu.Unlock()
	})

	sess, err := crawler.New(cfg, fp.Fetcher(req.FetchMode, fetchTimeout), recorder)
	if err != nil {
		failCrawl(job, nt, req, err)
		return
	}

	result, err := sess.Run(context.Background(), req.URL)
	if err != nil {
		failCrawl(job, nt, req, err)
		return
	}

	stats := result.Stats
	job.mu.Lock()
	job.status = "completed"
	job.stats = &stats
	job.pages = result.Pages.Pages()
	job.mu.Unlock()

	slog.Info("crawl job finished",
		"id", job.id,
		"pages_scraped", stats.PagesScraped,
		"links_discovered", stats.TotalLinksDiscovered,
	)

	if nt != nil && req.WebhookURL != "" {
		nt.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventCrawlCompleted,
			JobID:     job.id,
			Timestamp: time.Now().Unix(),
			Data:      stats,
		})
	}
}

// failCrawl marks the job failed and notifies the webhook, if any. Only
// seed or configuration problems land here; page failures never abort a
// session.
func failCrawl(job *crawlJob, nt *webhook.Notifier, req models.CrawlRequest, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	job.mu.Lock()
	job.status = "failed"
	job.errDetail = scrapeErr.ToDetail()
	job.mu.Unlock()

	slog.Warn("crawl job failed", "id", job.id, "error", err)

	if nt != nil && req.WebhookURL != "" {
		nt.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventCrawlFailed,
			JobID:     job.id,
			Timestamp: time.Now().Unix(),
			Data:      gin.H{"error": scrapeErr.ToDetail()},
		})
	}
}

// assembleMarkdown renders each visited page to markdown and joins the
// sections with the same page headers the text assembly uses.
func assembleMarkdown(cl *cleaner.Cleaner, pages []crawler.Page) string {
	parts := make([]string, 0, len(pages)*3)
	for i, p := range pages {
		parts = append(parts, fmt.Sprintf("=== PAGE %d: %s ===\n", i+1, p.URL))
		if resp, err := cl.Clean(p.HTML, p.URL, "markdown", "readability"); err == nil && resp.Content != "" {
			parts = append(parts, resp.Content)
		}
		parts = append(parts, "\n"+strings.Repeat("=", 80)+"\n")
	}
	return strings.Join(parts, "\n")
}

// queuePreview returns at most the first n pending URLs.
func queuePreview(queue []string, n int) []string {
	if len(queue) <= n {
		return queue
	}
	return queue[:n]
}
