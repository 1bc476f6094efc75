package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/models"
	"github.com/use-agent/pageminer/scraper"
	"github.com/use-agent/pageminer/webhook"
)

// batchStore holds in-flight and finished batch jobs by ID. Finished jobs
// stay queryable for an hour before eviction.
var batchStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				if value.(*batchJob).createdAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// batchJob tracks one batch run. The mutex guards the fields below it:
// worker goroutines write, the status handler reads.
type batchJob struct {
	id        string
	total     int
	createdAt int64

	mu        sync.Mutex
	status    string // "processing", "completed", "failed", "partial"
	completed int
	results   []*models.ScrapeResponse
}

// PostBatch returns the handler for POST /api/v1/batch. The batch is
// accepted immediately with a job ID; the URLs are scraped in the
// background and collected under that ID for polling.
func PostBatch(sc *scraper.Scraper, cl *cleaner.Cleaner, nt *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		job := &batchJob{
			id:        "batch-" + randomID(),
			total:     len(req.URLs),
			createdAt: time.Now().Unix(),
			status:    "processing",
			results:   make([]*models.ScrapeResponse, len(req.URLs)),
		}
		batchStore.Store(job.id, job)

		go runBatch(sc, cl, nt, job, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     job.id,
			Status: "processing",
			Total:  job.total,
		})
	}
}

// GetBatch returns the handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := batchStore.Load(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		job := val.(*batchJob)
		job.mu.Lock()
		// Copy the result slots so encoding runs outside the lock. A
		// response never mutates once placed, only its slot does.
		results := make([]*models.ScrapeResponse, len(job.results))
		copy(results, job.results)
		resp := models.BatchStatusResponse{
			ID:        job.id,
			Status:    job.status,
			Completed: job.completed,
			Total:     job.total,
			Results:   results,
		}
		job.mu.Unlock()

		c.JSON(http.StatusOK, resp)
	}
}

type batchItem struct {
	idx int
	url string
}

// runBatch scrapes every URL of the job with a bounded worker set, then
// settles the final status and fires the completion webhook if one was
// requested. Worker count follows the browser pool size so the batch cannot
// demand more pages than the pool will give.
func runBatch(sc *scraper.Scraper, cl *cleaner.Cleaner, nt *webhook.Notifier, job *batchJob, req models.BatchRequest) {
	workers := sc.Stats().MaxPages
	if workers <= 0 {
		workers = 5
	}
	if workers > len(req.URLs) {
		workers = len(req.URLs)
	}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		failed    atomic.Int32
	)

	items := make(chan batchItem)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for item := range items {
				resp := scrapeOne(sc, cl, item.url, req.Options)
				if resp.Success {
					succeeded.Add(1)
				} else {
					failed.Add(1)
				}

				job.mu.Lock()
				job.results[item.idx] = resp
				job.completed++
				job.mu.Unlock()
			}
		}()
	}

	for i, u := range req.URLs {
		items <- batchItem{idx: i, url: u}
	}
	close(items)
	wg.Wait()

	ok := int(succeeded.Load())
	bad := int(failed.Load())
	status := "completed"
	switch {
	case bad == job.total:
		status = "failed"
	case bad > 0:
		status = "partial"
	}

	job.mu.Lock()
	job.status = status
	job.mu.Unlock()

	slog.Info("batch job finished",
		"id", job.id,
		"status", status,
		"completed", ok,
		"failed", bad,
		"total", job.total,
	)

	if nt != nil && req.WebhookURL != "" {
		nt.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     job.id,
			Timestamp: time.Now().Unix(),
			Data: gin.H{
				"status":    status,
				"completed": ok,
				"failed":    bad,
				"total":     job.total,
			},
		})
	}
}

// scrapeOne fetches and cleans a single URL with the batch-wide options.
// Batch items run detached from the submitting request, so the fetch uses a
// background context.
func scrapeOne(sc *scraper.Scraper, cl *cleaner.Cleaner, targetURL string, opts models.BatchOptions) *models.ScrapeResponse {
	start := time.Now()

	req := &models.ScrapeRequest{
		URL:          targetURL,
		OutputFormat: opts.OutputFormat,
		ExtractMode:  opts.ExtractMode,
		FetchMode:    opts.FetchMode,
		Timeout:      opts.Timeout,
		Stealth:      opts.Stealth,
	}
	req.Defaults()

	var navMs, cleanMs int64
	fail := func(err error) *models.ScrapeResponse {
		var scrapeErr *models.ScrapeError
		if !errors.As(err, &scrapeErr) {
			scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
		}
		return &models.ScrapeResponse{
			Success: false,
			Error:   scrapeErr.ToDetail(),
			Timing: models.TimingInfo{
				TotalMs:      time.Since(start).Milliseconds(),
				NavigationMs: navMs,
				CleaningMs:   cleanMs,
			},
		}
	}

	navStart := time.Now()
	result, err := sc.DoScrape(context.Background(), req)
	navMs = time.Since(navStart).Milliseconds()
	if err != nil {
		return fail(err)
	}

	cleanStart := time.Now()
	resp, err := cl.Clean(result.HTML, req.URL, req.OutputFormat, req.ExtractMode)
	cleanMs = time.Since(cleanStart).Milliseconds()
	if err != nil {
		return fail(err)
	}

	if resp.Metadata.Title == "" {
		resp.Metadata.Title = result.Title
	}
	resp.StatusCode = result.StatusCode
	resp.FinalURL = result.FinalURL
	resp.EngineUsed = result.EngineUsed
	resp.Timing = models.TimingInfo{
		TotalMs:      time.Since(start).Milliseconds(),
		NavigationMs: navMs,
		CleaningMs:   cleanMs,
	}
	return resp
}

// randomID returns 16 hex characters for job IDs.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
