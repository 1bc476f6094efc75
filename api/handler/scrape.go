package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/cache"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/models"
	"github.com/use-agent/pageminer/scraper"
)

// Scrape returns the handler for POST /api/v1/scrape. One request is one
// page: fetch through the engine ladder, optionally narrow by CSS selector,
// clean, and respond with content plus fetch metadata and timing. With
// max_age set, a fresh-enough cached response short-circuits all of that.
func Scrape(sc *scraper.Scraper, cl *cleaner.Cleaner, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		var navMs, cleanMs int64
		elapsed := func() models.TimingInfo {
			return models.TimingInfo{
				TotalMs:      time.Since(start).Milliseconds(),
				NavigationMs: navMs,
				CleaningMs:   cleanMs,
			}
		}

		cacheable := cc != nil && req.MaxAge > 0
		key := cache.Key(req.URL, req.OutputFormat, req.ExtractMode, req.CSSSelector)
		if cacheable {
			if cached, hit := cc.Get(key, req.MaxAge); hit {
				cached.CacheStatus = "hit"
				cached.Timing = models.TimingInfo{
					TotalMs: time.Since(start).Milliseconds(),
				}
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		navStart := time.Now()
		result, err := sc.DoScrape(c.Request.Context(), &req)
		navMs = time.Since(navStart).Milliseconds()
		if err != nil {
			respondError(c, err, elapsed())
			return
		}

		html := result.HTML
		if req.CSSSelector != "" {
			if html, err = cleaner.ApplyCSSSelector(html, req.CSSSelector); err != nil {
				respondError(c, models.NewScrapeError(
					models.ErrCodeInvalidInput,
					"invalid css_selector: "+err.Error(),
					err,
				), elapsed())
				return
			}
		}

		cleanStart := time.Now()
		resp, err := cl.Clean(html, req.URL, req.OutputFormat, req.ExtractMode, cleanFilters(&req)...)
		cleanMs = time.Since(cleanStart).Milliseconds()
		if err != nil {
			respondError(c, err, elapsed())
			return
		}

		// The fetch knows things extraction cannot: the JS-evaluated title
		// (used when readability found none), the post-redirect URL, the
		// upstream status, and which engine got through.
		if resp.Metadata.Title == "" {
			resp.Metadata.Title = result.Title
		}
		resp.StatusCode = result.StatusCode
		resp.FinalURL = result.FinalURL
		resp.EngineUsed = result.EngineUsed
		resp.Timing = elapsed()

		if cacheable {
			cc.Set(key, resp)
			resp.CacheStatus = "miss"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// cleanFilters lifts the optional include/exclude selectors out of the
// request.
func cleanFilters(req *models.ScrapeRequest) []cleaner.CleanOptions {
	if len(req.IncludeTags) == 0 && len(req.ExcludeTags) == 0 {
		return nil
	}
	return []cleaner.CleanOptions{{
		IncludeTags: req.IncludeTags,
		ExcludeTags: req.ExcludeTags,
	}}
}

// respondError writes a structured error response with the HTTP status
// matching the error code.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus picks the HTTP status for an error code. Fetch failures
// map to gateway statuses since the upstream site broke, not this service.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeNavigation, models.ErrCodeLLMFailure:
		return http.StatusBadGateway
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
