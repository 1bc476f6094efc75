package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/crawler"
	"github.com/use-agent/pageminer/models"
)

// PostMap returns a handler for POST /api/v1/map.
//
// Map runs a synchronous link-discovery crawl: the same breadth-first
// driver as /crawl, without pacing, and the response carries the
// discovered URLs instead of page content. Cancelling the request stops
// the crawl and returns whatever was discovered so far.
func PostMap(fp FetcherProvider, crawlerCfg config.CrawlerConfig, fetchTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.MapResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		cfg := crawler.Config{
			MaxPages:       req.MaxPages,
			SameDomainOnly: crawlerCfg.SameDomainOnly,
		}
		if cfg.MaxPages == 0 {
			cfg.MaxPages = crawlerCfg.MaxPages
		}
		if crawlerCfg.MaxPagesLimit > 0 && cfg.MaxPages > crawlerCfg.MaxPagesLimit {
			cfg.MaxPages = crawlerCfg.MaxPagesLimit
		}
		if req.SameDomainOnly != nil {
			cfg.SameDomainOnly = *req.SameDomainOnly
		}

		sess, err := crawler.New(cfg, fp.Fetcher(req.FetchMode, fetchTimeout), nil)
		if err != nil {
			respondMapError(c, err)
			return
		}

		result, err := sess.Run(c.Request.Context(), req.URL)
		if err != nil {
			respondMapError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.MapResponse{
			Success: true,
			URLs:    result.Discovered,
			Total:   len(result.Discovered),
		})
	}
}

func respondMapError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), models.MapResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}
