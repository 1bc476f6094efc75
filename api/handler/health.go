package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/models"
	"github.com/use-agent/pageminer/scraper"
)

// Health returns a handler for GET /health. Status flips to "degraded" once
// more than 80% of the tab budget is in flight.
func Health(sc *scraper.Scraper, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		resp := models.HealthResponse{
			Status:    "healthy",
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		}
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			resp.Status = "degraded"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// Ready returns a handler for GET /ready.
//
// Reports 503 until the browser pool has at least one page, either idle or
// in flight. Load balancers use this to gate traffic during startup.
func Ready(sc *scraper.Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()
		if stats.PooledPages == 0 && stats.ActivePages == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
