package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/pageminer/api/handler"
	"github.com/use-agent/pageminer/api/middleware"
	"github.com/use-agent/pageminer/cache"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/llm"
	"github.com/use-agent/pageminer/scraper"
	"github.com/use-agent/pageminer/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → AccessLog
//	API:     Auth (if enabled) → RateLimit
//
// Health and readiness probes are intentionally outside auth so monitoring
// always works.
func NewRouter(sc *scraper.Scraper, cl *cleaner.Cleaner, llmClient *llm.Client, cfg *config.Config, cc *cache.Cache, nt *webhook.Notifier, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.AccessLog())

	// Probes stay outside auth.
	r.GET("/health", handler.Health(sc, startTime))
	r.GET("/ready", handler.Ready(sc))

	// Everything under /api/v1 goes through auth and rate limiting.
	v1 := r.Group("/api/v1")
	if cfg.Auth.Enabled {
		v1.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	v1.Use(middleware.RateLimit(cfg.RateLimit))

	// Scrape
	v1.POST("/scrape", handler.Scrape(sc, cl, cc))

	// Batch
	v1.POST("/batch", handler.PostBatch(sc, cl, nt))
	v1.GET("/batch/:id", handler.GetBatch())

	// Crawl
	v1.POST("/crawl", handler.PostCrawl(sc, cfg.Crawler, cfg.Scraper.DefaultTimeout, nt))
	v1.GET("/crawl/:id", handler.GetCrawl())
	v1.GET("/crawl/:id/content", handler.GetCrawlContent(cl, llmClient))

	// Map
	v1.POST("/map", handler.PostMap(sc, cfg.Crawler, cfg.Scraper.DefaultTimeout))

	// Refine
	v1.POST("/refine", handler.Refine(llmClient))

	return r
}
