package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pageminer/api"
	"github.com/use-agent/pageminer/cache"
	"github.com/use-agent/pageminer/cleaner"
	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/engine"
	"github.com/use-agent/pageminer/llm"
	"github.com/use-agent/pageminer/scraper"
	"github.com/use-agent/pageminer/webhook"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pageminer starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxPages,
	)

	// ── 3. Initialise scraper (launches browser) ────────────────────
	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper, cfg.AdaptivePool)
	if err != nil {
		slog.Error("failed to initialise scraper", "error", err)
		os.Exit(1)
	}
	defer sc.Close()

	// ── 3b. Initialise fetch engines + dispatcher ───────────────────
	// PAGEMINER_FETCH_MODE restricts which engines are installed; a
	// request's fetch_mode narrows the race further.
	httpEngine := engine.NewHTTPEngine(cfg.Engine.HTTPTimeout)
	rodEngine := engine.NewRodEngine(sc.EngineFetch, false)
	rodStealthEngine := engine.NewRodEngine(sc.EngineFetch, true)

	var engines []engine.Engine
	switch cfg.Engine.Mode {
	case engine.ModeHTTP:
		engines = []engine.Engine{httpEngine}
	case engine.ModeBrowser:
		engines = []engine.Engine{rodEngine, rodStealthEngine}
	default:
		engines = []engine.Engine{httpEngine, rodEngine, rodStealthEngine}
	}

	memory := engine.NewDomainMemory(cfg.Engine.DomainMemoryTTL)
	dispatcher := engine.NewDispatcher(engines, cfg.Engine.EscalationDelays, memory)
	sc.SetDispatcher(dispatcher)
	slog.Info("fetch dispatcher ready",
		"mode", cfg.Engine.Mode,
		"engines", len(engines),
		"delays", cfg.Engine.EscalationDelays,
	)

	// ── 4. Initialise cleaner, cache, LLM client, webhook notifier ──
	cl := cleaner.NewCleaner()
	cc := cache.New(cfg.Cache.MaxEntries)
	llmClient := llm.New(cfg.LLM)
	slog.Info("llm refinement provider", "provider", llmClient.Provider())
	nt := webhook.NewNotifier(cfg.Webhook.Timeout)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, cl, llmClient, cfg, cc, nt, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	cc.Close()

	// sc.Close() runs via defer, draining the page pool and killing Chrome.
	slog.Info("pageminer stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
