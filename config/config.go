package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root of all runtime configuration, loaded once at startup.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Scraper      ScraperConfig
	Crawler      CrawlerConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Log          LogConfig
	Engine       EngineConfig
	AdaptivePool AdaptivePoolConfig
	LLM          LLMConfig
	Webhook      WebhookConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // gin mode: "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key checks on the /api routes.
type AuthConfig struct {
	// Enabled turns the key check on. With no keys configured the check is
	// skipped regardless.
	Enabled bool // default: true

	// APIKeys holds the accepted keys, comma-separated in the environment.
	APIKeys []string
}

// RateLimitConfig throttles requests per API key (per client IP when
// authentication is off).
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// BrowserConfig controls the launched Chromium instance.
type BrowserConfig struct {
	// Headless runs the browser without a display.
	Headless bool // default: true

	// MaxPages caps concurrent tabs regardless of pool sizing.
	MaxPages int // default: 10

	// DefaultProxy routes all browser traffic through a proxy URL.
	DefaultProxy string

	// NoSandbox drops Chromium's sandbox, required inside most containers.
	NoSandbox bool // default: false

	// BrowserBin points at an alternative Chromium binary.
	BrowserBin string
}

// ScraperConfig bounds individual page fetches.
type ScraperConfig struct {
	// DefaultTimeout applies when a request names none.
	DefaultTimeout time.Duration // default: 20s

	// MaxTimeout is the ceiling on client-requested timeouts.
	MaxTimeout time.Duration // default: 120s

	// BlockedResourceTypes are CDP resource types the hijack router drops.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// EngineConfig controls fetch engine selection.
type EngineConfig struct {
	// Mode is the server-wide strategy: "auto" (HTTP first, escalate to the
	// browser when the page looks JS-gated), "browser" (always render), or
	// "http" (plain HTTP unless a request asks for the browser).
	Mode string // default: "auto"

	// EscalationDelays staggers engine starts in auto mode, one slot per tier.
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// HTTPTimeout bounds the pure HTTP engine.
	HTTPTimeout time.Duration // default: 5s

	// DomainMemoryTTL is how long a winning engine stays remembered per domain.
	DomainMemoryTTL time.Duration // default: 24h
}

// AdaptivePoolConfig controls browser tab pool sizing.
type AdaptivePoolConfig struct {
	// MinPages is the floor the pool never shrinks below.
	MinPages int // default: 3

	// HardMax is the ceiling the pool never grows past.
	HardMax int // default: 20

	// MemThreshold is the heap fraction (0.0-1.0) that triggers a shrink.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of current size added or removed per resize.
	ScaleStep float64 // default: 0.05
}

// CrawlerConfig controls multi-page crawl sessions.
type CrawlerConfig struct {
	// MaxPages is the default visit budget per crawl.
	MaxPages int // default: 10

	// MaxPagesLimit is the largest budget a client may request.
	MaxPagesLimit int // default: 500

	// Delay is the default politeness pause after each successful page.
	Delay time.Duration // default: 2s

	// MaxDelay is the largest delay a client may request.
	MaxDelay time.Duration // default: 20s

	// SameDomainOnly restricts link following to the seed's domain.
	SameDomainOnly bool // default: true
}

// CacheConfig sizes the in-memory scrape response cache.
type CacheConfig struct {
	MaxEntries int // default: 1000
}

// WebhookConfig controls crawl event delivery.
type WebhookConfig struct {
	// Timeout is the per-attempt delivery deadline.
	Timeout time.Duration // default: 10s
}

// LLMConfig controls the optional text-refinement backend.
//
// Provider resolution order: a vLLM endpoint wins over Groq; with neither
// set, refinement is disabled and callers fall back to the raw text. The
// provider variables are deliberately unprefixed, matching the naming the
// inference servers themselves document.
type LLMConfig struct {
	// VLLMBaseURL points at an OpenAI-compatible vLLM server.
	VLLMBaseURL string

	// VLLMModel is the model served by the vLLM endpoint.
	VLLMModel string // default: "Qwen/Qwen3-14B"

	// GroqAPIKey enables the hosted Groq backend when no vLLM URL is set.
	GroqAPIKey string

	// Timeout is the per-request deadline for LLM calls.
	Timeout time.Duration // default: 30s

	// Temperature for completion sampling.
	Temperature float64 // default: 0.2

	// MaxTokens caps the completion length.
	MaxTokens int // default: 2048
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads every setting from the PAGEMINER_* environment, applying
// defaults for anything unset or unparseable.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PAGEMINER_HOST", "0.0.0.0"),
			Port: envIntOr("PAGEMINER_PORT", 8080),
			Mode: envOr("PAGEMINER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PAGEMINER_HEADLESS", true),
			MaxPages:     envIntOr("PAGEMINER_MAX_TABS", 10),
			DefaultProxy: os.Getenv("PAGEMINER_PROXY"),
			NoSandbox:    envBoolOr("PAGEMINER_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PAGEMINER_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			DefaultTimeout: envDurationOr("PAGEMINER_FETCH_TIMEOUT", 20*time.Second),
			MaxTimeout:     envDurationOr("PAGEMINER_MAX_TIMEOUT", 120*time.Second),
			BlockedResourceTypes: envSliceOr("PAGEMINER_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Crawler: CrawlerConfig{
			MaxPages:       envIntOr("PAGEMINER_CRAWL_MAX_PAGES", 10),
			MaxPagesLimit:  envIntOr("PAGEMINER_CRAWL_PAGE_LIMIT", 500),
			Delay:          envDurationOr("PAGEMINER_CRAWL_DELAY", 2*time.Second),
			MaxDelay:       envDurationOr("PAGEMINER_CRAWL_MAX_DELAY", 20*time.Second),
			SameDomainOnly: envBoolOr("PAGEMINER_SAME_DOMAIN_ONLY", true),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PAGEMINER_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PAGEMINER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PAGEMINER_RATE_RPS", 5.0),
			Burst:             envIntOr("PAGEMINER_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("PAGEMINER_CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level:  envOr("PAGEMINER_LOG_LEVEL", "info"),
			Format: envOr("PAGEMINER_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			Mode:             envOr("PAGEMINER_FETCH_MODE", "auto"),
			EscalationDelays: envDurationSliceOr("PAGEMINER_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			HTTPTimeout:      envDurationOr("PAGEMINER_HTTP_TIMEOUT", 5*time.Second),
			DomainMemoryTTL:  envDurationOr("PAGEMINER_DOMAIN_MEMORY_TTL", 24*time.Hour),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("PAGEMINER_MIN_PAGES", 3),
			HardMax:      envIntOr("PAGEMINER_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("PAGEMINER_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("PAGEMINER_SCALE_STEP", 0.05),
		},
		LLM: LLMConfig{
			VLLMBaseURL: os.Getenv("VLLM_BASE_URL"),
			VLLMModel:   envOr("VLLM_MODEL", "Qwen/Qwen3-14B"),
			GroqAPIKey:  os.Getenv("GROQ_API_KEY"),
			Timeout:     envDurationOr("PAGEMINER_LLM_TIMEOUT", 30*time.Second),
			Temperature: envFloatOr("PAGEMINER_LLM_TEMPERATURE", 0.2),
			MaxTokens:   envIntOr("PAGEMINER_LLM_MAX_TOKENS", 2048),
		},
		Webhook: WebhookConfig{
			Timeout: envDurationOr("PAGEMINER_WEBHOOK_TIMEOUT", 10*time.Second),
		},
	}
}

// parseEnv resolves key through parse, keeping fallback when the variable is
// unset or malformed.
func parseEnv[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	return parseEnv(key, fallback, strconv.Atoi)
}

func envBoolOr(key string, fallback bool) bool {
	return parseEnv(key, fallback, strconv.ParseBool)
}

func envFloatOr(key string, fallback float64) float64 {
	return parseEnv(key, fallback, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	return parseEnv(key, fallback, time.ParseDuration)
}

func envSliceOr(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []time.Duration
	for _, part := range strings.Split(v, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
