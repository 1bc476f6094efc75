package models

// ScrapeResponse is the body of POST /api/v1/scrape. Other endpoints reuse
// it wherever a single page result is returned.
type ScrapeResponse struct {
	Success bool `json:"success"`

	// StatusCode and FinalURL describe the fetch: the upstream HTTP
	// status and the URL left after redirects.
	StatusCode int    `json:"status_code"`
	FinalURL   string `json:"final_url"`

	// Content is the cleaned output in the requested format.
	Content string `json:"content"`

	Metadata Metadata    `json:"metadata"`
	Links    LinksResult `json:"links"`
	Images   []Image     `json:"images"`

	// OGMetadata carries the page's Open Graph tags.
	OGMetadata OGMetadata `json:"og_metadata"`

	// Tokens estimates the size of the page before and after cleaning.
	Tokens TokenInfo `json:"tokens"`

	Timing TimingInfo `json:"timing"`

	// CacheStatus is "hit" or "miss" when caching was requested, empty
	// otherwise.
	CacheStatus string `json:"cache_status,omitempty"`

	// EngineUsed names the fetch engine that produced the result
	// ("http", "rod", "rod-stealth").
	EngineUsed string `json:"engine_used,omitempty"`

	// Error is set only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// LinksResult splits extracted links by whether they stay on the source
// host.
type LinksResult struct {
	Internal []Link `json:"internal"`
	External []Link `json:"external"`
}

// Link is one hyperlink from the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Image is one image element from the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// OGMetadata holds the Open Graph meta tags worth forwarding.
type OGMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Type        string `json:"type,omitempty"`
}

// Metadata is the page-level information readability recovered.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	Author      string `json:"author,omitempty"`
	Language    string `json:"language,omitempty"`
	SourceURL   string `json:"source_url"`
}

// TokenInfo shows what cleaning saved. SavingsPercent is 0 to 100.
type TokenInfo struct {
	OriginalEstimate int     `json:"original_estimate"`
	CleanedEstimate  int     `json:"cleaned_estimate"`
	SavingsPercent   float64 `json:"savings_percent"`
}

// TimingInfo breaks the request down by phase, all in milliseconds.
type TimingInfo struct {
	TotalMs      int64 `json:"total_ms"`
	NavigationMs int64 `json:"navigation_ms"`
	CleaningMs   int64 `json:"cleaning_ms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
	PooledPages int `json:"pooled_pages"`
}
