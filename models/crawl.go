package models

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// URL is the seed page the crawl starts from. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxPages caps how many pages the crawl may fetch.
	// Default: 10. Max: 500.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=1,max=500"`

	// DelaySeconds is the pause between successive page fetches.
	// Default: 2. Max: 20. Zero disables pacing.
	DelaySeconds *float64 `json:"delay_seconds,omitempty" binding:"omitempty,gte=0,lte=20"`

	// SameDomainOnly restricts the crawl to the seed's host.
	// Default: true.
	SameDomainOnly *bool `json:"same_domain_only,omitempty"`

	// FetchMode controls how each page is fetched.
	// "auto" (default), "http", "browser".
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// WebhookURL, when set, receives a signed crawl.completed event.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// CrawlResponse is the immediate response for POST /api/v1/crawl.
type CrawlResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ProgressEvent is one crawl progress update, emitted in strict loop order.
// The sequence of events reconstructs the exact crawl trace.
type ProgressEvent struct {
	Message            string  `json:"message"`
	CurrentURL         string  `json:"current_url,omitempty"`
	VisitedCount       int     `json:"visited_count"`
	QueueSize          int     `json:"queue_size"`
	TotalLinksFound    int     `json:"total_links_found"`
	LinksOnCurrentPage int     `json:"links_on_current_page"`
	MaxPages           int     `json:"max_pages"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// CrawlStats summarizes a crawl session. VisitedURLs is in visitation
// order; RemainingQueue is the pending frontier in FIFO order.
type CrawlStats struct {
	PagesScraped         int      `json:"pages_scraped"`
	TotalLinksDiscovered int      `json:"total_links_discovered"`
	PagesInQueue         int      `json:"pages_in_queue"`
	MaxPages             int      `json:"max_pages"`
	CompletionPercentage float64  `json:"completion_percentage"`
	VisitedURLs          []string `json:"visited_urls"`
	RemainingQueue       []string `json:"remaining_queue"`
}

// CrawlStatusResponse is the response for GET /api/v1/crawl/:id.
// Progress is the latest event while the job runs; Stats is populated
// once the job completes. QueuePreview holds at most the first ten
// pending URLs.
type CrawlStatusResponse struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Progress     *ProgressEvent `json:"progress,omitempty"`
	Stats        *CrawlStats    `json:"stats,omitempty"`
	QueuePreview []string       `json:"queue_preview,omitempty"`
	Error        *ErrorDetail   `json:"error,omitempty"`
}

// CrawlContentResponse is the response for GET /api/v1/crawl/:id/content.
type CrawlContentResponse struct {
	ID      string       `json:"id"`
	Content string       `json:"content,omitempty"`
	Chunks  []string     `json:"chunks,omitempty"`
	Refined bool         `json:"refined"`
	Pages   int          `json:"pages"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
