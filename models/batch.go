package models

// BatchRequest is the payload for POST /api/v1/batch.
type BatchRequest struct {
	// URLs are the pages to scrape, at most 100 per batch.
	URLs []string `json:"urls" binding:"required,min=1,max=100"`

	// Options apply to every URL in the batch.
	Options BatchOptions `json:"options"`

	// WebhookURL, when set, receives a signed batch.completed event.
	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchOptions is the subset of scrape settings a batch can carry.
type BatchOptions struct {
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown html text markdown_citations"`
	ExtractMode  string `json:"extract_mode,omitempty" binding:"omitempty,oneof=readability raw pruning auto"`
	FetchMode    string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`
	Timeout      int    `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`
	Stealth      bool   `json:"stealth,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*ScrapeResponse `json:"results,omitempty"`
}
