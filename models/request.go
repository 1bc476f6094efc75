package models

// Cookie is a browser cookie installed before navigation.
type Cookie struct {
	Name   string `json:"name" binding:"required"`
	Value  string `json:"value" binding:"required"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout is the maximum duration in seconds for the entire
	// scrape operation (navigation + rendering + extraction).
	// Default: 20. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Stealth enables anti-bot-detection evasions (e.g. navigator.webdriver masking).
	// Default: false.
	Stealth bool `json:"stealth,omitempty"`

	// OutputFormat controls the response body format.
	// Allowed: "markdown" (default), "html", "text", "markdown_citations".
	OutputFormat string `json:"output_format,omitempty" binding:"omitempty,oneof=markdown html text markdown_citations"`

	// ExtractMode controls the content extraction strategy.
	// "readability" (default): main-article extraction → format conversion.
	// "raw": pass the full rendered HTML directly to format conversion.
	// "pruning": scoring-based boilerplate removal.
	// "auto": run readability and pruning, keep the better result.
	ExtractMode string `json:"extract_mode,omitempty" binding:"omitempty,oneof=readability raw pruning auto"`

	// CSSSelector is an optional CSS selector to filter HTML before cleaning.
	// When set, only the matched elements' outer HTML is passed to the pipeline.
	CSSSelector string `json:"css_selector,omitempty"`

	// IncludeTags keeps only elements matching these CSS selectors.
	IncludeTags []string `json:"include_tags,omitempty"`

	// ExcludeTags removes elements matching these CSS selectors before cleaning.
	ExcludeTags []string `json:"exclude_tags,omitempty"`

	// FetchMode overrides the server's configured fetch strategy for this
	// request. "auto": try HTTP first, escalate to the browser if the page
	// looks JS-gated. "http": force pure HTTP. "browser": force headless
	// Chrome. Empty: use the server default.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// Headers are extra HTTP headers sent with the page request.
	Headers map[string]string `json:"headers,omitempty"`

	// Cookies are installed in the browser before navigation.
	Cookies []Cookie `json:"cookies,omitempty"`

	// RemoveOverlays strips cookie banners and modal overlays after load.
	RemoveOverlays bool `json:"remove_overlays,omitempty"`

	// BlockAds blocks requests to known ad and tracking domains while the
	// page renders. Only applies to browser-based fetches.
	BlockAds bool `json:"block_ads,omitempty"`

	// MaxAge enables response caching: a cached result younger than MaxAge
	// milliseconds is returned without re-fetching. Zero disables caching.
	MaxAge int64 `json:"max_age,omitempty" binding:"omitempty,gte=0"`
}

// Defaults applies default values to unset fields.
func (r *ScrapeRequest) Defaults() {
	if r.Timeout == 0 {
		r.Timeout = 20
	}
	if r.OutputFormat == "" {
		r.OutputFormat = "markdown"
	}
	if r.ExtractMode == "" {
		r.ExtractMode = "readability"
	}
}
