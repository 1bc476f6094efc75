package scraper

// ScrapeResult is the unified return type for all scraping paths.
type ScrapeResult struct {
	// HTML is the rendered page HTML.
	HTML string

	// Title is the page title.
	Title string

	// StatusCode is the HTTP status of the navigation, or 0 if unknown.
	StatusCode int

	// FinalURL is the URL after redirects.
	FinalURL string

	// EngineUsed records which fetch engine produced the result
	// ("http", "rod", "rod-stealth", or "browser" for the direct path).
	EngineUsed string
}
