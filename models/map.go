package models

// MapRequest is the payload for POST /api/v1/map.
//
// Map runs a link-discovery crawl: pages are fetched and their links
// followed under the same frontier rules as a content crawl, but the
// response carries only the discovered URLs.
type MapRequest struct {
	// URL is the site to discover URLs for. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxPages caps how many pages the discovery crawl may fetch.
	// Default: 10. Max: 500.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=1,max=500"`

	// SameDomainOnly restricts discovery to the seed's host. Default: true.
	SameDomainOnly *bool `json:"same_domain_only,omitempty"`

	// FetchMode controls how pages are fetched ("auto", "http", "browser").
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`
}

// MapResponse is the response for POST /api/v1/map.
type MapResponse struct {
	Success bool         `json:"success"`
	URLs    []string     `json:"urls"`
	Total   int          `json:"total"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
