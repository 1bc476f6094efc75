package crawler

// Page is one crawled page: the URL that was fetched and the raw markup
// the fetcher returned for it.
type Page struct {
	URL  string
	HTML string
}

// ContentStore maps visited URLs to their raw markup in visitation order.
// Entries are append-only; the first write for a URL wins.
type ContentStore struct {
	pages []Page
	index map[string]int
}

// NewContentStore returns an empty store.
func NewContentStore() *ContentStore {
	return &ContentStore{index: make(map[string]int)}
}

// Set records markup for url. A repeated url is ignored; a URL is visited
// at most once, so a second write indicates a caller bug, not new data.
func (s *ContentStore) Set(url, markup string) {
	if _, ok := s.index[url]; ok {
		return
	}
	s.index[url] = len(s.pages)
	s.pages = append(s.pages, Page{URL: url, HTML: markup})
}

// Get returns the markup stored for url.
func (s *ContentStore) Get(url string) (string, bool) {
	i, ok := s.index[url]
	if !ok {
		return "", false
	}
	return s.pages[i].HTML, true
}

// Len returns the number of stored pages.
func (s *ContentStore) Len() int { return len(s.pages) }

// Pages returns the stored pages in visitation order.
func (s *ContentStore) Pages() []Page {
	out := make([]Page, len(s.pages))
	copy(out, s.pages)
	return out
}

// URLs returns the visited URLs in visitation order.
func (s *ContentStore) URLs() []string {
	out := make([]string, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p.URL)
	}
	return out
}
