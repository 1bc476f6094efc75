package crawler

// Frontier owns one crawl session's bookkeeping: the FIFO queue of URLs
// waiting to be fetched, the set of every URL ever discovered, and the set
// of URLs successfully visited together with their content. It is not safe
// for concurrent use; the crawl loop is its only mutator.
//
// Invariants held by construction: visited is a subset of discovered, every
// URL that ever entered the queue is in discovered, and the queue holds a
// URL at most once.
type Frontier struct {
	queue      []string
	discovered map[string]struct{}
	order      []string // discovered, in discovery order
	visited    map[string]struct{}
	content    *ContentStore
}

// NewFrontier returns an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		discovered: make(map[string]struct{}),
		visited:    make(map[string]struct{}),
		content:    NewContentStore(),
	}
}

// Seed registers the session's starting URL: it is marked discovered and
// queued first. Called once per session, before the loop starts.
func (f *Frontier) Seed(url string) {
	f.discovered[url] = struct{}{}
	f.order = append(f.order, url)
	f.queue = append(f.queue, url)
}

// PopNext removes and returns the head of the queue, or ok=false when the
// queue is empty.
func (f *Frontier) PopNext() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	url := f.queue[0]
	f.queue = f.queue[1:]
	return url, true
}

// MarkVisited records url as visited and stores its markup. The caller
// guarantees url has not been visited before.
func (f *Frontier) MarkVisited(url, markup string) {
	f.visited[url] = struct{}{}
	f.content.Set(url, markup)
}

// Visited reports whether url was already visited.
func (f *Frontier) Visited(url string) bool {
	_, ok := f.visited[url]
	return ok
}

// Offer enqueues url unless it was ever discovered before, and reports
// whether it was newly added. Offering a known URL (visited, queued, or
// previously offered) is a no-op.
func (f *Frontier) Offer(url string) bool {
	if _, ok := f.discovered[url]; ok {
		return false
	}
	f.discovered[url] = struct{}{}
	f.order = append(f.order, url)
	f.queue = append(f.queue, url)
	return true
}

// Done reports whether the session is finished: nothing left to fetch, or
// the page budget is spent.
func (f *Frontier) Done(maxPages int) bool {
	return len(f.queue) == 0 || len(f.visited) >= maxPages
}

// VisitedCount returns how many pages were successfully visited.
func (f *Frontier) VisitedCount() int { return len(f.visited) }

// DiscoveredCount returns how many distinct URLs were ever seen,
// including the seed.
func (f *Frontier) DiscoveredCount() int { return len(f.discovered) }

// QueueLen returns the number of URLs still waiting to be fetched.
func (f *Frontier) QueueLen() int { return len(f.queue) }

// RemainingQueue returns a copy of the pending queue in FIFO order.
func (f *Frontier) RemainingQueue() []string {
	out := make([]string, len(f.queue))
	copy(out, f.queue)
	return out
}

// DiscoveredURLs returns every URL ever seen, in discovery order.
func (f *Frontier) DiscoveredURLs() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Content returns the session's content store.
func (f *Frontier) Content() *ContentStore { return f.content }
