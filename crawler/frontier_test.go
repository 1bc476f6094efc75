package crawler

import (
	"fmt"
	"testing"
)

func TestFrontier_FIFOOrder(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://x.com/")
	f.Offer("https://x.com/b")
	f.Offer("https://x.com/c")

	want := []string{"https://x.com/", "https://x.com/b", "https://x.com/c"}
	for i, w := range want {
		url, ok := f.PopNext()
		if !ok {
			t.Fatalf("pop %d: queue unexpectedly empty", i)
		}
		if url != w {
			t.Errorf("pop %d = %q, want %q", i, url, w)
		}
	}
	if _, ok := f.PopNext(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestFrontier_OfferIsIdempotent(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://x.com/")

	if !f.Offer("https://x.com/b") {
		t.Error("first offer should report newly added")
	}
	if f.Offer("https://x.com/b") {
		t.Error("second offer of the same URL should be a no-op")
	}
	if f.Offer("https://x.com/") {
		t.Error("offering the seed should be a no-op")
	}

	if got := f.DiscoveredCount(); got != 2 {
		t.Errorf("DiscoveredCount = %d, want 2", got)
	}
	if got := f.QueueLen(); got != 2 {
		t.Errorf("QueueLen = %d, want 2 (seed + one offer)", got)
	}
}

func TestFrontier_OfferAfterVisitIsNoOp(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://x.com/")
	url, _ := f.PopNext()
	f.MarkVisited(url, "<html></html>")

	if f.Offer(url) {
		t.Error("offering a visited URL should be a no-op")
	}
	if got := f.QueueLen(); got != 0 {
		t.Errorf("QueueLen = %d, want 0", got)
	}
}

func TestFrontier_VisitedSubsetOfDiscovered(t *testing.T) {
	f := NewFrontier()
	f.Seed("https://x.com/")
	for i := 0; i < 5; i++ {
		f.Offer(fmt.Sprintf("https://x.com/p%d", i))
	}

	discovered := make(map[string]bool)
	for _, u := range f.DiscoveredURLs() {
		discovered[u] = true
	}

	// Everything queued is discovered.
	for _, u := range f.RemainingQueue() {
		if !discovered[u] {
			t.Errorf("queued URL %q missing from discovered", u)
		}
	}

	// Everything visited is discovered.
	for i := 0; i < 3; i++ {
		u, ok := f.PopNext()
		if !ok {
			t.Fatal("queue drained early")
		}
		f.MarkVisited(u, "<html></html>")
	}
	for _, u := range f.Content().URLs() {
		if !discovered[u] {
			t.Errorf("visited URL %q missing from discovered", u)
		}
	}
}

func TestFrontier_Done(t *testing.T) {
	f := NewFrontier()
	if !f.Done(10) {
		t.Error("empty frontier should be done")
	}

	f.Seed("https://x.com/")
	if f.Done(10) {
		t.Error("seeded frontier with budget left should not be done")
	}

	url, _ := f.PopNext()
	f.MarkVisited(url, "<html></html>")
	f.Offer("https://x.com/b")
	if !f.Done(1) {
		t.Error("frontier at page budget should be done even with queued URLs")
	}
	if f.Done(2) {
		t.Error("frontier under budget with queued URLs should not be done")
	}
}

func TestContentStore_InsertionOrderAndFirstWriteWins(t *testing.T) {
	s := NewContentStore()
	s.Set("https://x.com/a", "<html>a</html>")
	s.Set("https://x.com/b", "<html>b</html>")
	s.Set("https://x.com/a", "<html>overwrite</html>")

	if got := s.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	urls := s.URLs()
	if urls[0] != "https://x.com/a" || urls[1] != "https://x.com/b" {
		t.Errorf("URLs out of order: %v", urls)
	}

	if markup, ok := s.Get("https://x.com/a"); !ok || markup != "<html>a</html>" {
		t.Errorf("first write should win, got %q", markup)
	}
	if _, ok := s.Get("https://x.com/missing"); ok {
		t.Error("Get of unknown URL should report !ok")
	}
}
