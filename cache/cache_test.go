package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/use-agent/pageminer/models"
)

func TestKey_DistinguishesRequestDimensions(t *testing.T) {
	base := Key("https://example.com", "markdown", "readability", "")

	variants := []string{
		Key("https://example.com/other", "markdown", "readability", ""),
		Key("https://example.com", "text", "readability", ""),
		Key("https://example.com", "markdown", "raw", ""),
		Key("https://example.com", "markdown", "readability", "article.main"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d produced the same key as the base request", i)
		}
	}

	if again := Key("https://example.com", "markdown", "readability", ""); again != base {
		t.Error("identical requests produced different keys")
	}
}

func TestCache_GetSetRoundTrip(t *testing.T) {
	c := New(10)
	defer c.Close()

	key := Key("https://example.com", "markdown", "readability", "")
	c.Set(key, &models.ScrapeResponse{Success: true, Content: "hello"})

	got, hit := c.Get(key, 60_000)
	if !hit {
		t.Fatal("expected cache hit")
	}
	if got.Content != "hello" {
		t.Errorf("cached content = %q, want %q", got.Content, "hello")
	}
}

func TestCache_MissWithoutMaxAge(t *testing.T) {
	c := New(10)
	defer c.Close()

	key := Key("https://example.com", "markdown", "readability", "")
	c.Set(key, &models.ScrapeResponse{Success: true})

	if _, hit := c.Get(key, 0); hit {
		t.Error("maxAge=0 must bypass the cache")
	}
	if _, hit := c.Get(key, -1); hit {
		t.Error("negative maxAge must bypass the cache")
	}
}

func TestCache_ExpiredEntryMisses(t *testing.T) {
	c := New(10)
	defer c.Close()

	key := Key("https://example.com", "markdown", "readability", "")
	c.Set(key, &models.ScrapeResponse{Success: true})

	// Backdate the entry past any reasonable maxAge.
	c.mu.Lock()
	c.store[key].createdAt = time.Now().Add(-2 * time.Hour)
	c.mu.Unlock()

	if _, hit := c.Get(key, 1000); hit {
		t.Error("expired entry must miss")
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := New(10)
	defer c.Close()

	key := Key("https://example.com", "markdown", "readability", "")
	c.Set(key, &models.ScrapeResponse{Success: true})

	first, _ := c.Get(key, 60_000)
	first.CacheStatus = "hit"

	second, _ := c.Get(key, 60_000)
	if second.CacheStatus != "" {
		t.Error("annotating a cached response mutated the stored entry")
	}
}

func TestCache_EvictsAtCapacity(t *testing.T) {
	c := New(3)
	defer c.Close()

	for i := 0; i < 5; i++ {
		key := Key(fmt.Sprintf("https://example.com/%d", i), "markdown", "readability", "")
		c.Set(key, &models.ScrapeResponse{Success: true})
	}

	if got := c.Len(); got != 3 {
		t.Errorf("Len() = %d after overfilling, want capacity 3", got)
	}
}
