package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/pageminer/models"
)

// Sweep cadence and hard entry lifetime for the background janitor. Get
// applies the caller's max_age on top, so the janitor only caps how long a
// dead entry can occupy memory.
const (
	sweepEvery  = 5 * time.Minute
	maxLifetime = time.Hour
)

type entry struct {
	response  *models.ScrapeResponse
	createdAt time.Time
}

// Cache holds recently scraped responses in memory, keyed by the request
// dimensions that change the output. Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	done       chan struct{}
}

// New builds a Cache capped at maxEntries and starts its janitor.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Key hashes the request dimensions that affect the response: URL, output
// format, extract mode, and CSS selector.
func Key(url, outputFormat, extractMode, selector string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{url, outputFormat, extractMode, selector}, "|")))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of the cached response for key when one exists no
// older than maxAgeMs milliseconds. maxAgeMs <= 0 always misses; the copy
// lets callers annotate the result without touching the stored entry.
func (c *Cache) Get(key string, maxAgeMs int64) (*models.ScrapeResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || time.Since(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}

	cp := *e.response
	return &cp, true
}

// Set stores resp under key. At capacity one arbitrary entry is dropped
// first; Go's random map iteration picks the victim.
func (c *Cache) Set(key string, resp *models.ScrapeResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.store) >= c.maxEntries {
		for victim := range c.store {
			delete(c.store, victim)
			break
		}
	}

	c.store[key] = &entry{response: resp, createdAt: time.Now()}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the janitor.
func (c *Cache) Close() {
	close(c.done)
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-maxLifetime)
			c.mu.Lock()
			for k, e := range c.store {
				if e.createdAt.Before(cutoff) {
					delete(c.store, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
