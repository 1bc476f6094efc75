package engine

import (
	"sync"
	"time"
)

// sweepInterval is how often stale domain preferences are purged in bulk.
// Get drops stale entries lazily, so the sweep only bounds memory held for
// domains that are never asked about again.
const sweepInterval = time.Hour

// DomainMemory remembers which engine last succeeded for each domain, so the
// dispatcher can start there instead of walking the escalation ladder again.
// Entries go stale after the configured TTL.
type DomainMemory struct {
	mu    sync.RWMutex
	prefs map[string]preference
	ttl   time.Duration
	stop  chan struct{}
}

type preference struct {
	engine  string
	staleAt time.Time
}

// NewDomainMemory builds the memory and starts its background sweep.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		prefs: make(map[string]preference),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	go dm.sweep()
	return dm
}

// Get returns the remembered engine name for domain, or "" when nothing is
// recorded or the record has gone stale.
func (dm *DomainMemory) Get(domain string) string {
	dm.mu.RLock()
	p, ok := dm.prefs[domain]
	dm.mu.RUnlock()

	if !ok {
		return ""
	}
	if time.Now().After(p.staleAt) {
		dm.Delete(domain)
		return ""
	}
	return p.engine
}

// Set records the engine that just succeeded for domain.
func (dm *DomainMemory) Set(domain, engineName string) {
	dm.mu.Lock()
	dm.prefs[domain] = preference{
		engine:  engineName,
		staleAt: time.Now().Add(dm.ttl),
	}
	dm.mu.Unlock()
}

// Delete forgets the preference for domain, typically after the remembered
// engine starts failing.
func (dm *DomainMemory) Delete(domain string) {
	dm.mu.Lock()
	delete(dm.prefs, domain)
	dm.mu.Unlock()
}

// Stop ends the background sweep.
func (dm *DomainMemory) Stop() {
	close(dm.stop)
}

func (dm *DomainMemory) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-dm.stop:
			return
		case <-ticker.C:
			now := time.Now()
			dm.mu.Lock()
			for domain, p := range dm.prefs {
				if now.After(p.staleAt) {
					delete(dm.prefs, domain)
				}
			}
			dm.mu.Unlock()
		}
	}
}
