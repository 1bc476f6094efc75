package engine

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Retirement thresholds for pooled pages. A page is recycled once it has
// accumulated too many failures, served too many fetches, or lived long
// enough to have collected whatever its visited sites leak.
const (
	retireStrikes = 3.0
	retireUses    = 50
	retireAge     = 50 * time.Minute
)

// PageHandle tracks the health of one pooled browser page. The pool owns
// the underlying resource; the handle carries its ID and usage history.
type PageHandle struct {
	ID      int64
	mu      sync.Mutex
	strikes float64
	uses    int
	born    time.Time
}

// NewPageHandle wraps a freshly created page.
func NewPageHandle(id int64) *PageHandle {
	return &PageHandle{ID: id, born: time.Now()}
}

// RecordSuccess counts a successful fetch. Each success works off half a
// strike, so a page recovers from occasional failures.
func (h *PageHandle) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uses++
	h.strikes = math.Max(0, h.strikes-0.5)
}

// RecordFailure counts a failed fetch as a full strike.
func (h *PageHandle) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uses++
	h.strikes++
}

// ShouldRetire reports whether the page crossed any retirement threshold.
func (h *PageHandle) ShouldRetire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.strikes >= retireStrikes ||
		h.uses >= retireUses ||
		time.Since(h.born) >= retireAge
}

// AdaptivePoolConfig bounds the pool and tunes its scaling.
type AdaptivePoolConfig struct {
	MinPages     int
	HardMax      int
	MemThreshold float64 // heap pressure above which the pool shrinks, 0..1
	ScaleStep    float64 // fraction of the pool resized per adjustment, 0..1
}

// PageFactory creates a page and returns its handle ID. PageDestroyer closes
// the page behind an ID. Both are injected by the scraper, which owns the
// actual browser.
type (
	PageFactory   func() (int64, error)
	PageDestroyer func(id int64)
)

// AdaptivePool keeps a set of reusable page handles, growing under load and
// shrinking under memory pressure. Handles are checked out with Get and
// returned with Put, which also retires unhealthy pages.
type AdaptivePool struct {
	cfg       AdaptivePoolConfig
	factory   PageFactory
	destroyer PageDestroyer

	ready  chan *PageHandle
	mu     sync.Mutex
	live   map[int64]*PageHandle
	active atomic.Int32
	done   chan struct{}
}

// NewAdaptivePool builds the pool, pre-creates MinPages pages, and starts
// the scaling loop.
func NewAdaptivePool(cfg AdaptivePoolConfig, factory PageFactory, destroyer PageDestroyer) (*AdaptivePool, error) {
	if cfg.MinPages < 1 {
		cfg.MinPages = 1
	}
	if cfg.HardMax < cfg.MinPages {
		cfg.HardMax = cfg.MinPages
	}
	if cfg.MemThreshold <= 0 {
		cfg.MemThreshold = 0.9
	}
	if cfg.ScaleStep <= 0 {
		cfg.ScaleStep = 0.05
	}

	ap := &AdaptivePool{
		cfg:       cfg,
		factory:   factory,
		destroyer: destroyer,
		ready:     make(chan *PageHandle, cfg.HardMax),
		live:      make(map[int64]*PageHandle),
		done:      make(chan struct{}),
	}

	for i := 0; i < cfg.MinPages; i++ {
		h, err := ap.spawn()
		if err != nil {
			slog.Warn("adaptive pool: pre-create failed", "error", err)
			continue
		}
		ap.ready <- h
	}

	go ap.scaleLoop()
	return ap, nil
}

// Get checks out a handle. An idle handle is preferred; below HardMax a new
// page is created on demand; at the cap Get blocks until a handle comes
// back or ctx ends.
func (ap *AdaptivePool) Get(ctx context.Context) (*PageHandle, error) {
	select {
	case h := <-ap.ready:
		ap.active.Add(1)
		return h, nil
	default:
	}

	if h, err := ap.spawnIfRoom(); err == nil && h != nil {
		ap.active.Add(1)
		return h, nil
	}

	select {
	case h := <-ap.ready:
		ap.active.Add(1)
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Put returns a handle after a fetch. Unhealthy handles are destroyed, and
// when that drops the pool below MinPages a replacement is created.
func (ap *AdaptivePool) Put(h *PageHandle, success bool) {
	ap.active.Add(-1)

	if success {
		h.RecordSuccess()
	} else {
		h.RecordFailure()
	}

	if !h.ShouldRetire() {
		ap.ready <- h
		return
	}

	slog.Debug("adaptive pool: retiring page",
		"id", h.ID, "strikes", h.strikes, "uses", h.uses)
	ap.retire(h)

	ap.mu.Lock()
	var fresh *PageHandle
	if len(ap.live) < ap.cfg.MinPages {
		fresh, _ = ap.spawnLocked()
	}
	ap.mu.Unlock()

	if fresh != nil {
		ap.ready <- fresh
	}
}

// Size returns the number of live pages, idle and checked out.
func (ap *AdaptivePool) Size() int {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return len(ap.live)
}

// ActiveCount returns how many handles are currently checked out.
func (ap *AdaptivePool) ActiveCount() int {
	return int(ap.active.Load())
}

// Stop ends the scaling loop and destroys every page.
func (ap *AdaptivePool) Stop() {
	close(ap.done)

	for {
		select {
		case h := <-ap.ready:
			ap.retire(h)
		default:
			ap.mu.Lock()
			for id := range ap.live {
				ap.destroyer(id)
				delete(ap.live, id)
			}
			ap.mu.Unlock()
			return
		}
	}
}

func (ap *AdaptivePool) spawn() (*PageHandle, error) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	return ap.spawnLocked()
}

// spawnLocked creates and tracks a page. Caller holds ap.mu.
func (ap *AdaptivePool) spawnLocked() (*PageHandle, error) {
	id, err := ap.factory()
	if err != nil {
		return nil, err
	}
	h := NewPageHandle(id)
	ap.live[id] = h
	return h, nil
}

// spawnIfRoom creates a page when the pool is under HardMax. At the cap it
// returns nil with no error.
func (ap *AdaptivePool) spawnIfRoom() (*PageHandle, error) {
	ap.mu.Lock()
	defer ap.mu.Unlock()
	if len(ap.live) >= ap.cfg.HardMax {
		return nil, nil
	}
	return ap.spawnLocked()
}

// retire unregisters the handle and destroys its page.
func (ap *AdaptivePool) retire(h *PageHandle) {
	ap.mu.Lock()
	delete(ap.live, h.ID)
	ap.mu.Unlock()
	ap.destroyer(h.ID)
}

// scaleLoop samples heap pressure and pool utilisation every ten seconds.
func (ap *AdaptivePool) scaleLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ap.done:
			return
		case <-ticker.C:
			ap.resize()
		}
	}
}

// resize shrinks the pool when the heap is under pressure and grows it when
// most pages are checked out. Both directions move by ScaleStep of the
// current size per tick.
func (ap *AdaptivePool) resize() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	pressure := 0.0
	if m.HeapSys > 0 {
		pressure = float64(m.HeapInuse) / float64(m.HeapSys)
	}

	total := ap.Size()
	step := int(math.Ceil(float64(total) * ap.cfg.ScaleStep))

	utilisation := 0.0
	if total > 0 {
		utilisation = float64(ap.ActiveCount()) / float64(total)
	}

	switch {
	case pressure > ap.cfg.MemThreshold:
		ap.shrink(step)
	case utilisation > 0.8:
		ap.grow(step)
	}
}

// shrink retires up to n idle pages, never going below MinPages.
func (ap *AdaptivePool) shrink(n int) {
	for i := 0; i < n; i++ {
		if ap.Size() <= ap.cfg.MinPages {
			return
		}
		select {
		case h := <-ap.ready:
			slog.Debug("adaptive pool: shrinking", "id", h.ID)
			ap.retire(h)
		default:
			return
		}
	}
}

// grow adds up to n pages, capped at HardMax.
func (ap *AdaptivePool) grow(n int) {
	for i := 0; i < n; i++ {
		h, err := ap.spawnIfRoom()
		if err != nil {
			slog.Warn("adaptive pool: grow failed", "error", err)
			return
		}
		if h == nil {
			return
		}
		slog.Debug("adaptive pool: grew", "id", h.ID)
		ap.ready <- h
	}
}
