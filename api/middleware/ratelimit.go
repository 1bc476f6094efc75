package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/use-agent/pageminer/config"
	"github.com/use-agent/pageminer/models"
)

// limiterPool hands out one token bucket per client identity and evicts
// buckets that sit idle for an hour.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rps     float64
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(cfg config.RateLimitConfig) *limiterPool {
	p := &limiterPool{
		buckets: make(map[string]*clientBucket),
		rps:     cfg.RequestsPerSecond,
		burst:   cfg.Burst,
	}
	go p.evictIdle()
	return p
}

func (p *limiterPool) get(identity string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[identity]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(p.rps), p.burst)}
		p.buckets[identity] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// evictIdle sweeps every five minutes. Without it the pool would hold one
// bucket for every IP ever seen.
func (p *limiterPool) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		p.mu.Lock()
		for id, b := range p.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(p.buckets, id)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit returns token-bucket rate limiting middleware backed by
// golang.org/x/time/rate. Requests are keyed by API key when auth ran
// first, and by client IP otherwise.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	return func(c *gin.Context) {
		identity := c.ClientIP()
		if key, ok := c.Get("api_key"); ok {
			identity = key.(string)
		}

		if !pool.get(identity).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}
