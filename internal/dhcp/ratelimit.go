package dhcp

import (
	"net"
	"sync"
	"time"

	"github.com/athena-dhcpd/dhcpwire/internal/config"
)

// staleAfter is how long an idle per-MAC bucket is kept.
const staleAfter = 30 * time.Second

// RateLimiter provides token-bucket rate limiting for DHCPDISCOVER.
// Limits both global discovers/sec and per-MAC discovers/sec.
type RateLimiter struct {
	enabled        bool
	globalLimit    int
	perMACLimit    int
	globalTokens   int
	perMAC         map[string]*macBucket
	mu             sync.Mutex
	lastRefill     time.Time
	refillInterval time.Duration
	now            func() time.Time
}

type macBucket struct {
	tokens   int
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter from the [server.rate_limit] section.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	globalLimit := cfg.MaxDiscoversPerSecond
	if globalLimit <= 0 {
		globalLimit = config.DefaultRateLimitDiscovers
	}
	perMACLimit := cfg.MaxPerMACPerSecond
	if perMACLimit <= 0 {
		perMACLimit = config.DefaultRateLimitPerMAC
	}
	return &RateLimiter{
		enabled:        cfg.Enabled,
		globalLimit:    globalLimit,
		perMACLimit:    perMACLimit,
		globalTokens:   globalLimit,
		perMAC:         make(map[string]*macBucket),
		lastRefill:     time.Now(),
		refillInterval: time.Second,
		now:            time.Now,
	}
}

// Allow checks if a request from the given MAC is permitted.
func (r *RateLimiter) Allow(mac net.HardwareAddr) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.refill(now)

	if r.globalTokens <= 0 {
		return false
	}

	key := mac.String()
	bucket, exists := r.perMAC[key]
	if !exists {
		bucket = &macBucket{tokens: r.perMACLimit}
		r.perMAC[key] = bucket
	}
	bucket.lastSeen = now
	if bucket.tokens <= 0 {
		return false
	}

	r.globalTokens--
	bucket.tokens--
	return true
}

// refill adds tokens back for every whole interval since the last refill
// and forgets idle MACs.
func (r *RateLimiter) refill(now time.Time) {
	intervals := int(now.Sub(r.lastRefill) / r.refillInterval)
	if intervals <= 0 {
		return
	}
	r.lastRefill = r.lastRefill.Add(time.Duration(intervals) * r.refillInterval)

	r.globalTokens = min(r.globalTokens+r.globalLimit*intervals, r.globalLimit)

	for key, bucket := range r.perMAC {
		if now.Sub(bucket.lastSeen) > staleAfter {
			delete(r.perMAC, key)
			continue
		}
		bucket.tokens = min(bucket.tokens+r.perMACLimit*intervals, r.perMACLimit)
	}
}

// Stats returns current rate limiter statistics.
func (r *RateLimiter) Stats() (globalTokens int, trackedMACs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.globalTokens, len(r.perMAC)
}
