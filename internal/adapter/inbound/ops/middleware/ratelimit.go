package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonny/askuser-bot/pkg/apierror"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket.
type RateLimiter struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	buckets    map[string]*bucket
	capacity   float64
	perNano    float64
	maxBuckets int
}

// NewRateLimiter allows perMinute requests per remote IP with a burst of the same size.
func NewRateLimiter(perMinute int, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		clock:      clock,
		buckets:    make(map[string]*bucket),
		capacity:   float64(perMinute),
		perNano:    float64(perMinute) / float64(time.Minute),
		maxBuckets: 4096,
	}
}

// Allow takes one token from ip's bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	b, ok := rl.buckets[ip]
	if !ok {
		if len(rl.buckets) >= rl.maxBuckets {
			return false
		}
		b = &bucket{tokens: rl.capacity, lastSeen: now}
		rl.buckets[ip] = b
	}

	b.tokens += float64(now.Sub(b.lastSeen)) * rl.perNano
	if b.tokens > rl.capacity {
		b.tokens = rl.capacity
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Evict drops buckets idle for longer than maxAge.
func (rl *RateLimiter) Evict(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-maxAge)
	for ip, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, ip)
		}
	}
}

// RunEviction evicts idle buckets every interval until ctx is done.
func (rl *RateLimiter) RunEviction(ctx context.Context, interval time.Duration) {
	ticker := rl.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			rl.Evict(2 * interval)
		}
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(remoteIP(r)) {
			w.Header().Set("Retry-After", "60")
			apierror.Write(w, apierror.TooManyRequests())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
