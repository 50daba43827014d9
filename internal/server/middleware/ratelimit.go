package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit returns middleware that applies per-client rate limiting. Each
// unique client IP gets its own token bucket allowing `limit` requests per
// `window`, with a burst of `limit`.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	limiters := &clientLimiters{
		buckets: make(map[string]*clientBucket),
		rate:    rate.Every(window / time.Duration(limit)),
		burst:   limit,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiters.allow(extractClientIP(r)) {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// staleAfter is how long an idle client's bucket is retained.
const staleAfter = 10 * time.Minute

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientLimiters struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	rate    rate.Limit
	burst   int
}

func (c *clientLimiters) allow(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	b, ok := c.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(c.rate, c.burst)}
		c.buckets[ip] = b
		c.evictStale(now)
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// evictStale drops buckets for clients not seen recently. Called with the
// mutex held, on the new-client path only.
func (c *clientLimiters) evictStale(now time.Time) {
	for ip, b := range c.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(c.buckets, ip)
		}
	}
}

// extractClientIP attempts to determine the real client IP from standard
// proxy headers, falling back to the direct remote address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		ip := strings.TrimSpace(parts[0])
		if ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
