package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Mahaan-Amr/servaan-sub004/internal/domain"
)

// RateLimitConfig holds the token-bucket parameters applied per caller.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the bucket capacity.
	Burst int
}

// How long an idle caller's bucket is kept before the sweeper drops it.
const (
	bucketIdleTTL  = 10 * time.Minute
	sweepInterval  = 5 * time.Minute
	retryAfterSecs = 1
)

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles report traffic per caller. Requests carrying an
// authenticated identity share one bucket per tenant, so a single tenant
// hammering the execute endpoint cannot starve the others. Anonymous traffic
// falls back to a bucket per client address.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*bucket)
	)

	go func() {
		for range time.Tick(sweepInterval) {
			mu.Lock()
			for key, b := range buckets {
				if time.Since(b.lastSeen) > bucketIdleTTL {
					delete(buckets, key)
				}
			}
			mu.Unlock()
		}
	}()

	acquire := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{lim: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			buckets[key] = b
		}
		b.lastSeen = time.Now()
		return b.lim
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lim := acquire(throttleKey(r))

			if !lim.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(lim.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// throttleKey prefers the authenticated tenant. Anonymous traffic is keyed by
// the transport address; X-Forwarded-For is untrusted and ignored so a spoofed
// header cannot mint a fresh bucket.
func throttleKey(r *http.Request) string {
	if id, ok := domain.IdentityFromContext(r.Context()); ok && id.TenantID != "" {
		return "tenant:" + id.TenantID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
