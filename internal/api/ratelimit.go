// Rate limiter for guest endpoints that write to the hotel.
// One token bucket per IP address.
package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter allows each IP maxRate requests per window, refilled evenly.
type RateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	interval    time.Duration // time to earn one request back
	burst       int
	window      time.Duration
	now         func() time.Time
	lastCleanup time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing maxRate requests per window.
func NewRateLimiter(maxRate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors:    make(map[string]*visitor),
		interval:    window / time.Duration(maxRate),
		burst:       maxRate,
		window:      window,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// limiterFor returns the bucket for ip. Callers hold mu.
func (rl *RateLimiter) limiterFor(ip string, now time.Time) *rate.Limiter {
	if now.Sub(rl.lastCleanup) > rl.window {
		rl.cleanup(now)
	}
	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(rl.interval), rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Allow checks if the given IP is within rate limits.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	return rl.limiterFor(ip, now).AllowN(now, 1)
}

// RetryAfter returns how many seconds until ip may make another request.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		return 0
	}
	deficit := 1 - v.limiter.TokensAt(rl.now())
	if deficit <= 0 {
		return 0
	}
	wait := time.Duration(deficit * float64(rl.interval))
	return int(math.Ceil(wait.Seconds()))
}

// cleanup drops buckets idle for a full window; they would be full again
// anyway. Callers hold mu.
func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.window {
			delete(rl.visitors, ip)
		}
	}
	rl.lastCleanup = now
}

// clientIP prefers the first X-Forwarded-For hop, then the remote address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}
