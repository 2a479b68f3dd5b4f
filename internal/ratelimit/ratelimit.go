// Package ratelimit throttles requests per client IP with token buckets.
package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/bookstore/internal/ipchecker"
	"github.com/patric-chuzhbe/bookstore/internal/logger"
	"github.com/patric-chuzhbe/bookstore/internal/models"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientIPResolver resolves the address a request is rate limited by.
type ClientIPResolver interface {
	ClientIP(request *http.Request) (net.IP, error)
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	now      func() time.Time
	clientIP func(request *http.Request) (net.IP, error)
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithClientIPResolver keys the buckets by resolver.ClientIP instead of the
// connection peer address. Pass an ipchecker.IPChecker with trusted proxies
// when the service runs behind a reverse proxy.
func WithClientIPResolver(resolver ClientIPResolver) Option {
	return func(rl *RateLimiter) {
		rl.clientIP = resolver.ClientIP
	}
}

// New creates a RateLimiter allowing requestsPerSecond with the given burst.
// A non-positive requestsPerSecond disables limiting.
func New(requestsPerSecond float64, burst int, opts ...Option) *RateLimiter {
	if burst < 1 {
		burst = 1
	}

	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
		clientIP: ipchecker.RemoteIP,
	}
	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

func (rl *RateLimiter) enabled() bool {
	return rl.rate > 0
}

// Allow reports whether a request from key may proceed right now.
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.enabled() {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Cleanup forgets visitors idle for longer than maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-maxIdle)
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup(interval)
			}
		}
	}()
}

func (rl *RateLimiter) retryAfterSeconds() int {
	return int(math.Ceil(1 / float64(rl.rate)))
}

// Handler answers 429 once a client IP runs out of tokens.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := r.RemoteAddr
		if clientIP, err := rl.clientIP(r); err == nil {
			key = clientIP.String()
		}

		if !rl.Allow(key) {
			logger.Log.Infoln("rate limit exceeded", "key", key, "path", r.URL.Path)

			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfterSeconds()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: "Too many requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
