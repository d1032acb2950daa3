package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	visitors sync.Map // map[string]*visitor
	limit    rate.Limit
	burst    int
	window   time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
	evicted  bool
}

// NewRateLimiter allows requests per window for each client. A zero
// requests value disables limiting.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{burst: requests, window: window}
	if requests > 0 && window > 0 {
		rl.limit = rate.Limit(float64(requests) / window.Seconds())
	}
	return rl
}

func (rl *RateLimiter) enabled() bool {
	return rl != nil && rl.burst > 0 && rl.limit > 0
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	for {
		val, ok := rl.visitors.Load(ip)
		if !ok {
			val, _ = rl.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)})
		}
		v := val.(*visitor)
		v.mu.Lock()
		if v.evicted {
			// Swept between Load and Lock; take the replacement entry.
			v.mu.Unlock()
			continue
		}
		v.lastSeen = now
		v.mu.Unlock()
		return v.limiter.AllowN(now, 1)
	}
}

// Sweep forgets clients idle for more than two windows.
func (rl *RateLimiter) Sweep(now time.Time) {
	rl.visitors.Range(func(key, value interface{}) bool {
		v := value.(*visitor)
		v.mu.Lock()
		if now.Sub(v.lastSeen) > 2*rl.window {
			v.evicted = true
			rl.visitors.Delete(key)
		}
		v.mu.Unlock()
		return true
	})
}

// Run sweeps idle clients every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	if !rl.enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.Sweep(now)
		case <-ctx.Done():
			return
		}
	}
}

// clientIP returns the originating client address. Behind a reverse proxy
// the first X-Forwarded-For entry wins, then X-Real-IP.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
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

// Middleware rejects clients that exceeded their budget with 429.
func (rl *RateLimiter) Middleware(h http.HandlerFunc) http.HandlerFunc {
	if !rl.enabled() {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r), time.Now()) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		h(w, r)
	}
}
