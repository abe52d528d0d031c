// Package middleware provides HTTP middleware for the chat API.
package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter is per-client sliding-window rate limiting middleware.
// A client may make at most limit requests within any trailing window.
type RateLimiter struct {
	mu         sync.Mutex
	windows    map[string]*window
	limit      int
	span       time.Duration
	maxClients int // max tracked clients (prevents memory exhaustion)
	now        func() time.Time
	onReject   func(r *http.Request)
}

type window struct {
	timestamps []time.Time
	lastSeen   time.Time
}

// NewRateLimiter creates a rate limiter admitting at most limit requests
// per client within the trailing span.
func NewRateLimiter(limit int, span time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:    make(map[string]*window),
		limit:      limit,
		span:       span,
		maxClients: 100000,
		now:        time.Now,
	}
}

// OnReject registers a callback invoked for every rejected request,
// e.g. to count rejections in metrics. Must be set before serving.
func (rl *RateLimiter) OnReject(fn func(r *http.Request)) {
	rl.onReject = fn
}

// Allow reports whether a request from the given client is admitted,
// recording the request time on admission. remaining is the budget left
// after this request; retryAfter is how long until the oldest recorded
// request leaves the window.
func (rl *RateLimiter) Allow(clientID string) (remaining int, retryAfter time.Duration, allowed bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.windows[clientID]
	if !exists {
		if len(rl.windows) >= rl.maxClients {
			return 0, rl.span, false // reject when at capacity
		}
		w = &window{}
		rl.windows[clientID] = w
	}
	w.lastSeen = now

	// Prune timestamps older than the window before the admission check.
	cutoff := now.Add(-rl.span)
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept

	if len(w.timestamps) >= rl.limit {
		oldest := w.timestamps[0]
		return 0, oldest.Sub(cutoff), false
	}

	w.timestamps = append(w.timestamps, now)
	return rl.limit - len(w.timestamps), 0, true
}

// Handler returns HTTP middleware that enforces per-client rate limiting.
// Rejections answer 429 with a user-facing message; the core schedules
// no retry on the client's behalf.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, allowed := rl.Allow(realIP(r))

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			if rl.onReject != nil {
				rl.onReject(r)
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Too many requests. Please wait a moment before trying again."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StartCleanup spawns a goroutine that removes stale client windows every
// interval. A window is stale if the client has not been seen for longer
// than maxIdle. Returns a cancel function that stops the goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

// cleanup removes windows idle longer than maxIdle.
func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for id, w := range rl.windows {
		if w.lastSeen.Before(cutoff) {
			delete(rl.windows, id)
		}
	}
}

// Len returns the number of tracked clients (for metrics and testing).
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// realIP extracts the client IP from RemoteAddr.
// Proxy headers (X-Forwarded-For, X-Real-Ip) are NOT trusted because
// they can be spoofed by attackers to bypass rate limiting.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
