// Package ratelimit provides a fixed-window per-client request limiter.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// Limiter tracks request counts per client within a one-minute window.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*window
	limit        int
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type window struct {
	lastRequest time.Time
	requests    int
}

// New creates a limiter allowing requestsPerMinute per client and starts a
// background sweep of stale clients.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	l := &Limiter{
		clients:     make(map[string]*window),
		limit:       requestsPerMinute,
		stopCleanup: make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether one more request from clientIP fits the window.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.clients[clientIP]
	if !ok {
		l.clients[clientIP] = &window{lastRequest: now, requests: 1}
		return true
	}
	if now.Sub(w.lastRequest) > time.Minute {
		w.requests = 1
		w.lastRequest = now
		return true
	}
	w.requests++
	w.lastRequest = now
	return w.requests <= l.limit
}

// Middleware limits the wrapped handler, answering 429 with Retry-After when
// the window is exhausted.
func (l *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.dropStale()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range l.clients {
		if w.lastRequest.Before(cutoff) {
			delete(l.clients, ip)
		}
	}
}

// Stop terminates the background sweep.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}
