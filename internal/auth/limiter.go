package auth

import (
	"math"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// sweepThreshold is the entry count above which expired windows are dropped.
const sweepThreshold = 4096

type bucket struct {
	count int
	reset time.Time
}

// Limiter is a fixed-window request counter keyed by client and scope.
// The first request of a window starts it; once max requests were allowed,
// further requests are refused until the window ends.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string]*bucket
	now     func() time.Time
}

// NewLimiter creates a limiter allowing max requests per window.
func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		entries: make(map[string]*bucket),
		now:     time.Now,
	}
}

// SetClock replaces the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// Allow records a request for key. When refused, retryAfter is the whole
// number of seconds until the window resets.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.reset) {
		if len(l.entries) >= sweepThreshold {
			l.sweep(now)
		}
		l.entries[key] = &bucket{count: 1, reset: now.Add(l.window)}
		return true, 0
	}
	if entry.count >= l.max {
		wait := entry.reset.Sub(now).Seconds()
		return false, int(math.Max(0, math.Ceil(wait)))
	}
	entry.count++
	return true, 0
}

func (l *Limiter) sweep(now time.Time) {
	for k, e := range l.entries {
		if now.After(e.reset) {
			delete(l.entries, k)
		}
	}
}

// ClientIP returns the first X-Forwarded-For entry, else the remote host.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
