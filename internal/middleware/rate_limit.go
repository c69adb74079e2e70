package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type windowCounter struct {
	count      int
	windowEnds time.Time
}

// IPRateLimiter counts requests per client IP in fixed windows. The entry
// map is capped so a scan across many source addresses cannot grow it
// without bound.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	counters   map[string]windowCounter
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return NewIPRateLimiterWithMaxEntries(limit, window, 10000)
}

func NewIPRateLimiterWithMaxEntries(limit int, window time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     window,
		maxEntries: maxEntries,
		counters:   map[string]windowCounter{},
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r.RemoteAddr)
			if ip == "" {
				ip = "unknown"
			}

			if !rl.allow(ip) {
				writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, known := rl.counters[ip]
	if entry.windowEnds.Before(now) {
		entry = windowCounter{windowEnds: now.Add(rl.window)}
	}
	entry.count++

	if !known && len(rl.counters) >= rl.maxEntries {
		rl.evictLocked(now)
	}
	rl.counters[ip] = entry

	return entry.count <= rl.limit
}

// evictLocked drops expired windows, then the oldest entry if the map is
// still full. Caller holds rl.mu.
func (rl *IPRateLimiter) evictLocked(now time.Time) {
	for ip, entry := range rl.counters {
		if entry.windowEnds.Before(now) {
			delete(rl.counters, ip)
		}
	}
	if len(rl.counters) < rl.maxEntries {
		return
	}
	var oldestIP string
	var oldest time.Time
	for ip, entry := range rl.counters {
		if oldestIP == "" || entry.windowEnds.Before(oldest) {
			oldestIP = ip
			oldest = entry.windowEnds
		}
	}
	if oldestIP != "" {
		delete(rl.counters, oldestIP)
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
