package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter is a fixed-window counter per (identity-or-IP) key,
// guarded by a single mutex. Request volume per gateway instance is
// low enough that sharding the lock the way the wallet store shards
// by DID isn't worth the complexity here.
type rateLimiter struct {
	max    int
	window time.Duration
	mu     sync.Mutex
	counts map[string]*windowCount
}

type windowCount struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	if max <= 0 {
		max = 120
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{max: max, window: window, counts: make(map[string]*windowCount)}
}

// allow increments key's counter for the current window and reports
// whether the request is within budget, the remaining budget, and the
// time until the window resets.
func (rl *rateLimiter) allow(key string) (ok bool, remaining int, resetIn time.Duration) {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, found := rl.counts[key]
	if !found || now.After(wc.resetAt) {
		wc = &windowCount{count: 0, resetAt: now.Add(rl.window)}
		rl.counts[key] = wc
	}
	wc.count++
	remaining = rl.max - wc.count
	if remaining < 0 {
		remaining = 0
	}
	return wc.count <= rl.max, remaining, wc.resetAt.Sub(now)
}

func (h *Handler) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rateLimitKey(r)
		ok, remaining, resetIn := h.rateLimiter.allow(key)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.rateLimiter.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(resetIn.Seconds())))
			h.writeError(w, r, rateLimitedError(resetIn))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) string {
	if did := identityFromContext(r.Context()); did != "" {
		return "did:" + did
	}
	if agentDID := r.Header.Get("X-Agent-DID"); agentDID != "" {
		return "did:" + agentDID
	}
	return "ip:" + r.RemoteAddr
}
