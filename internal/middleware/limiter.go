package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"dishdash-be/internal/utils"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Login / register (Strict)
	limitStrict = rate.Limit(2)
	burstStrict = 5

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps
	limitFrontend = rate.Limit(20)
	burstFrontend = 40
)

const visitorIdle = 3 * time.Minute

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	trusted  []*net.IPNet
	now      func() time.Time
}

// NewRateLimiter starts the background cleanup routine, which stops when ctx
// is done. Only requests arriving from trusted proxies are keyed by their
// X-Forwarded-For address.
func NewRateLimiter(ctx context.Context, trusted ...*net.IPNet) *RateLimiter {
	rl := &RateLimiter{visitors: make(map[string]*visitor), trusted: trusted, now: time.Now}
	go rl.cleanupLoop(ctx)
	return rl
}

// visitorLimiter retrieves or creates the limiter for key.
func (rl *RateLimiter) visitorLimiter(key string, r rate.Limit, b int) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		rl.visitors[key] = &visitor{limiter, rl.now()}
		return limiter
	}

	v.lastSeen = rl.now()
	return v.limiter
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes idle entries from the visitors map.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		if rl.now().Sub(v.lastSeen) > visitorIdle {
			delete(rl.visitors, key)
		}
	}
}

// Middleware rejects requests over the caller's quota with 429. Authenticated
// callers are keyed by account, everyone else by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		var identity string
		if p, ok := utils.PrincipalFrom(r.Context()); ok {
			identity = "account:" + p.AccountID
		} else {
			identity = "ip:" + utils.ClientIP(r, rl.trusted...)
		}

		// Same caller gets separate quotas per tier, e.g. "account:1:strict".
		key := identity + ":" + tier

		if !rl.visitorLimiter(key, limit, burst).Allow() {
			utils.WriteJSONError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	switch r.URL.Path {
	case "/api/auth/login", "/api/auth/register":
		return limitStrict, burstStrict, "strict"
	}

	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	return limitGeneral, burstGeneral, "general"
}
