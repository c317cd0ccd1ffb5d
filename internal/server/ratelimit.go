package server

import (
	"net"
	"net/http"
	"sync"

	errordefs "github.com/RegistryAccord/registryaccord-storefront-go/internal/errors"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table; it is reset when exceeded.
const maxTrackedClients = 10000

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// newRateLimiter returns nil when rps is 0, which disables limiting.
func newRateLimiter(rps, burst int) *rateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// allow reports whether the client identified by key may proceed.
func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		if len(rl.limiters) >= maxTrackedClients {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter.Allow()
}

// clientKey identifies the caller by host, without the ephemeral port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimited rejects callers that exceeded their budget with 429.
func (m *Mux) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	if m.limiter == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.allow(clientKey(r)) {
			m.writeErrorDef(w, errordefs.New(errordefs.SF_RATE_LIMIT, "Too many requests"))
			return
		}
		h(w, r)
	}
}
