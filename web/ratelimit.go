package web

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/relabs-tech/vitrine/core/logger"
)

// RateLimiter throttles requests per client address
type RateLimiter struct {
	mutex    sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
	now      func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter allowing requestsPerMinute with the given burst per client
func NewRateLimiter(requestsPerMinute float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(requestsPerMinute / 60),
		burst:    burst,
		now:      time.Now,
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	now := rl.now()
	c, ok := rl.limiters[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Cleanup forgets clients which have not been seen for maxIdle
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for key, c := range rl.limiters {
		if c.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Handler is a middleware answering http.StatusTooManyRequests once a client exceeds its rate
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientAddress(r)
		if !rl.allow(key) {
			logger.FromContext(r.Context()).Warnf("rate limit exceeded by %s for %s %s", key, r.Method, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeErrorMessage(w, http.StatusTooManyRequests, "Muitas requisições. Aguarde um momento e tente novamente.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
