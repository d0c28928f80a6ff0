package server

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"digifootprint/internal/cache"
)

// clientLimiter allows max requests per window for each client IP. Buckets
// are dropped a window after creation, which resets the client's budget.
type clientLimiter struct {
	limit   rate.Limit
	burst   int
	window  time.Duration
	message string
	trust   bool
	buckets *cache.Cache[*rate.Limiter]
}

func newClientLimiter(name string, max int, window time.Duration, trustProxy bool, message string) *clientLimiter {
	return &clientLimiter{
		limit:   rate.Limit(float64(max) / window.Seconds()),
		burst:   max,
		window:  window,
		message: message,
		trust:   trustProxy,
		buckets: cache.New[*rate.Limiter]("ratelimit_"+name, window, cache.WithMaxSize(50000)),
	}
}

func (l *clientLimiter) allow(ip string) (bool, time.Duration) {
	lim, _ := l.buckets.GetOrCompute(context.Background(), ip, func(context.Context) (*rate.Limiter, error) {
		return rate.NewLimiter(l.limit, l.burst), nil
	})
	r := lim.Reserve()
	if !r.OK() {
		return false, l.window
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d
	}
	return true, 0
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, retry := l.allow(clientIP(r, l.trust))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			writeError(w, http.StatusTooManyRequests, l.message, "")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the socket address host. With trustProxy set it trusts one
// proxy hop, and the last X-Forwarded-For entry wins.
func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
