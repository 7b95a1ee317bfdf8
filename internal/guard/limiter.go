package guard

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const limitKeyPrefix = "rl:"

// Limiter enforces fixed-window rate limits on shared Redis counters, so
// every server process observes the same counts. INCR is the atomic
// read-increment; two concurrent requests can never both observe the last
// free slot.
type Limiter struct {
	rdb           *redis.Client
	window        time.Duration
	max           int
	slowdownAfter int
	slowdownStep  time.Duration
	slowdownMax   time.Duration
}

// Decision is the outcome of a single admission check.
type Decision struct {
	Count      int64
	RetryAfter time.Duration // > 0 means the request is rejected
	Delay      time.Duration // artificial slow-down before processing
}

// NewLimiter creates a Limiter.
func NewLimiter(rdb *redis.Client, window time.Duration, max, slowdownAfter int,
	slowdownStep, slowdownMax time.Duration) *Limiter {
	return &Limiter{
		rdb:           rdb,
		window:        window,
		max:           max,
		slowdownAfter: slowdownAfter,
		slowdownStep:  slowdownStep,
		slowdownMax:   slowdownMax,
	}
}

// Allow registers one request for key and decides whether to admit it,
// admit it after an escalating delay, or reject it with a retry-after
// hint equal to the remaining window time.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	fullKey := limitKeyPrefix + key

	count, err := l.rdb.Incr(ctx, fullKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, fullKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limiter unavailable: %w", err)
		}
	}

	decision := Decision{Count: count}

	if count > int64(l.max) {
		retryAfter, err := l.rdb.PTTL(ctx, fullKey).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = l.window
		}
		decision.RetryAfter = retryAfter
		return decision, nil
	}

	if over := count - int64(l.slowdownAfter); over > 0 {
		delay := time.Duration(over) * l.slowdownStep
		if delay > l.slowdownMax {
			delay = l.slowdownMax
		}
		decision.Delay = delay
	}

	return decision, nil
}

// clientIP returns the request's client address without the ephemeral
// port. chi's RealIP middleware has already rewritten RemoteAddr when a
// proxy header is present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Middleware rate-limits by client IP and path. When Redis is unreachable
// the limiter fails open: abuse control must not take the whole site down.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r) + ":" + r.URL.Path

		decision, err := l.Allow(r.Context(), key)
		if err != nil {
			log.Printf("[GUARD] %v, failing open", err)
			next.ServeHTTP(w, r)
			return
		}

		if decision.RetryAfter > 0 {
			seconds := int(decision.RetryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		if decision.Delay > 0 {
			select {
			case <-time.After(decision.Delay):
			case <-r.Context().Done():
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
