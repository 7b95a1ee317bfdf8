package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, window time.Duration, max, slowAfter int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewLimiter(rdb, window, max, slowAfter, 100*time.Millisecond, time.Second), mr
}

func TestLimiterFixedWindow(t *testing.T) {
	limiter, mr := newTestLimiter(t, time.Minute, 5, 5)

	for i := 0; i < 5; i++ {
		decision, err := limiter.Allow(context.Background(), "1.2.3.4:/api/login")
		require.NoError(t, err)
		assert.Zero(t, decision.RetryAfter, "request %d should be admitted", i+1)
	}

	decision, err := limiter.Allow(context.Background(), "1.2.3.4:/api/login")
	require.NoError(t, err)
	assert.Greater(t, decision.RetryAfter, time.Duration(0), "6th request must be rejected")
	assert.LessOrEqual(t, decision.RetryAfter, time.Minute)

	// Different key is unaffected.
	decision, err = limiter.Allow(context.Background(), "5.6.7.8:/api/login")
	require.NoError(t, err)
	assert.Zero(t, decision.RetryAfter)

	// Window rollover resets the counter.
	mr.FastForward(time.Minute + time.Second)
	decision, err = limiter.Allow(context.Background(), "1.2.3.4:/api/login")
	require.NoError(t, err)
	assert.Zero(t, decision.RetryAfter)
}

func TestLimiterConcurrentNeverOverAdmits(t *testing.T) {
	limiter, _ := newTestLimiter(t, time.Minute, 10, 10)

	const n = 25
	var wg sync.WaitGroup
	rejected := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := limiter.Allow(context.Background(), "1.2.3.4:/api/login")
			require.NoError(t, err)
			rejected[i] = decision.RetryAfter > 0
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, r := range rejected {
		if !r {
			admitted++
		}
	}
	assert.Equal(t, 10, admitted, "INCR must hand out exactly max slots")
}

func TestLimiterSlowdown(t *testing.T) {
	limiter, _ := newTestLimiter(t, time.Minute, 100, 3)

	var last Decision
	for i := 0; i < 6; i++ {
		var err error
		last, err = limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
	}

	// 6th request, threshold 3: delay = 3 * step.
	assert.Equal(t, 300*time.Millisecond, last.Delay)
	assert.Zero(t, last.RetryAfter)
}

func TestLimiterSlowdownCapped(t *testing.T) {
	limiter, _ := newTestLimiter(t, time.Minute, 100, 1)

	var last Decision
	for i := 0; i < 50; i++ {
		var err error
		last, err = limiter.Allow(context.Background(), "k")
		require.NoError(t, err)
	}

	assert.Equal(t, time.Second, last.Delay, "delay must cap at the configured ceiling")
}

func TestLimiterMiddleware(t *testing.T) {
	limiter, _ := newTestLimiter(t, time.Minute, 2, 2)

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/api/login", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.RemoteAddr = "1.2.3.4:6666" // same client, different ephemeral port
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestLimiterMiddlewareFailsOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, time.Minute, 1, 1)
	mr.Close()

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.RemoteAddr = "1.2.3.4:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "limiter outage must not reject traffic")
}
