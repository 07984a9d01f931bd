package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pcilli/fitbit-mcp-server/internal/middleware"
	"github.com/pcilli/fitbit-mcp-server/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRateLimiter struct {
	allowed    int
	retryAfter time.Duration
	err        error
	gotKey     string
}

func (f *fakeRateLimiter) Allow(_ context.Context, key string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	f.gotKey = key
	if f.err != nil {
		return nil, f.err
	}
	return &redis_rate.Result{Allowed: f.allowed, RetryAfter: f.retryAfter}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_Allowed(t *testing.T) {
	limiter := &fakeRateLimiter{allowed: 1}
	handler := middleware.RateLimit(limiter, "activity-range", 30, metrics.NewTestManager())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/activity-range", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "activity-range", limiter.gotKey)
}

func TestRateLimit_Denied(t *testing.T) {
	limiter := &fakeRateLimiter{allowed: 0, retryAfter: 30 * time.Second}
	handler := middleware.RateLimit(limiter, "activity-range", 30, metrics.NewTestManager())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/activity-range", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry after")
}

func TestRateLimit_LimiterError(t *testing.T) {
	limiter := &fakeRateLimiter{err: errors.New("redis down")}
	handler := middleware.RateLimit(limiter, "activity-range", 30, metrics.NewTestManager())(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/activity-range", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
