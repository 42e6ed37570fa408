package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoroute/ecoroute/internal/api/middleware"
)

// hit sends one GET from ip and returns the recorder.
func hit(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = ip
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_Budget(t *testing.T) {
	h := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/v1/weather", "10.0.0.1:1234").Code, "request %d", i+1)
	}

	rec := hit(h, "/v1/weather", "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other clients keep their own budget.
	assert.Equal(t, http.StatusOK, hit(h, "/v1/weather", "10.0.0.2:1234").Code)
}

func TestRateLimitByIP_ForwardedFor(t *testing.T) {
	h := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler())

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/route", http.NoBody)
		req.RemoteAddr = "10.1.1.1:443" // load balancer
		req.Header.Set("X-Forwarded-For", forwarded)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.7"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.7"))
	assert.Equal(t, http.StatusOK, send("198.51.100.8"))
}

func TestRateLimitByOperator_KeysOnOperator(t *testing.T) {
	svc := newTokenService()
	alice, _, err := svc.Issue("alice", time.Hour)
	require.NoError(t, err)
	bob, _, err := svc.Issue("bob", time.Hour)
	require.NoError(t, err)

	handler := middleware.OperatorAuth(svc)(
		middleware.RateLimitByOperator(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler()),
	)

	send := func(token, ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/eco/history", http.NoBody)
		req.RemoteAddr = ip
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(alice, "192.168.1.1:12345"))
	// Same operator from another IP shares the budget.
	assert.Equal(t, http.StatusTooManyRequests, send(alice, "192.168.1.2:12345"))
	// Another operator from the first IP has its own budget.
	assert.Equal(t, http.StatusOK, send(bob, "192.168.1.1:12345"))
}

func TestRateLimitExceeded_Problem(t *testing.T) {
	cfg := middleware.RateLimitConfig{Name: "eco planning", RequestLimit: 1, WindowLength: 90 * time.Second}
	h := middleware.RequestID(middleware.RateLimitByIP(cfg)(okHandler()))

	require.Equal(t, http.StatusOK, hit(h, "/v1/eco/plan", "203.0.113.1:1234").Code)
	rec := hit(h, "/v1/eco/plan", "203.0.113.1:1234")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))

	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "Rate limit for eco planning requests exceeded (1 per 1m30s)")
	assert.Contains(t, body, `"instance":"/v1/eco/plan"`)
	assert.Contains(t, body, "req_")
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 30, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.ExpensiveRateLimit.WindowLength)
	assert.Equal(t, "eco planning", middleware.ExpensiveRateLimit.Name)

	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
