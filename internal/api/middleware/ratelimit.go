package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/ecoroute/ecoroute/internal/api/models"
)

// RateLimitConfig is a fixed-window request budget.
type RateLimitConfig struct {
	// Name appears in the 429 detail, e.g. "eco planning".
	Name         string
	RequestLimit int
	WindowLength time.Duration
}

var (
	// ExpensiveRateLimit covers plan and compare, which call every provider once per mode.
	ExpensiveRateLimit = RateLimitConfig{
		Name:         "eco planning",
		RequestLimit: 30,
		WindowLength: time.Minute,
	}

	// StandardRateLimit covers single-provider lookups and operator reads.
	StandardRateLimit = RateLimitConfig{
		Name:         "lookup",
		RequestLimit: 100,
		WindowLength: time.Minute,
	}
)

// RateLimitByIP limits per client IP. The IP is taken from X-Forwarded-For or
// X-Real-IP when present (see chi's RealIP middleware).
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, httprate.KeyByRealIP)
}

// RateLimitByOperator limits per authenticated operator. It must run after
// OperatorAuth and falls back to the client IP otherwise.
func RateLimitByOperator(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return limiter(cfg, keyByOperatorOrIP)
}

func limiter(cfg RateLimitConfig, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(limitExceeded(cfg)),
	)
}

func keyByOperatorOrIP(r *http.Request) (string, error) {
	if op := GetOperator(r.Context()); op != "" {
		return "operator:" + op, nil
	}
	return httprate.KeyByRealIP(r)
}

// limitExceeded answers with a 429 problem. httprate does not expose the
// window reset time, so Retry-After is the full window.
func limitExceeded(cfg RateLimitConfig) http.HandlerFunc {
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.WindowLength.Seconds())))

	detail := "Rate limit exceeded. Please try again later."
	if cfg.Name != "" {
		detail = fmt.Sprintf("Rate limit for %s requests exceeded (%d per %s). Please try again later.",
			cfg.Name, cfg.RequestLimit, cfg.WindowLength)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		problem := models.NewTooManyRequests(GetRequestID(r.Context()), detail)
		problem.Instance = r.URL.Path

		w.Header().Set("Retry-After", retryAfter)
		problem.Write(w)
	}
}
