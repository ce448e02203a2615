package middleware

import (
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"
	stdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewIPRateLimiter returns middleware that limits by client IP with an
// in-memory store. A non-positive limit disables it.
func NewIPRateLimiter(window time.Duration, maxRequests int64) func(next http.Handler) http.Handler {
	if maxRequests <= 0 {
		return noopMiddleware
	}
	rate := limiter.Rate{Period: window, Limit: maxRequests}
	store := memory.NewStore()
	instance := limiter.New(store, rate)
	return stdlib.NewMiddleware(instance).Handler
}

func noopMiddleware(next http.Handler) http.Handler {
	return next
}
