package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout applies when a non-positive timeout is configured.
const DefaultRequestTimeout = 30 * time.Second

// Timeout bounds request handling. The handler sees a context that expires
// at the deadline, and the client gets a 503 once it passes.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		wrapped := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			wrapped.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
