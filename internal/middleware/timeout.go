package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a single request when no explicit timeout is
// configured. Upload verification holds the longest-running work (blob-store
// calls), and those carry their own per-call deadline well under this.
const DefaultRequestTimeout = 30 * time.Second

// Timeout bounds every request with the given deadline. The deadline is
// carried on the request context so downstream blob-store and redis calls
// observe it, and http.TimeoutHandler writes the 503 if the handler overruns.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		bounded := http.TimeoutHandler(next, timeout, "Request Timeout")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			bounded.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
