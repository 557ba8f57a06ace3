package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds a route with a deadline. Cancellation is
// cooperative: handlers observe it through the request context. The
// streaming advice route must not be wrapped with this, its lifetime is
// governed by the provider stream.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
