package server

import (
	"context"
	"net/http"
)

// rateLimitContextKey is the context key for rate limit info
type rateLimitContextKey struct{}

// RateLimitInfo carries the daily advice quota state for the current caller.
// The middleware installs an empty holder; handlers fill it in after the
// quota check (same goroutine, no locking needed) so it can be surfaced as
// response headers.
type RateLimitInfo struct {
	RequestsLimit     int
	RequestsRemaining int
}

// SetRateLimits records quota state for the current request. No-op if the
// header middleware isn't present.
func SetRateLimits(ctx context.Context, limit, remaining int) {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		rl.RequestsLimit = limit
		rl.RequestsRemaining = remaining
	}
}

// GetRateLimits retrieves rate limit info from context.
// Returns nil if the middleware isn't present.
func GetRateLimits(ctx context.Context) *RateLimitInfo {
	if rl, ok := ctx.Value(rateLimitContextKey{}).(*RateLimitInfo); ok {
		return rl
	}
	return nil
}

// RateLimitHeaderMiddleware writes x-ratelimit-* headers on responses, from
// quota info the handler recorded before its first write.
func RateLimitHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		holder := &RateLimitInfo{}
		ctx := context.WithValue(r.Context(), rateLimitContextKey{}, holder)

		wrapped := &rateLimitResponseWriter{
			ResponseWriter: w,
			info:           holder,
		}
		next.ServeHTTP(wrapped, r.WithContext(ctx))
	})
}

// rateLimitResponseWriter wraps ResponseWriter to write rate limit headers.
type rateLimitResponseWriter struct {
	http.ResponseWriter
	info         *RateLimitInfo
	wroteHeaders bool
}

func (rw *rateLimitResponseWriter) WriteHeader(code int) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *rateLimitResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeaders {
		rw.writeRateLimitHeaders()
		rw.wroteHeaders = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *rateLimitResponseWriter) writeRateLimitHeaders() {
	if rw.info == nil || rw.info.RequestsLimit <= 0 {
		return
	}

	h := rw.Header()
	h.Set("x-ratelimit-limit-requests", itoa(rw.info.RequestsLimit))
	// 0 is a valid remaining value once the limit is known
	h.Set("x-ratelimit-remaining-requests", itoa(rw.info.RequestsRemaining))
}

// itoa converts int to string without importing strconv
func itoa(i int) string {
	if i == 0 {
		return "0"
	}

	negative := i < 0
	if negative {
		i = -i
	}

	var buf [20]byte
	pos := len(buf)

	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}

	if negative {
		pos--
		buf[pos] = '-'
	}

	return string(buf[pos:])
}

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher.
func (rw *rateLimitResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
