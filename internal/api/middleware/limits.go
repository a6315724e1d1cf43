package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/jeeinsight/internal/api"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// MaxBodyBytes caps request bodies at limit. A declared Content-Length over
// the cap is refused up front; streamed bodies fail on read, which
// api.DecodeJSON reports as 413. Zero disables it.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength > limit {
				api.HandleError(w, domain.ErrBodyTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout bounds the request context. Generation calls made on behalf of
// the request fail with context.DeadlineExceeded once it passes, which
// api.HandleError reports as 504. Zero disables it.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
