// Package requesttime pins one "now" per HTTP request. Every certificate in a
// batch submission derives its issuance timestamp, and therefore its key, from
// this single instant.
package requesttime

import (
	"net/http"
	"time"

	"veriseal/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and stores
// it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
