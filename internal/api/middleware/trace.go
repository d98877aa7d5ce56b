// Package middleware contains the HTTP middleware chain: trace IDs,
// authentication, admin gating, rate limiting, and request metrics.
package middleware

import (
	"net/http"

	"github.com/lambda-platform/lambda-api/internal/api/shared"
)

// TraceMiddleware adds a unique trace ID to each request's context for
// correlating logs and error responses. The ID is echoed in the X-Trace-ID
// response header so clients can quote it in support requests.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		w.Header().Set("X-Trace-ID", shared.GetTraceID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
