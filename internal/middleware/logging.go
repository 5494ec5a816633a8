package middleware

import (
	"net/http"
	"time"

	"github.com/R3E-Network/greeter/internal/httputil"
	"github.com/R3E-Network/greeter/internal/logging"
)

// Logging assigns every request a trace ID (reusing X-Trace-ID when the
// caller sent one), echoes it in the response and logs the request once it
// completes.
func Logging(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			traceID := r.Header.Get(httputil.TraceIDHeader)
			if traceID == "" {
				traceID = logging.NewTraceID()
			}
			ctx := logging.WithTraceID(r.Context(), traceID)
			w.Header().Set(httputil.TraceIDHeader, traceID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.LogRequest(ctx, r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
