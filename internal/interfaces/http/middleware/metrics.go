package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// HTTPMetrics records served requests.
type HTTPMetrics interface {
	RecordHTTPRequest(route, method string, status int, d time.Duration)
}

// Metrics returns middleware that records every request under its chi route
// pattern. Unmatched requests are recorded as "unmatched" to keep label
// cardinality bounded.
func Metrics(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.RecordHTTPRequest(route, r.Method, status, time.Since(start))
		})
	}
}

//Personal.AI order the ending
