package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/riverbend-health/hospital-ops-platform/internal/observability/metrics"
)

// HTTPMetrics records request counts, latency and in-flight gauge for every
// request. Routes are labelled by chi pattern, not raw path, to keep
// cardinality bounded.
func HTTPMetrics(m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			m.RequestStarted()
			defer m.RequestFinished()

			next.ServeHTTP(ww, r)

			// The route pattern is only known after routing has run.
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			class := strconv.Itoa(status/100) + "xx"
			m.ObserveRequest(r.Method, route, class, time.Since(start).Seconds())
		})
	}
}
