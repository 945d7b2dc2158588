package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	m := NewHTTPMetrics(nil)
	m.RequestStarted()
	m.ObserveRequest("POST", "/v1/triage", "2xx", 0.125)
	m.RequestFinished()
}

func TestHTTPMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.ObserveRequest("GET", "/healthz", "2xx", 0.001)
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.RequestStarted()
	m.ObserveRequest("GET", "/", "5xx", 0.1)
	m.RequestFinished()
}
