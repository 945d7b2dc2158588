package triage

import (
	"github.com/prometheus/client_golang/prometheus"
)

// InferenceLatencyMetric is the histogram family name the ops dashboard
// snapshots for P90/P95 reporting.
const InferenceLatencyMetric = "hospitalops_triage_inference_latency_seconds"

var inferenceLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "hospitalops",
		Subsystem: "triage",
		Name:      "inference_latency_seconds",
		Help:      "Latency of inference calls",
		// Focus on sub-10s buckets with a few higher ones for slow local models.
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20, 30},
	},
	[]string{"model", "status"},
)

var decisionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "triage",
		Name:      "decisions_total",
		Help:      "Triage decisions by category and producing path",
	},
	[]string{"category", "source"},
)

var cacheEventsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "triage",
		Name:      "cache_events_total",
		Help:      "Decision cache lookups by outcome",
	},
	[]string{"event"}, // event: hit, miss, coalesced, error
)

var parseFallbackTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "triage",
		Name:      "parse_fallback_total",
		Help:      "Parser outcomes by tier",
	},
	[]string{"tier"}, // tier: structured, heuristic, default
)

var inferenceFailoverTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "triage",
		Name:      "inference_failover_total",
		Help:      "Completions served by the fallback provider",
	},
)

func init() {
	prometheus.MustRegister(inferenceLatency)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(cacheEventsTotal)
	prometheus.MustRegister(parseFallbackTotal)
	prometheus.MustRegister(inferenceFailoverTotal)
}

// RegisterMetrics registers triage metrics with a custom registry.
// Use this when exposing a non-default registry.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	reg.MustRegister(inferenceLatency, decisionsTotal, cacheEventsTotal, parseFallbackTotal, inferenceFailoverTotal)
}
