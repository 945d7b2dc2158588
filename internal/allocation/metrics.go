package allocation

import (
	"github.com/prometheus/client_golang/prometheus"
)

var plansTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "allocation",
		Name:      "plans_total",
		Help:      "Allocation plans computed",
	},
)

var planAlertsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "allocation",
		Name:      "plan_alerts_total",
		Help:      "Plans whose staffing thresholds fired",
	},
)

var bottleneckReportsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hospitalops",
		Subsystem: "allocation",
		Name:      "bottleneck_reports_total",
		Help:      "Bottleneck reports by overall risk level",
	},
	[]string{"risk"},
)

func init() {
	prometheus.MustRegister(plansTotal)
	prometheus.MustRegister(planAlertsTotal)
	prometheus.MustRegister(bottleneckReportsTotal)
}

// RegisterMetrics registers allocation metrics with a custom registry.
// Use this when exposing a non-default registry.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil || reg == prometheus.DefaultRegisterer {
		return
	}
	reg.MustRegister(plansTotal, planAlertsTotal, bottleneckReportsTotal)
}
