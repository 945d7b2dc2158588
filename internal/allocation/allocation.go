// Package allocation turns a snapshot of scored triage cases into staffing
// recommendations and congestion reports. Plans are recomputed on demand and
// hold no state between calls.
package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// providerCaseCapacity is how many concurrent cases one provider is assumed
// to absorb before the department is considered over capacity.
const providerCaseCapacity = 3

// urgentBacklogThreshold is the urgent-bucket size above which the urgent
// track needs extra hands.
const urgentBacklogThreshold = 5

// auditAlertRaised tags plans whose thresholds fired.
const auditAlertRaised = "allocation.alert_raised"

// Resources describes the staffing available at planning time.
type Resources struct {
	Providers int `json:"providers"`
	Nurses    int `json:"nurses,omitempty"`
	Beds      int `json:"beds,omitempty"`
}

// CategoryCounts holds the per-bucket case counts of one plan.
type CategoryCounts struct {
	Emergency  int `json:"emergency"`
	Urgent     int `json:"urgent"`
	SemiUrgent int `json:"semi_urgent"`
	NonUrgent  int `json:"non_urgent"`
}

// AllocationPlan summarizes a snapshot of scored cases against available
// staff. Transient; callers persist or publish it if they need history.
type AllocationPlan struct {
	GeneratedAt     time.Time      `json:"generated_at"`
	Counts          CategoryCounts `json:"counts"`
	Total           int            `json:"total"`
	Providers       int            `json:"providers"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Metrics is the operational snapshot handed to the baseline provider when
// no case-specific actions are available.
type Metrics struct {
	OccupancyPercent   float64 `json:"occupancy_percent"`
	AverageWaitMinutes float64 `json:"average_wait_minutes"`
	QueueDepth         int     `json:"queue_depth"`
}

// BaselineProvider supplies fallback recommendations from operational
// metrics. The production default is StaticBaselineProvider; model-backed
// providers plug in behind the same interface.
type BaselineProvider interface {
	RecommendedActions(m Metrics) []string
}

// AuditSink records allocation alerts on the compliance trail.
type AuditSink interface {
	LogEvent(ctx context.Context, eventType, subjectID string, detail map[string]any) error
}

// Allocator buckets scored cases and emits staffing recommendations.
type Allocator struct {
	baseline BaselineProvider
	audit    AuditSink
	logger   *logging.Logger
	now      func() time.Time
}

// AllocatorOption customizes an Allocator.
type AllocatorOption func(*Allocator)

// WithAuditSink records an audit event whenever a plan raises an alert.
func WithAuditSink(sink AuditSink) AllocatorOption {
	return func(a *Allocator) {
		a.audit = sink
	}
}

// NewAllocator builds an allocator. A nil baseline falls back to the static
// threshold provider.
func NewAllocator(baseline BaselineProvider, logger *logging.Logger, opts ...AllocatorOption) *Allocator {
	if baseline == nil {
		baseline = StaticBaselineProvider{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Allocator{
		baseline: baseline,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate partitions cases into the four category buckets and emits
// recommendations when the emergency bucket is non-empty, the urgent bucket
// backs up, or total load exceeds provider capacity.
func (a *Allocator) Allocate(ctx context.Context, cases []triage.ScoredCase, res Resources) AllocationPlan {
	plan := AllocationPlan{
		GeneratedAt: a.now().UTC(),
		Total:       len(cases),
		Providers:   res.Providers,
	}

	var waitSum int
	var caseActions []string
	for _, sc := range cases {
		switch sc.Decision.Category {
		case triage.CategoryEmergency:
			plan.Counts.Emergency++
		case triage.CategoryUrgent:
			plan.Counts.Urgent++
		case triage.CategorySemiUrgent:
			plan.Counts.SemiUrgent++
		default:
			plan.Counts.NonUrgent++
		}
		waitSum += sc.Decision.EstimatedWaitMinutes
		caseActions = append(caseActions, sc.Decision.Actions...)
	}

	alerts := a.thresholdRecommendations(plan.Counts, plan.Total, res)
	plan.Recommendations = append(plan.Recommendations, alerts...)

	// Case-specific action lists win; the baseline provider only speaks when
	// the decisions carried none.
	if len(caseActions) > 0 {
		plan.Recommendations = append(plan.Recommendations, caseActions...)
	} else {
		plan.Recommendations = append(plan.Recommendations, a.baseline.RecommendedActions(a.snapshotMetrics(plan, waitSum, res))...)
	}
	plan.Recommendations = dedupe(plan.Recommendations)

	plansTotal.Inc()
	if len(alerts) > 0 {
		planAlertsTotal.Inc()
		a.logger.Warn("allocation thresholds exceeded",
			"emergency", plan.Counts.Emergency,
			"urgent", plan.Counts.Urgent,
			"total", plan.Total,
			"providers", res.Providers)
		a.recordAlert(ctx, plan, alerts)
	}

	return plan
}

func (a *Allocator) thresholdRecommendations(counts CategoryCounts, total int, res Resources) []string {
	var recs []string
	if counts.Emergency > 0 {
		recs = append(recs, fmt.Sprintf("Activate emergency protocols: %d emergency case(s) awaiting placement", counts.Emergency))
	}
	if counts.Urgent > urgentBacklogThreshold {
		recs = append(recs, fmt.Sprintf("Urgent track backlog at %d cases; reassign providers to the urgent queue", counts.Urgent))
	}
	if total > providerCaseCapacity*res.Providers {
		recs = append(recs, fmt.Sprintf("Case load (%d) exceeds capacity of %d provider(s); request additional staffing", total, res.Providers))
	}
	return recs
}

func (a *Allocator) snapshotMetrics(plan AllocationPlan, waitSum int, res Resources) Metrics {
	m := Metrics{QueueDepth: plan.Total}
	if plan.Total > 0 {
		m.AverageWaitMinutes = float64(waitSum) / float64(plan.Total)
	}
	if capacity := providerCaseCapacity * res.Providers; capacity > 0 {
		m.OccupancyPercent = 100 * float64(plan.Total) / float64(capacity)
	}
	return m
}

func (a *Allocator) recordAlert(ctx context.Context, plan AllocationPlan, alerts []string) {
	if a.audit == nil {
		return
	}
	detail := map[string]any{
		"emergency": plan.Counts.Emergency,
		"urgent":    plan.Counts.Urgent,
		"total":     plan.Total,
		"providers": plan.Providers,
		"alerts":    alerts,
	}
	if err := a.audit.LogEvent(ctx, auditAlertRaised, "", detail); err != nil {
		a.logger.Warn("failed to record allocation alert", "error", err)
	}
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
