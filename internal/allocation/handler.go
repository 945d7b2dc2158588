package allocation

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// Alerter pushes operational alerts for plans and reports that cross
// alerting thresholds. Implementations own their throttling.
type Alerter interface {
	AlertSaturation(ctx context.Context, plan AllocationPlan) error
	AlertBottleneck(ctx context.Context, report BottleneckReport) error
}

// ReportSink observes every computed bottleneck report. The live board state
// hangs off this seam.
type ReportSink interface {
	PublishReport(report BottleneckReport)
}

// Handler serves the allocation planning endpoints.
type Handler struct {
	allocator *Allocator
	alerter   Alerter
	reports   ReportSink
	logger    *logging.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithAlerter routes threshold crossings to an operational alerter.
func WithAlerter(alerter Alerter) HandlerOption {
	return func(h *Handler) {
		h.alerter = alerter
	}
}

// WithReportSink mirrors computed bottleneck reports into a sink.
func WithReportSink(sink ReportSink) HandlerOption {
	return func(h *Handler) {
		h.reports = sink
	}
}

// NewHandler creates an allocation handler.
func NewHandler(allocator *Allocator, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if allocator == nil {
		panic("allocation: allocator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{allocator: allocator, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type planRequest struct {
	Cases     []triage.ScoredCase `json:"cases"`
	Resources Resources           `json:"resources"`
}

type bottleneckRequest struct {
	StageCounts map[string]int `json:"stage_counts"`
}

// Plan handles POST /v1/allocation/plan.
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode plan request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	plan := h.allocator.Allocate(r.Context(), req.Cases, req.Resources)
	if h.alerter != nil {
		if err := h.alerter.AlertSaturation(r.Context(), plan); err != nil {
			h.logger.Error("saturation alert failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, plan)
}

// Bottlenecks handles POST /v1/allocation/bottlenecks.
func (h *Handler) Bottlenecks(w http.ResponseWriter, r *http.Request) {
	var req bottleneckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode bottleneck request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report := DetectBottlenecks(req.StageCounts)
	if h.reports != nil {
		h.reports.PublishReport(report)
	}
	if h.alerter != nil {
		if err := h.alerter.AlertBottleneck(r.Context(), report); err != nil {
			h.logger.Error("bottleneck alert failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
