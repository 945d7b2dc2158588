package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/internal/audit"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

type auditQuerier interface {
	QueryEvents(ctx context.Context, f audit.Filter) ([]audit.Event, error)
}

// AdminAuditHandler serves the compliance audit trail to the ops console.
type AdminAuditHandler struct {
	audit  auditQuerier
	logger *logging.Logger
}

// NewAdminAuditHandler creates an audit query handler.
func NewAdminAuditHandler(audit auditQuerier, logger *logging.Logger) *AdminAuditHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// ListEvents handles GET /admin/audit-events.
// Query params: subject_id, event_type, start, end (RFC3339), limit, offset.
func (h *AdminAuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		SubjectID: strings.TrimSpace(q.Get("subject_id")),
		EventType: audit.EventType(strings.TrimSpace(q.Get("event_type"))),
	}

	if raw := strings.TrimSpace(q.Get("start")); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid start time, use RFC3339 format", http.StatusBadRequest)
			return
		}
		filter.StartTime = start
	}
	if raw := strings.TrimSpace(q.Get("end")); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid end time, use RFC3339 format", http.StatusBadRequest)
			return
		}
		filter.EndTime = end
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			http.Error(w, "invalid limit; must be 1-500", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			http.Error(w, "invalid offset", http.StatusBadRequest)
			return
		}
		filter.Offset = offset
	}

	events, err := h.audit.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"events": events})
}
