package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/riverbend-health/hospital-ops-platform/internal/journal"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

type decisionReader interface {
	RecentByCategory(ctx context.Context, category string, limit int) ([]journal.Entry, error)
}

// AdminDecisionsHandler serves recent journaled decisions to the ops console.
type AdminDecisionsHandler struct {
	journal decisionReader
	logger  *logging.Logger
}

// NewAdminDecisionsHandler creates a decision query handler.
func NewAdminDecisionsHandler(journal decisionReader, logger *logging.Logger) *AdminDecisionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDecisionsHandler{
		journal: journal,
		logger:  logger,
	}
}

// RecentDecisions handles GET /admin/decisions/recent.
// Query params: category (required), limit (default 20, max 200).
func (h *AdminDecisionsHandler) RecentDecisions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := strings.TrimSpace(q.Get("category"))
	switch triage.Category(category) {
	case triage.CategoryEmergency, triage.CategoryUrgent, triage.CategorySemiUrgent, triage.CategoryNonUrgent:
	default:
		http.Error(w, "invalid category", http.StatusBadRequest)
		return
	}

	limit := 20
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			http.Error(w, "invalid limit; must be 1-200", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := h.journal.RecentByCategory(r.Context(), category, limit)
	if err != nil {
		h.logger.Error("failed to query recent decisions", "error", err, "category", category)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"decisions": entries})
}
