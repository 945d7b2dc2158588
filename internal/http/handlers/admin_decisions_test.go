package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riverbend-health/hospital-ops-platform/internal/journal"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

type stubDecisionReader struct {
	entries []journal.Entry
	err     error

	gotCategory string
	gotLimit    int
}

func (s *stubDecisionReader) RecentByCategory(_ context.Context, category string, limit int) ([]journal.Entry, error) {
	s.gotCategory = category
	s.gotLimit = limit
	return s.entries, s.err
}

func TestAdminRecentDecisions(t *testing.T) {
	reader := &stubDecisionReader{
		entries: []journal.Entry{
			{CaseID: "case-1", Category: "Emergency", EmergencyLevel: "critical"},
		},
	}
	handler := NewAdminDecisionsHandler(reader, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/decisions/recent?category=Emergency&limit=5", nil)
	rec := httptest.NewRecorder()
	handler.RecentDecisions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if reader.gotCategory != "Emergency" || reader.gotLimit != 5 {
		t.Fatalf("reader called with (%q, %d), want (Emergency, 5)", reader.gotCategory, reader.gotLimit)
	}

	var resp struct {
		Decisions []journal.Entry `json:"decisions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Decisions) != 1 || resp.Decisions[0].CaseID != "case-1" {
		t.Fatalf("unexpected decisions: %+v", resp.Decisions)
	}
}

func TestAdminRecentDecisionsDefaultLimit(t *testing.T) {
	reader := &stubDecisionReader{}
	handler := NewAdminDecisionsHandler(reader, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/decisions/recent?category=Urgent", nil)
	rec := httptest.NewRecorder()
	handler.RecentDecisions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if reader.gotLimit != 20 {
		t.Fatalf("limit = %d, want default 20", reader.gotLimit)
	}
}

func TestAdminRecentDecisionsRejectsUnknownCategory(t *testing.T) {
	handler := NewAdminDecisionsHandler(&stubDecisionReader{}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/decisions/recent?category=whenever", nil)
	rec := httptest.NewRecorder()
	handler.RecentDecisions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
