package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/internal/audit"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

type stubAuditQuerier struct {
	events []audit.Event
	err    error

	gotFilter audit.Filter
}

func (s *stubAuditQuerier) QueryEvents(_ context.Context, f audit.Filter) ([]audit.Event, error) {
	s.gotFilter = f
	return s.events, s.err
}

func TestAdminAuditListEvents(t *testing.T) {
	querier := &stubAuditQuerier{
		events: []audit.Event{
			{EventType: audit.EventCriticalDispatch, SubjectID: "patient-7"},
		},
	}
	handler := NewAdminAuditHandler(querier, logging.Default())

	req := httptest.NewRequest(http.MethodGet,
		"/admin/audit-events?subject_id=patient-7&event_type=triage.critical_dispatch&start=2026-01-01T00:00:00Z&end=2026-02-01T00:00:00Z&limit=50&offset=10", nil)
	rec := httptest.NewRecorder()
	handler.ListEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Events []audit.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 1 || resp.Events[0].SubjectID != "patient-7" {
		t.Fatalf("unexpected events: %+v", resp.Events)
	}

	want := audit.Filter{
		SubjectID: "patient-7",
		EventType: audit.EventCriticalDispatch,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Limit:     50,
		Offset:    10,
	}
	if querier.gotFilter != want {
		t.Fatalf("filter = %+v, want %+v", querier.gotFilter, want)
	}
}

func TestAdminAuditListEventsEmptyResult(t *testing.T) {
	handler := NewAdminAuditHandler(&stubAuditQuerier{}, logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/audit-events", nil)
	rec := httptest.NewRecorder()
	handler.ListEvents(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"events\":[]}\n" {
		t.Fatalf("expected empty array, got %q", got)
	}
}

func TestAdminAuditListEventsBadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad start", "?start=yesterday"},
		{"bad end", "?end=tomorrow"},
		{"limit too large", "?limit=5000"},
		{"negative offset", "?offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAdminAuditHandler(&stubAuditQuerier{}, logging.Default())

			req := httptest.NewRequest(http.MethodGet, "/admin/audit-events"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.ListEvents(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
		})
	}
}
