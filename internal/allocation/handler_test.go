package allocation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

func TestHandlerPlan(t *testing.T) {
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default())

	payload := planRequest{
		Cases: []triage.ScoredCase{
			scoredCase(triage.CategoryEmergency, 0),
			scoredCase(triage.CategoryUrgent, 30),
		},
		Resources: Resources{Providers: 3},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/plan", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Plan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var plan AllocationPlan
	if err := json.NewDecoder(w.Body).Decode(&plan); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if plan.Counts.Emergency != 1 || plan.Counts.Urgent != 1 {
		t.Fatalf("unexpected counts: %+v", plan.Counts)
	}
	if len(plan.Recommendations) == 0 {
		t.Fatal("expected emergency recommendation")
	}
}

func TestHandlerPlanInvalidJSON(t *testing.T) {
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/plan", strings.NewReader("{"))
	w := httptest.NewRecorder()

	handler.Plan(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandlerBottlenecks(t *testing.T) {
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default())

	body, _ := json.Marshal(bottleneckRequest{StageCounts: map[string]int{
		"triage": 7,
		"labs":   3,
	}})
	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/bottlenecks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Bottlenecks(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var report BottleneckReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if report.RiskLevel != RiskHigh {
		t.Fatalf("expected High risk, got %s", report.RiskLevel)
	}
}

func TestHandlerBottlenecksInvalidJSON(t *testing.T) {
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default())

	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/bottlenecks", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	handler.Bottlenecks(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected %d, got %d", http.StatusBadRequest, w.Code)
	}
}

type recordingAlerter struct {
	plans   []AllocationPlan
	reports []BottleneckReport
}

func (a *recordingAlerter) AlertSaturation(ctx context.Context, plan AllocationPlan) error {
	a.plans = append(a.plans, plan)
	return nil
}

func (a *recordingAlerter) AlertBottleneck(ctx context.Context, report BottleneckReport) error {
	a.reports = append(a.reports, report)
	return nil
}

func TestHandlerPlanNotifiesAlerter(t *testing.T) {
	alerter := &recordingAlerter{}
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default(), WithAlerter(alerter))

	payload := planRequest{
		Cases:     []triage.ScoredCase{scoredCase(triage.CategoryEmergency, 0)},
		Resources: Resources{Providers: 2},
	}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/plan", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Plan(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, w.Code)
	}
	if len(alerter.plans) != 1 {
		t.Fatalf("expected alerter to see 1 plan, got %d", len(alerter.plans))
	}
	if alerter.plans[0].Counts.Emergency != 1 {
		t.Fatalf("unexpected plan handed to alerter: %+v", alerter.plans[0])
	}
}

func TestHandlerBottlenecksNotifiesAlerter(t *testing.T) {
	alerter := &recordingAlerter{}
	handler := NewHandler(NewAllocator(nil, logging.Default()), logging.Default(), WithAlerter(alerter))

	body, _ := json.Marshal(bottleneckRequest{StageCounts: map[string]int{"radiology": 9, "lab": 1}})
	req := httptest.NewRequest(http.MethodPost, "/v1/allocation/bottlenecks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Bottlenecks(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, w.Code)
	}
	if len(alerter.reports) != 1 {
		t.Fatalf("expected alerter to see 1 report, got %d", len(alerter.reports))
	}
	if alerter.reports[0].RiskLevel != RiskHigh {
		t.Fatalf("expected High risk report, got %s", alerter.reports[0].RiskLevel)
	}
}
