// Package main drives end-to-end checks against a running API instance.
//
// Scenarios cover the operational surface a deploy must not break:
//   - Health endpoint
//   - Single-case triage (emergency keyword, routine complaint)
//   - Input validation (empty case rejected)
//   - Synchronous batch with order preservation
//   - Allocation planning and bottleneck detection
//   - Async job submit + poll, when a queue is configured
//
// Usage:
//
//	go run ./scripts/e2e -base http://localhost:8080 [-async]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type runner struct {
	base   string
	client *http.Client
	passed int
	failed int
}

func main() {
	base := flag.String("base", "http://localhost:8080", "API base URL")
	async := flag.Bool("async", false, "also exercise the async job endpoints (needs a configured queue)")
	flag.Parse()

	r := &runner{
		base:   strings.TrimRight(*base, "/"),
		client: &http.Client{Timeout: 90 * time.Second},
	}

	r.check("health", r.checkHealth)
	r.check("emergency case routes to Emergency", r.checkEmergencyCase)
	r.check("routine case stays non-urgent", r.checkRoutineCase)
	r.check("empty case is rejected", r.checkEmptyCase)
	r.check("batch preserves order", r.checkBatch)
	r.check("allocation plan", r.checkAllocationPlan)
	r.check("bottleneck detection", r.checkBottlenecks)
	if *async {
		r.check("async job lifecycle", r.checkAsyncJob)
	}

	fmt.Printf("\n%d passed, %d failed\n", r.passed, r.failed)
	if r.failed > 0 {
		os.Exit(1)
	}
}

func (r *runner) check(name string, fn func() error) {
	if err := fn(); err != nil {
		r.failed++
		fmt.Printf("FAIL  %s: %v\n", name, err)
		return
	}
	r.passed++
	fmt.Printf("ok    %s\n", name)
}

func (r *runner) post(path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	resp, err := r.client.Post(r.base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w (body %q)", path, err, truncate(data))
		}
	}
	return resp.StatusCode, nil
}

func (r *runner) checkHealth() error {
	resp, err := r.client.Get(r.base + "/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

type decisionPayload struct {
	Decision struct {
		EmergencyLevel       string  `json:"emergency_level"`
		Confidence           float64 `json:"confidence"`
		Category             string  `json:"category"`
		EstimatedWaitMinutes int     `json:"estimated_wait_minutes"`
		Department           string  `json:"department"`
	} `json:"decision"`
	FinalScore float64 `json:"final_score"`
}

func validDecision(d decisionPayload) error {
	if d.Decision.Confidence < 0 || d.Decision.Confidence > 1 {
		return fmt.Errorf("confidence %f out of range", d.Decision.Confidence)
	}
	if d.Decision.EstimatedWaitMinutes < 0 || d.Decision.EstimatedWaitMinutes > 300 {
		return fmt.Errorf("wait %d out of range", d.Decision.EstimatedWaitMinutes)
	}
	switch d.Decision.Category {
	case "Emergency", "Urgent", "Semi-urgent", "Non-urgent":
		return nil
	default:
		return fmt.Errorf("category %q outside enum", d.Decision.Category)
	}
}

func (r *runner) checkEmergencyCase() error {
	var out decisionPayload
	status, err := r.post("/v1/triage", map[string]any{
		"symptom_text": "crushing chest pain radiating to the left arm",
		"age_band":     "senior",
	}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if err := validDecision(out); err != nil {
		return err
	}
	if out.Decision.Category != "Emergency" {
		return fmt.Errorf("expected Emergency, got %s", out.Decision.Category)
	}
	return nil
}

func (r *runner) checkRoutineCase() error {
	var out decisionPayload
	status, err := r.post("/v1/triage", map[string]any{
		"symptom_text": "runny nose and a sore throat since yesterday",
	}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if err := validDecision(out); err != nil {
		return err
	}
	if out.Decision.Category == "Emergency" {
		return fmt.Errorf("routine complaint was escalated to Emergency")
	}
	return nil
}

func (r *runner) checkEmptyCase() error {
	status, err := r.post("/v1/triage", map[string]any{"symptom_text": "   "}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusBadRequest {
		return fmt.Errorf("expected 400, got %d", status)
	}
	return nil
}

func (r *runner) checkBatch() error {
	var out struct {
		Results []struct {
			Index    int              `json:"index"`
			Decision *json.RawMessage `json:"decision"`
			Error    string           `json:"error"`
		} `json:"results"`
	}
	status, err := r.post("/v1/triage/batch", map[string]any{
		"cases": []map[string]any{
			{"symptom_text": "sprained ankle with mild swelling"},
			{"symptom_text": "persistent cough for a week"},
			{"symptom_text": "mild fever in a toddler", "age_band": "pediatric"},
		},
	}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if len(out.Results) != 3 {
		return fmt.Errorf("expected 3 results, got %d", len(out.Results))
	}
	for i, res := range out.Results {
		if res.Index != i {
			return fmt.Errorf("result %d carries index %d", i, res.Index)
		}
		if res.Error != "" {
			return fmt.Errorf("slot %d errored: %s", i, res.Error)
		}
	}
	return nil
}

func (r *runner) checkAllocationPlan() error {
	var out struct {
		Counts struct {
			Emergency int `json:"emergency"`
		} `json:"counts"`
		Recommendations []string `json:"recommendations"`
	}
	status, err := r.post("/v1/allocation/plan", map[string]any{
		"cases": []map[string]any{
			{"decision": map[string]any{"category": "Emergency"}, "final_score": 4.0},
			{"decision": map[string]any{"category": "Urgent"}, "final_score": 3.0},
		},
		"resources": map[string]any{"providers": 2},
	}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if out.Counts.Emergency != 1 {
		return fmt.Errorf("expected 1 emergency case, got %d", out.Counts.Emergency)
	}
	if len(out.Recommendations) == 0 {
		return fmt.Errorf("expected recommendations for an emergency-loaded plan")
	}
	return nil
}

func (r *runner) checkBottlenecks() error {
	var out struct {
		RiskLevel string `json:"risk_level"`
	}
	status, err := r.post("/v1/allocation/bottlenecks", map[string]any{
		"stage_counts": map[string]int{"registration": 3, "triage": 7},
	}, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if out.RiskLevel != "High" {
		return fmt.Errorf("expected High risk at 70%% triage load, got %s", out.RiskLevel)
	}
	return nil
}

func (r *runner) checkAsyncJob() error {
	var submitted struct {
		JobID string `json:"job_id"`
	}
	status, err := r.post("/v1/triage/jobs", map[string]any{
		"cases": []map[string]any{
			{"symptom_text": "migraine with light sensitivity"},
		},
	}, &submitted)
	if err != nil {
		return err
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("expected 202, got %d", status)
	}
	if submitted.JobID == "" {
		return fmt.Errorf("empty job_id")
	}

	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		resp, err := r.client.Get(r.base + "/v1/triage/jobs/" + submitted.JobID)
		if err != nil {
			return err
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("job status %d: %s", resp.StatusCode, truncate(data))
		}
		var job struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
		switch job.Status {
		case "completed":
			return nil
		case "failed":
			return fmt.Errorf("job failed: %s", truncate(data))
		}
		time.Sleep(2 * time.Second)
	}
	return fmt.Errorf("job %s did not complete in time", submitted.JobID)
}

func truncate(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
