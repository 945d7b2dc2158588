package triage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// batchSubmitter accepts a batch of cases for asynchronous processing.
type batchSubmitter interface {
	SubmitBatch(ctx context.Context, cases []CaseInput) (string, error)
}

// Handler wires HTTP requests to the triage engine and the async job
// pipeline. The submitter and job store may be nil when the deployment has no
// queue; the async endpoints then report service unavailable.
type Handler struct {
	engine    *Engine
	submitter batchSubmitter
	jobs      JobRecorder
	logger    *logging.Logger
}

// NewHandler creates a triage handler.
func NewHandler(engine *Engine, submitter batchSubmitter, jobs JobRecorder, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("triage: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		engine:    engine,
		submitter: submitter,
		jobs:      jobs,
		logger:    logger,
	}
}

type triageResponse struct {
	Decision            Decision `json:"decision"`
	FinalScore          float64  `json:"final_score"`
	ResourceRequirement string   `json:"resource_requirement"`
}

type batchRequest struct {
	Cases []CaseInput `json:"cases"`
}

type batchResponse struct {
	Results []JobCaseResult `json:"results"`
}

// Decide handles POST /v1/triage.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	var req CaseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode triage request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scored, err := h.engine.Score(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInputTooLong) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to triage case", "error", err)
		http.Error(w, "Failed to triage case", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, triageResponse{
		Decision:            scored.Decision,
		FinalScore:          scored.FinalScore,
		ResourceRequirement: scored.ResourceRequirement,
	})
}

// Batch handles POST /v1/triage/batch, deciding every case synchronously.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode batch request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Cases) == 0 {
		http.Error(w, "Batch requires at least one case", http.StatusBadRequest)
		return
	}

	results := h.engine.DecideBatch(r.Context(), req.Cases)
	h.writeJSON(w, http.StatusOK, batchResponse{Results: toJobCaseResults(results)})
}

// SubmitJob handles POST /v1/triage/jobs, enqueueing a batch for async
// processing and returning its job ID.
func (h *Handler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if h.submitter == nil {
		http.Error(w, "Async triage not configured", http.StatusServiceUnavailable)
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode job request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Cases) == 0 {
		http.Error(w, "Batch requires at least one case", http.StatusBadRequest)
		return
	}

	jobID, err := h.submitter.SubmitBatch(r.Context(), req.Cases)
	if err != nil {
		h.logger.Error("failed to submit triage job", "error", err)
		http.Error(w, "Failed to submit triage job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// JobStatus handles GET /v1/triage/jobs/{jobID}.
func (h *Handler) JobStatus(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Async triage not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to fetch job", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
