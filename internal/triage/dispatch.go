package triage

import (
	"context"
	"time"
)

// DispatchRequest asks the dispatch collaborator to mobilize a response for a
// critical case. The engine signals eligibility only; delivery, retries, and
// escalation belong to the implementation.
type DispatchRequest struct {
	PatientID   string         `json:"patient_id"`
	Department  string         `json:"department"`
	Level       EmergencyLevel `json:"emergency_level"`
	Reason      string         `json:"reason,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
}

// Dispatcher is implemented by the transactional outbox in production and by
// fakes in tests.
type Dispatcher interface {
	RequestDispatch(ctx context.Context, req DispatchRequest) error
}
