package events

import "time"

// CaseDispatchRequestedV1 announces that a critical case needs an emergency
// response team routed to it.
type CaseDispatchRequestedV1 struct {
	PatientID      string    `json:"patient_id"`
	Department     string    `json:"department,omitempty"`
	EmergencyLevel string    `json:"emergency_level"`
	Reason         string    `json:"reason,omitempty"`
	RequestedAt    time.Time `json:"requested_at"`
}

func (CaseDispatchRequestedV1) EventType() string {
	return "triage.case.dispatch_requested.v1"
}
