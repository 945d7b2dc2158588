package audit

import (
	"context"
	"encoding/json"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
)

// Sink adapts Service to the narrow LogEvent shape the triage engine and the
// allocator call. Well-known detail keys are lifted into typed columns; the
// full detail map is kept verbatim in the details payload.
type Sink struct {
	svc *Service
}

var _ triage.AuditSink = (*Sink)(nil)

// NewSink wraps an audit service for wiring into the pipelines.
func NewSink(svc *Service) *Sink {
	return &Sink{svc: svc}
}

// LogEvent persists one pipeline event.
func (s *Sink) LogEvent(ctx context.Context, eventType, subjectID string, detail map[string]any) error {
	event := Event{
		EventType: EventType(eventType),
		SubjectID: subjectID,
	}
	if len(detail) > 0 {
		if dept, ok := detail["department"].(string); ok {
			event.Department = dept
		}
		event.Actions = stringSlice(detail["actions"])
		if event.Actions == nil {
			event.Actions = stringSlice(detail["alerts"])
		}
		event.RiskFactors = stringSlice(detail["risk_factors"])
		detailsJSON, _ := json.Marshal(detail)
		event.Details = detailsJSON
	}
	return s.svc.LogEvent(ctx, event)
}

// stringSlice reads a detail value as a list of strings. Maps decoded from
// JSON carry []any, in-process callers pass []string; both are accepted.
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}
