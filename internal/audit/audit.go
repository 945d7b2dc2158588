// Package audit records immutable operational audit events for the triage
// and allocation pipelines.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventType identifies the kind of audited occurrence.
type EventType string

const (
	// EventInputRejected is logged when case text fails sanitization.
	EventInputRejected EventType = "triage.input_rejected"
	// EventInferenceFailed is logged when the model call errors and the
	// pipeline falls back to rule-only scoring.
	EventInferenceFailed EventType = "triage.inference_failed"
	// EventParserFallback is logged when the model reply could not be read
	// as structured output.
	EventParserFallback EventType = "triage.parser_fallback"
	// EventCriticalDispatch is logged when a critical case triggers an
	// emergency dispatch request.
	EventCriticalDispatch EventType = "triage.critical_dispatch"
	// EventAllocationAlert is logged when a staffing plan crosses a
	// capacity threshold.
	EventAllocationAlert EventType = "allocation.alert_raised"
)

// Event is an immutable audit record.
type Event struct {
	ID          string          `json:"id"`
	EventType   EventType       `json:"event_type"`
	SubjectID   string          `json:"subject_id,omitempty"`
	Department  string          `json:"department,omitempty"`
	Actions     []string        `json:"actions,omitempty"`
	RiskFactors []string        `json:"risk_factors,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EventDetails contains event-specific details.
type EventDetails struct {
	// For input rejected
	Reason string `json:"reason,omitempty"`

	// For inference failed
	Error string `json:"error,omitempty"`

	// For parser fallback
	Tier string `json:"tier,omitempty"`

	// For allocation alerts
	Emergency int `json:"emergency,omitempty"`
	Urgent    int `json:"urgent,omitempty"`
	Total     int `json:"total,omitempty"`
	Providers int `json:"providers,omitempty"`
}

// Service handles audit event persistence.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// LogEvent records an audit event. Missing IDs and timestamps are filled in.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, subject_id, department,
			actions, risk_factors, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		nullString(event.SubjectID),
		nullString(event.Department),
		pq.Array(event.Actions),
		pq.Array(event.RiskFactors),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: log event: %w", err)
	}

	return nil
}

// LogInputRejected records a case whose text failed sanitization.
func (s *Service) LogInputRejected(ctx context.Context, caseID, reason string) error {
	details := EventDetails{Reason: reason}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, Event{
		EventType: EventInputRejected,
		SubjectID: caseID,
		Details:   detailsJSON,
	})
}

// LogInferenceFailure records a failed model call.
func (s *Service) LogInferenceFailure(ctx context.Context, caseID, errMsg string) error {
	details := EventDetails{Error: errMsg}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, Event{
		EventType: EventInferenceFailed,
		SubjectID: caseID,
		Details:   detailsJSON,
	})
}

// LogParserFallback records a model reply that could not be parsed as
// structured output. Tier names the stage that produced the decision.
func (s *Service) LogParserFallback(ctx context.Context, caseID, tier string) error {
	details := EventDetails{Tier: tier}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, Event{
		EventType: EventParserFallback,
		SubjectID: caseID,
		Details:   detailsJSON,
	})
}

// LogCriticalDispatch records an emergency dispatch request for a critical
// case, along with the recommended actions and risk factors behind it.
func (s *Service) LogCriticalDispatch(ctx context.Context, patientID, department string, actions, riskFactors []string) error {
	return s.LogEvent(ctx, Event{
		EventType:   EventCriticalDispatch,
		SubjectID:   patientID,
		Department:  department,
		Actions:     actions,
		RiskFactors: riskFactors,
	})
}

// LogAllocationAlert records a staffing plan that crossed capacity thresholds.
func (s *Service) LogAllocationAlert(ctx context.Context, alerts []string, emergency, urgent, total, providers int) error {
	details := EventDetails{
		Emergency: emergency,
		Urgent:    urgent,
		Total:     total,
		Providers: providers,
	}
	detailsJSON, _ := json.Marshal(details)

	return s.LogEvent(ctx, Event{
		EventType: EventAllocationAlert,
		Actions:   alerts,
		Details:   detailsJSON,
	})
}

// QueryEvents retrieves audit events with filters.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, subject_id, department,
			   actions, risk_factors, details, created_at
		FROM audit_events
	`
	var (
		conds []string
		args  []interface{}
	)
	argIdx := 1

	if filter.SubjectID != "" {
		conds = append(conds, fmt.Sprintf("subject_id = $%d", argIdx))
		args = append(args, filter.SubjectID)
		argIdx++
	}
	if filter.EventType != "" {
		conds = append(conds, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, filter.EndTime)
		argIdx++
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var subjectID, department sql.NullString
		err := rows.Scan(
			&e.ID, &e.EventType, &subjectID, &department,
			pq.Array(&e.Actions), pq.Array(&e.RiskFactors),
			&e.Details, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: scan event: %w", err)
		}
		e.SubjectID = subjectID.String
		e.Department = department.String
		if e.Actions == nil {
			e.Actions = []string{}
		}
		if e.RiskFactors == nil {
			e.RiskFactors = []string{}
		}
		events = append(events, e)
	}

	return events, nil
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	SubjectID string
	EventType EventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
