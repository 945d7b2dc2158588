package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
)

// OutboxDispatcher records emergency dispatch requests as canonical outbox
// events, so the deliverer pushes them to the response channel even if the
// process dies right after the decision.
type OutboxDispatcher struct {
	exec execer
}

var _ triage.Dispatcher = (*OutboxDispatcher)(nil)

func NewOutboxDispatcher(pool *pgxpool.Pool) *OutboxDispatcher {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &OutboxDispatcher{exec: pool}
}

func newOutboxDispatcherWithExec(exec execer) *OutboxDispatcher {
	if exec == nil {
		panic("events: exec required")
	}
	return &OutboxDispatcher{exec: exec}
}

// RequestDispatch appends a case.dispatch_requested event for the patient.
func (d *OutboxDispatcher) RequestDispatch(ctx context.Context, req triage.DispatchRequest) error {
	if strings.TrimSpace(req.PatientID) == "" {
		return fmt.Errorf("events: dispatch requires a patient id")
	}
	evt := CaseDispatchRequestedV1{
		PatientID:      req.PatientID,
		Department:     req.Department,
		EmergencyLevel: string(req.Level),
		Reason:         req.Reason,
		RequestedAt:    req.RequestedAt,
	}
	_, err := AppendCanonicalEvent(ctx, d.exec, "case:"+req.PatientID, "", evt)
	return err
}
