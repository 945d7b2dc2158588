package archive

import (
	"context"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
)

// Recorder adapts Store to the triage decision-recorder seam. Free-text case
// fields are scrubbed before anything leaves the process.
type Recorder struct {
	store *Store
}

var _ triage.DecisionRecorder = (*Recorder)(nil)

// NewRecorder wraps an archive store. A disabled store makes every record a
// no-op, so wiring stays unconditional.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// RecordDecision archives one decided case.
func (r *Recorder) RecordDecision(ctx context.Context, in triage.CaseInput, d triage.Decision, score float64) error {
	if !r.store.Enabled() {
		return nil
	}
	record := &DecisionRecord{
		Version:    "1.0",
		CaseID:     in.ID,
		ArchivedAt: time.Now().UTC(),
		Case: CaseDetails{
			SymptomText:         ScrubPII(in.SymptomText),
			AgeBand:             in.AgeBand,
			History:             ScrubPII(in.History),
			Context:             ScrubPII(in.Context),
			Insurance:           in.Insurance,
			ArrivalTime:         in.ArrivalTime,
			RequestedDepartment: in.RequestedDepartment,
		},
		Decision: DecisionDetails{
			EmergencyLevel:       string(d.EmergencyLevel),
			Confidence:           d.Confidence,
			Category:             string(d.Category),
			EstimatedWaitMinutes: d.EstimatedWaitMinutes,
			Department:           d.Department,
			Actions:              d.Actions,
			RiskFactors:          d.RiskFactors,
			Reasoning:            ScrubPII(d.Reasoning),
			Source:               string(d.Source),
		},
		FinalScore: score,
	}
	return r.store.ArchiveDecision(ctx, record)
}
