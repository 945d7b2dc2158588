// Package journal persists every triage decision to Postgres for the ops
// dashboard and quality review. Writes are out of band; a journal failure
// never blocks the decision path.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one journaled decision row.
type Entry struct {
	ID             uuid.UUID `json:"id"`
	CaseID         string    `json:"case_id,omitempty"`
	Fingerprint    string    `json:"fingerprint"`
	Category       string    `json:"category"`
	EmergencyLevel string    `json:"emergency_level"`
	Confidence     float64   `json:"confidence"`
	FinalScore     float64   `json:"final_score"`
	Department     string    `json:"department"`
	Source         string    `json:"source"`
	DecidedAt      time.Time `json:"decided_at"`
}

// CohortRow is one day-by-category decision count for the dashboard.
type CohortRow struct {
	Day      time.Time `json:"day"`
	Category string    `json:"category"`
	Count    int       `json:"count"`
}

// Repository journals decisions in the triage_decisions table.
type Repository struct {
	pool querier
}

var _ triage.DecisionRecorder = (*Repository)(nil)

// NewRepository initializes a journal backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("journal: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithQuerier(q querier) *Repository {
	if q == nil {
		panic("journal: querier required")
	}
	return &Repository{pool: q}
}

// RecordDecision inserts one decision row. Duplicate case IDs are expected;
// every call journals a distinct row.
func (r *Repository) RecordDecision(ctx context.Context, in triage.CaseInput, d triage.Decision, score float64) error {
	query := `
		INSERT INTO triage_decisions
			(id, case_id, fingerprint, category, emergency_level, confidence, final_score, department, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.pool.Exec(ctx, query,
		uuid.New(),
		in.ID,
		triage.CacheKey(in),
		string(d.Category),
		string(d.EmergencyLevel),
		d.Confidence,
		score,
		d.Department,
		string(d.Source),
	); err != nil {
		return fmt.Errorf("journal: insert decision: %w", err)
	}
	return nil
}

// DecisionCohortByDay counts decisions per day and category in [start, end).
func (r *Repository) DecisionCohortByDay(ctx context.Context, start, end time.Time) ([]CohortRow, error) {
	query := `
		SELECT date_trunc('day', decided_at) AS day, category, count(*)
		FROM triage_decisions
		WHERE decided_at >= $1 AND decided_at < $2
		GROUP BY day, category
		ORDER BY day, category
	`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("journal: cohort query: %w", err)
	}
	defer rows.Close()

	var cohort []CohortRow
	for rows.Next() {
		var row CohortRow
		if err := rows.Scan(&row.Day, &row.Category, &row.Count); err != nil {
			return nil, fmt.Errorf("journal: scan cohort row: %w", err)
		}
		cohort = append(cohort, row)
	}
	return cohort, rows.Err()
}

// RecentByCategory returns the newest decisions in one category.
func (r *Repository) RecentByCategory(ctx context.Context, category string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, case_id, fingerprint, category, emergency_level, confidence, final_score, department, source, decided_at
		FROM triage_decisions
		WHERE category = $1
		ORDER BY decided_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, category, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.CaseID,
			&e.Fingerprint,
			&e.Category,
			&e.EmergencyLevel,
			&e.Confidence,
			&e.FinalScore,
			&e.Department,
			&e.Source,
			&e.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
