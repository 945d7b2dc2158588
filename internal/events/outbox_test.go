package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithQuerier(mock)

	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), "case:patient-1", "triage.case.dispatch_requested.v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Insert(context.Background(), "case:patient-1", "triage.case.dispatch_requested.v1", map[string]string{"patient_id": "patient-1"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "aggregate", "event_type", "payload", "created_at"}).
		AddRow(id, "case:patient-1", "triage.case.dispatch_requested.v1", []byte(`{"patient_id":"patient-1"}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("unexpected entries: %#v", entries)
	}
	if entries[0].Aggregate != "case:patient-1" {
		t.Fatalf("unexpected aggregate: %s", entries[0].Aggregate)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkDeliveredAlreadyTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithQuerier(mock)

	id := uuid.New()
	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if ok {
		t.Fatal("expected mark delivered to report a miss")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type stubHandler struct {
	mu      sync.Mutex
	handled []OutboxEntry
	failFor string
}

func (h *stubHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, entry)
	if h.failFor != "" && entry.Type == h.failFor {
		return context.DeadlineExceeded
	}
	return nil
}

func TestDelivererDrainSkipsFailedDeliveries(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithQuerier(mock)
	handler := &stubHandler{failFor: "event.v1"}
	deliverer := NewDeliverer(store, handler, nil).WithBatchSize(10)

	delivered := uuid.New()
	stuck := uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "aggregate", "event_type", "payload", "created_at"}).
		AddRow(delivered, "case:patient-1", "triage.case.dispatch_requested.v1", []byte(`{}`), now).
		AddRow(stuck, "case:patient-2", "event.v1", []byte(`{}`), now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10)).WillReturnRows(rows)
	mock.ExpectExec("UPDATE outbox").WithArgs(delivered).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	deliverer.drain(context.Background())

	if len(handler.handled) != 2 {
		t.Fatalf("expected both entries handled, got %d", len(handler.handled))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelivererDefaults(t *testing.T) {
	d := NewDeliverer(nil, nil, nil)
	if d.batchSize != 25 {
		t.Fatalf("unexpected default batch size: %d", d.batchSize)
	}
	if d.interval != 2*time.Second {
		t.Fatalf("unexpected default interval: %s", d.interval)
	}
	d.WithBatchSize(0).WithInterval(0)
	if d.batchSize != 25 || d.interval != 2*time.Second {
		t.Fatal("zero values must not override defaults")
	}
	d.WithBatchSize(5).WithInterval(250 * time.Millisecond)
	if d.batchSize != 5 || d.interval != 250*time.Millisecond {
		t.Fatal("builder overrides were dropped")
	}
}
