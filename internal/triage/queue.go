package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// queueClient abstracts the batch-job transport: SQS in production, an
// in-memory channel in development and tests.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// jobPayload is the wire form of one queued triage batch.
type jobPayload struct {
	ID    string      `json:"id"`
	Cases []CaseInput `json:"cases"`
}

func encodeJobPayload(p jobPayload) (jobPayload, string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return jobPayload{}, "", fmt.Errorf("triage: failed to encode job payload: %w", err)
	}
	return p, string(body), nil
}

// jobPublisherStore is the slice of the job store the publisher needs.
type jobPublisherStore interface {
	PutPending(ctx context.Context, job *JobRecord) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
}

// JobPublisher enqueues triage batches and records their pending status so
// callers can poll for results.
type JobPublisher struct {
	queue  queueClient
	jobs   jobPublisherStore
	logger *logging.Logger
}

// NewJobPublisher builds a publisher over the given queue and job store.
func NewJobPublisher(queue queueClient, jobs jobPublisherStore, logger *logging.Logger) *JobPublisher {
	if queue == nil {
		panic("triage: queue cannot be nil")
	}
	if jobs == nil {
		panic("triage: job store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobPublisher{queue: queue, jobs: jobs, logger: logger}
}

// SubmitBatch records a pending job and enqueues it, returning the job ID.
func (p *JobPublisher) SubmitBatch(ctx context.Context, cases []CaseInput) (string, error) {
	if len(cases) == 0 {
		return "", errors.New("triage: batch requires at least one case")
	}

	payload, body, err := encodeJobPayload(jobPayload{Cases: cases})
	if err != nil {
		return "", err
	}

	record := &JobRecord{JobID: payload.ID, CaseCount: len(cases)}
	if err := p.jobs.PutPending(ctx, record); err != nil {
		return "", err
	}
	if err := p.queue.Send(ctx, body); err != nil {
		if storeErr := p.jobs.MarkFailed(ctx, payload.ID, "enqueue failed"); storeErr != nil {
			p.logger.Error("failed to mark unenqueued job", "job_id", payload.ID, "error", storeErr)
		}
		return "", err
	}

	p.logger.Info("triage batch enqueued", "job_id", payload.ID, "cases", len(cases))
	return payload.ID, nil
}
