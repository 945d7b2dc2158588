package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

const jobTTL = 24 * time.Hour

// JobStatus is the lifecycle of an async triage batch.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ErrJobNotFound indicates the requested job ID does not exist.
var ErrJobNotFound = errors.New("triage: job not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// JobCaseResult is the persisted form of one batch slot. Errors are flattened
// to strings for storage.
type JobCaseResult struct {
	Index    int       `dynamodbav:"index" json:"index"`
	Decision *Decision `dynamodbav:"decision,omitempty" json:"decision,omitempty"`
	Error    string    `dynamodbav:"error,omitempty" json:"error,omitempty"`
}

func toJobCaseResults(results []BatchResult) []JobCaseResult {
	out := make([]JobCaseResult, len(results))
	for i, r := range results {
		rec := JobCaseResult{Index: r.Index}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		} else {
			d := r.Decision
			rec.Decision = &d
		}
		out[i] = rec
	}
	return out
}

// JobRecord captures the persisted state of one submitted batch.
type JobRecord struct {
	JobID        string          `dynamodbav:"jobId" json:"job_id"`
	Status       JobStatus       `dynamodbav:"status" json:"status"`
	CaseCount    int             `dynamodbav:"caseCount" json:"case_count"`
	Results      []JobCaseResult `dynamodbav:"results,omitempty" json:"results,omitempty"`
	ErrorMessage string          `dynamodbav:"errorMessage,omitempty" json:"error_message,omitempty"`
	CreatedAt    string          `dynamodbav:"createdAt" json:"created_at"`
	UpdatedAt    string          `dynamodbav:"updatedAt" json:"updated_at"`
	ExpiresAt    int64           `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// JobRecorder creates and reads job records.
type JobRecorder interface {
	PutPending(ctx context.Context, job *JobRecord) error
	GetJob(ctx context.Context, jobID string) (*JobRecord, error)
}

// JobUpdater transitions job records to their terminal states.
type JobUpdater interface {
	MarkCompleted(ctx context.Context, jobID string, results []JobCaseResult) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
}

// JobStore persists job records to DynamoDB with a TTL.
type JobStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ JobRecorder = (*JobStore)(nil)
var _ JobUpdater = (*JobStore)(nil)

// NewJobStore builds a store backed by the provided DynamoDB client.
func NewJobStore(client dynamoAPI, tableName string, logger *logging.Logger) *JobStore {
	if client == nil {
		panic("triage: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("triage: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &JobStore{client: client, tableName: tableName, logger: logger}
}

// PutPending inserts a new pending job record.
func (s *JobStore) PutPending(ctx context.Context, job *JobRecord) error {
	if job == nil {
		return errors.New("triage: job cannot be nil")
	}
	now := time.Now().UTC()
	job.Status = JobStatusPending
	job.CreatedAt = now.Format(time.RFC3339Nano)
	job.UpdatedAt = job.CreatedAt
	if job.ExpiresAt == 0 {
		job.ExpiresAt = now.Add(jobTTL).Unix()
	}

	item, err := attributevalue.MarshalMap(job)
	if err != nil {
		return fmt.Errorf("triage: failed to marshal job: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(jobId)"),
	})
	if err != nil {
		return fmt.Errorf("triage: failed to persist job: %w", err)
	}
	return nil
}

// MarkCompleted stores the batch results and flips the job to completed.
func (s *JobStore) MarkCompleted(ctx context.Context, jobID string, results []JobCaseResult) error {
	if jobID == "" {
		return errors.New("triage: jobID required")
	}
	resultsAttr, err := attributevalue.Marshal(results)
	if err != nil {
		return fmt.Errorf("triage: failed to marshal results: %w", err)
	}

	return s.updateJob(
		ctx,
		jobID,
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(JobStatusCompleted)},
			":results": resultsAttr,
			":error":   &types.AttributeValueMemberS{Value: ""},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		map[string]string{
			"#status":  "status",
			"#results": "results",
			"#error":   "errorMessage",
			"#updated": "updatedAt",
		},
		"SET #status = :status, #results = :results, #error = :error, #updated = :updated",
	)
}

// MarkFailed flips the job to failed with the given message.
func (s *JobStore) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	if jobID == "" {
		return errors.New("triage: jobID required")
	}
	return s.updateJob(
		ctx,
		jobID,
		map[string]types.AttributeValue{
			":status":  &types.AttributeValueMemberS{Value: string(JobStatusFailed)},
			":results": &types.AttributeValueMemberNULL{Value: true},
			":error":   &types.AttributeValueMemberS{Value: errMsg},
			":updated": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		map[string]string{
			"#status":  "status",
			"#results": "results",
			"#error":   "errorMessage",
			"#updated": "updatedAt",
		},
		"SET #status = :status, #results = :results, #error = :error, #updated = :updated",
	)
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (*JobRecord, error) {
	if jobID == "" {
		return nil, errors.New("triage: jobID required")
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"jobId": &types.AttributeValueMemberS{Value: jobID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("triage: failed to fetch job: %w", err)
	}
	if out.Item == nil {
		return nil, ErrJobNotFound
	}

	var job JobRecord
	if err := attributevalue.UnmarshalMap(out.Item, &job); err != nil {
		return nil, fmt.Errorf("triage: failed to decode job: %w", err)
	}
	return &job, nil
}

func (s *JobStore) updateJob(ctx context.Context, jobID string, values map[string]types.AttributeValue, names map[string]string, expression string) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"jobId": &types.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression:          aws.String(expression),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(jobId)"),
	})
	if err != nil {
		return fmt.Errorf("triage: failed to update job %s: %w", jobID, err)
	}
	return nil
}
