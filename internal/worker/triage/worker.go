// Package triageworker assembles and runs the queue consumer that processes
// asynchronous triage batch jobs.
package triageworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/riverbend-health/hospital-ops-platform/cmd/mainconfig"
	appbootstrap "github.com/riverbend-health/hospital-ops-platform/internal/app/bootstrap"
	"github.com/riverbend-health/hospital-ops-platform/internal/archive"
	"github.com/riverbend-health/hospital-ops-platform/internal/audit"
	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/events"
	"github.com/riverbend-health/hospital-ops-platform/internal/journal"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// Run starts the async triage worker and blocks until ctx is canceled.
func Run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("triage worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.UseMemoryQueue {
		return fmt.Errorf("triage worker cannot run when USE_MEMORY_QUEUE=true; the API process runs inline workers instead")
	}
	if strings.TrimSpace(cfg.TriageQueueURL) == "" {
		return fmt.Errorf("triage worker requires TRIAGE_QUEUE_URL")
	}

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	stack, err := appbootstrap.BuildInferenceStack(ctx, cfg, awsConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to build inference stack: %w", err)
	}
	defer func() { _ = stack.Close() }()

	engineOpts := []triage.EngineOption{
		triage.WithCache(appbootstrap.BuildDecisionCache(ctx, cfg, logger)),
		triage.WithEngineLogger(logger),
		triage.WithBatchWorkerLimit(cfg.BatchWorkerLimit),
	}

	var recorders []triage.DecisionRecorder
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("worker failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		sqlDB := stdlib.OpenDBFromPool(pool)
		defer func() { _ = sqlDB.Close() }()

		recorders = append(recorders, journal.NewRepository(pool))
		engineOpts = append(engineOpts,
			triage.WithDispatcher(events.NewOutboxDispatcher(pool)),
			triage.WithAuditSink(audit.NewSink(audit.NewService(sqlDB))),
		)
	} else {
		logger.Warn("DATABASE_URL not set; worker decisions are not journaled or audited")
	}
	if cfg.ArchiveBucket != "" {
		store := archive.NewStore(s3.NewFromConfig(awsConfig), cfg.ArchiveBucket, logger)
		recorders = append(recorders, archive.NewRecorder(store))
	}
	switch len(recorders) {
	case 0:
	case 1:
		engineOpts = append(engineOpts, triage.WithRecorder(recorders[0]))
	default:
		engineOpts = append(engineOpts, triage.WithRecorder(triage.MultiRecorder(recorders...)))
	}

	engine := triage.NewEngine(stack.Client, stack.Model, engineOpts...)

	queue := triage.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.TriageQueueURL)
	jobStore := triage.NewJobStore(dynamodb.NewFromConfig(awsConfig), cfg.TriageJobsTable, logger)

	worker := triage.NewWorker(engine, queue, jobStore, logger,
		triage.WithWorkerCount(cfg.WorkerCount))

	worker.Start(ctx)
	logger.Info("triage worker started",
		"workers", cfg.WorkerCount,
		"queue", cfg.TriageQueueURL,
		"jobs_table", cfg.TriageJobsTable,
	)

	<-ctx.Done()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("triage worker stopped")
	case <-doneCtx.Done():
		logger.Error("triage worker shutdown timed out", "error", doneCtx.Err())
	}

	return nil
}
