package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverbend-health/hospital-ops-platform/cmd/mainconfig"
	"github.com/riverbend-health/hospital-ops-platform/internal/allocation"
	"github.com/riverbend-health/hospital-ops-platform/internal/api/router"
	"github.com/riverbend-health/hospital-ops-platform/internal/app/bootstrap"
	"github.com/riverbend-health/hospital-ops-platform/internal/archive"
	"github.com/riverbend-health/hospital-ops-platform/internal/audit"
	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/events"
	"github.com/riverbend-health/hospital-ops-platform/internal/http/handlers"
	"github.com/riverbend-health/hospital-ops-platform/internal/journal"
	"github.com/riverbend-health/hospital-ops-platform/internal/notify"
	"github.com/riverbend-health/hospital-ops-platform/internal/observability/metrics"
	"github.com/riverbend-health/hospital-ops-platform/internal/ops"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

func main() {
	// Absent .env is the normal production case; env vars are already set.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting hospital-ops-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	// Inference and decision cache
	stack, err := bootstrap.BuildInferenceStack(ctx, cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build inference stack", "error", err)
		os.Exit(1)
	}
	defer func() { _ = stack.Close() }()

	engineOpts := []triage.EngineOption{
		triage.WithCache(bootstrap.BuildDecisionCache(ctx, cfg, logger)),
		triage.WithEngineLogger(logger),
		triage.WithBatchWorkerLimit(cfg.BatchWorkerLimit),
	}

	// Persistence: decision journal, audit trail, and the dispatch outbox all
	// hang off the one DATABASE_URL.
	var (
		journalRepo *journal.Repository
		auditSvc    *audit.Service
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		sqlDB := stdlib.OpenDBFromPool(pool)
		defer func() { _ = sqlDB.Close() }()

		journalRepo = journal.NewRepository(pool)
		auditSvc = audit.NewService(sqlDB)
		engineOpts = append(engineOpts,
			triage.WithDispatcher(events.NewOutboxDispatcher(pool)),
			triage.WithAuditSink(audit.NewSink(auditSvc)),
		)

		if cfg.DispatchQueueURL != "" {
			deliverer := events.NewDeliverer(
				events.NewOutboxStore(pool),
				events.NewSQSDeliveryHandler(sqsClient, cfg.DispatchQueueURL),
				logger,
			)
			go deliverer.Start(ctx)
		} else {
			logger.Warn("DISPATCH_QUEUE_URL not set; dispatch events stay in the outbox")
		}
	} else {
		logger.Warn("DATABASE_URL not set; journal, audit trail and dispatch outbox disabled")
	}

	// Decision recorders fan out to every configured sink.
	var recorders []triage.DecisionRecorder
	if journalRepo != nil {
		recorders = append(recorders, journalRepo)
	}
	if cfg.ArchiveBucket != "" {
		store := archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, logger)
		recorders = append(recorders, archive.NewRecorder(store))
		logger.Info("decision archive enabled", "bucket", cfg.ArchiveBucket)
	}
	if rec := composeRecorders(recorders); rec != nil {
		engineOpts = append(engineOpts, triage.WithRecorder(rec))
	}

	engine := triage.NewEngine(stack.Client, stack.Model, engineOpts...)

	// Async batch jobs: SQS in production, an in-process queue for local work.
	jobStore := triage.NewJobStore(dynamoClient, cfg.TriageJobsTable, logger)
	var (
		publisher *triage.JobPublisher
		worker    *triage.Worker
	)
	switch {
	case cfg.UseMemoryQueue:
		memQueue := triage.NewMemoryQueue(128)
		publisher = triage.NewJobPublisher(memQueue, jobStore, logger)
		worker = triage.NewWorker(engine, memQueue, jobStore, logger,
			triage.WithWorkerCount(cfg.WorkerCount))
		worker.Start(ctx)
		logger.Info("in-process triage worker started", "workers", cfg.WorkerCount)
	case cfg.TriageQueueURL != "":
		publisher = triage.NewJobPublisher(triage.NewSQSQueue(sqsClient, cfg.TriageQueueURL), jobStore, logger)
	default:
		logger.Warn("no triage queue configured; async batch jobs disabled")
	}

	var triageHandler *triage.Handler
	if publisher != nil {
		triageHandler = triage.NewHandler(engine, publisher, jobStore, logger)
	} else {
		triageHandler = triage.NewHandler(engine, nil, jobStore, logger)
	}

	// Allocation planning, live board and threshold alerts
	boardState := ops.NewBoardState()
	allocOpts := []allocation.AllocatorOption{}
	if auditSvc != nil {
		allocOpts = append(allocOpts, allocation.WithAuditSink(audit.NewSink(auditSvc)))
	}
	allocator := allocation.NewAllocator(allocation.StaticBaselineProvider{}, logger, allocOpts...)

	handlerOpts := []allocation.HandlerOption{allocation.WithReportSink(boardState)}
	if sender := bootstrap.BuildAlertSender(awsCfg, cfg, logger); sender != nil && len(cfg.AlertEmails) > 0 {
		alertSvc := notify.NewAlertService(sender, cfg.AlertEmails, logger).WithCooldown(cfg.AlertCooldown)
		handlerOpts = append(handlerOpts, allocation.WithAlerter(alertSvc))
		logger.Info("operational alert emails enabled", "recipients", len(cfg.AlertEmails))
	}
	allocationHandler := allocation.NewHandler(allocator, logger, handlerOpts...)

	boardHub := ops.NewBoardHub(boardState, logger).WithInterval(cfg.BoardPushInterval)
	go boardHub.Start(ctx)

	// Admin surfaces need the database; the dashboard route stays mounted and
	// reports unavailable without one.
	var dashboard *ops.DashboardHandler
	var adminAudit *handlers.AdminAuditHandler
	var adminDecisions *handlers.AdminDecisionsHandler
	if journalRepo != nil {
		dashboard = ops.NewDashboardHandler(journalRepo, nil, logger)
		adminAudit = handlers.NewAdminAuditHandler(auditSvc, logger)
		adminDecisions = handlers.NewAdminDecisionsHandler(journalRepo, logger)
	} else {
		dashboard = ops.NewDashboardHandler(nil, nil, logger)
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin routes disabled")
	}

	r := router.New(&router.Config{
		Logger:             logger,
		TriageHandler:      triageHandler,
		AllocationHandler:  allocationHandler,
		Dashboard:          dashboard,
		Board:              boardHub,
		AdminAudit:         adminAudit,
		AdminDecisions:     adminDecisions,
		MetricsHandler:     promhttp.Handler(),
		HTTPMetrics:        metrics.NewHTTPMetrics(nil),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Stop the board pusher, outbox deliverer and in-process workers, then
	// wait for in-flight jobs to finish.
	cancel()
	if worker != nil {
		worker.Wait()
	}

	logger.Info("server stopped")
}

// composeRecorders collapses the configured decision sinks into the engine's
// single recorder seam. Nil when nothing is configured.
func composeRecorders(recorders []triage.DecisionRecorder) triage.DecisionRecorder {
	switch len(recorders) {
	case 0:
		return nil
	case 1:
		return recorders[0]
	default:
		return triage.MultiRecorder(recorders...)
	}
}
