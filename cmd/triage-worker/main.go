package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	triageworker "github.com/riverbend-health/hospital-ops-platform/internal/worker/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down triage worker...")
		cancel()
	}()

	if err := triageworker.Run(ctx, cfg, logger); err != nil {
		logger.Error("triage worker failed", "error", err)
		os.Exit(1)
	}
}
