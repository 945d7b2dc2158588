// Command triagetest is a manual smoke test for the configured inference
// provider: it runs a handful of sample cases through the full triage
// pipeline and prints each decision. Useful for checking provider
// credentials and the fallback chain before a deploy.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/riverbend-health/hospital-ops-platform/cmd/mainconfig"
	"github.com/riverbend-health/hospital-ops-platform/internal/app/bootstrap"
	appconfig "github.com/riverbend-health/hospital-ops-platform/internal/config"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New("warn")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}

	stack, err := bootstrap.BuildInferenceStack(ctx, cfg, awsCfg, logger)
	if err != nil {
		log.Fatalf("build inference stack: %v", err)
	}
	defer func() { _ = stack.Close() }()

	if stack.Client == nil {
		fmt.Println("no inference provider configured; decisions below come from the rule table only")
	} else {
		fmt.Printf("provider: %s  model: %s\n", cfg.InferenceProvider, stack.Model)
	}

	engine := triage.NewEngine(stack.Client, stack.Model, triage.WithEngineLogger(logger))

	cases := []triage.CaseInput{
		{
			ID:          "smoke-1",
			SymptomText: "Crushing chest pain radiating to the left arm, started 20 minutes ago",
			AgeBand:     "senior",
			ArrivalTime: time.Now(),
		},
		{
			ID:          "smoke-2",
			SymptomText: "Persistent dry cough for two weeks, no fever",
			AgeBand:     "adult",
			ArrivalTime: time.Now(),
		},
		{
			ID:          "smoke-3",
			SymptomText: "Child fell off a bike, shallow cut on the knee, bleeding stopped",
			AgeBand:     "pediatric",
			History:     "no prior conditions",
			ArrivalTime: time.Now(),
		},
	}

	failed := false
	for _, c := range cases {
		start := time.Now()
		scored, err := engine.Score(ctx, c)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			failed = true
			fmt.Printf("\n[%s] FAILED after %v: %v\n", c.ID, elapsed, err)
			continue
		}
		out, _ := json.MarshalIndent(scored.Decision, "", "  ")
		fmt.Printf("\n[%s] %v  score=%.2f  source=%s\n%s\n",
			c.ID, elapsed, scored.FinalScore, scored.Decision.Source, out)
	}

	if failed {
		os.Exit(1)
	}
}
