package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riverbend-health/hospital-ops-platform/internal/allocation"
	"github.com/riverbend-health/hospital-ops-platform/internal/http/handlers"
	httpmiddleware "github.com/riverbend-health/hospital-ops-platform/internal/http/middleware"
	"github.com/riverbend-health/hospital-ops-platform/internal/observability/metrics"
	"github.com/riverbend-health/hospital-ops-platform/internal/ops"
	"github.com/riverbend-health/hospital-ops-platform/internal/triage"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// Config holds router configuration. Nil handlers disable their routes.
type Config struct {
	Logger            *logging.Logger
	TriageHandler     *triage.Handler
	AllocationHandler *allocation.Handler
	Dashboard         *ops.DashboardHandler
	Board             *ops.BoardHub
	AdminAudit        *handlers.AdminAuditHandler
	AdminDecisions    *handlers.AdminDecisionsHandler
	MetricsHandler    http.Handler
	HTTPMetrics       *metrics.HTTPMetrics

	AdminAuthSecret    string
	AdminRatePerSec    float64 // default 5
	AdminRateBurst     int     // default 10
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.HTTPMetrics != nil {
		r.Use(httpmiddleware.HTTPMetrics(cfg.HTTPMetrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.TriageHandler != nil {
			v1.Route("/triage", func(rt chi.Router) {
				rt.Post("/", cfg.TriageHandler.Decide)
				rt.Post("/batch", cfg.TriageHandler.Batch)
				rt.Post("/jobs", cfg.TriageHandler.SubmitJob)
				rt.Get("/jobs/{jobID}", cfg.TriageHandler.JobStatus)
			})
		}
		if cfg.AllocationHandler != nil {
			v1.Route("/allocation", func(ra chi.Router) {
				ra.Post("/plan", cfg.AllocationHandler.Plan)
				ra.Post("/bottlenecks", cfg.AllocationHandler.Bottlenecks)
			})
		}
	})

	// Admin routes sit behind HMAC JWT plus a per-IP rate limit.
	if cfg.AdminAuthSecret != "" {
		ratePerSec := cfg.AdminRatePerSec
		if ratePerSec <= 0 {
			ratePerSec = 5
		}
		burst := cfg.AdminRateBurst
		if burst <= 0 {
			burst = 10
		}

		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.RateLimit(ratePerSec, burst))
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			if cfg.Dashboard != nil {
				admin.Get("/dashboard", cfg.Dashboard.GetDashboard)
			}
			if cfg.AdminAudit != nil {
				admin.Get("/audit-events", cfg.AdminAudit.ListEvents)
			}
			if cfg.AdminDecisions != nil {
				admin.Get("/decisions/recent", cfg.AdminDecisions.RecentDecisions)
			}
		})
	}

	if cfg.Board != nil {
		r.Get("/live/board", cfg.Board.HandleBoard)
	}

	return r
}
