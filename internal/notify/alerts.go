package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/riverbend-health/hospital-ops-platform/internal/allocation"
	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

// defaultCooldown spaces repeat alerts of the same type.
const defaultCooldown = 15 * time.Minute

// Cooldown keys. One window per alert type, not per occurrence.
const (
	alertBottleneck = "bottleneck_high"
	alertSaturation = "emergency_saturation"
)

// AlertService emails the operations distribution list when patient flow
// crosses alerting thresholds. Each alert type gets at most one send per
// cooldown window; the window is claimed before delivery, so a failed send
// stays quiet until the window lapses.
type AlertService struct {
	sender     EmailSender
	recipients []string
	cooldown   time.Duration
	logger     *logging.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time

	nowFunc func() time.Time
}

// NewAlertService creates an alert service. A nil sender or an empty
// recipient list yields a service whose alerts are no-ops.
func NewAlertService(sender EmailSender, recipients []string, logger *logging.Logger) *AlertService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AlertService{
		sender:     sender,
		recipients: recipients,
		cooldown:   defaultCooldown,
		logger:     logger,
		lastSent:   make(map[string]time.Time),
		nowFunc:    time.Now,
	}
}

// WithCooldown overrides the per-alert-type cooldown window.
func (s *AlertService) WithCooldown(d time.Duration) *AlertService {
	if d > 0 {
		s.cooldown = d
	}
	return s
}

// AlertBottleneck emails when a congestion report grades overall risk High.
// Lower-risk reports are dropped without claiming the cooldown window.
func (s *AlertService) AlertBottleneck(ctx context.Context, report allocation.BottleneckReport) error {
	if report.RiskLevel != allocation.RiskHigh {
		return nil
	}

	var stages []string
	for _, st := range report.Stages {
		stages = append(stages, fmt.Sprintf("- %s: %d waiting (%.0f%% of load, %s risk)", st.Stage, st.Count, st.Percentage, st.Risk))
	}

	recsInfo := ""
	if len(report.Recommendations) > 0 {
		recsInfo = fmt.Sprintf("\n\nRecommended actions:\n%s", bulleted(report.Recommendations))
	}

	body := fmt.Sprintf(`Patient flow congestion has reached High risk.

Stage load:
%s%s

— Riverbend Ops`, strings.Join(stages, "\n"), recsInfo)

	return s.deliver(ctx, alertBottleneck, "⚠️ Patient flow bottleneck - High risk", body)
}

// AlertSaturation emails when an allocation plan holds emergency cases.
func (s *AlertService) AlertSaturation(ctx context.Context, plan allocation.AllocationPlan) error {
	if plan.Counts.Emergency == 0 {
		return nil
	}

	recsInfo := ""
	if len(plan.Recommendations) > 0 {
		recsInfo = fmt.Sprintf("\n\nRecommended actions:\n%s", bulleted(plan.Recommendations))
	}

	subject := fmt.Sprintf("🚨 Emergency load: %d case(s) waiting", plan.Counts.Emergency)
	body := fmt.Sprintf(`The triage queue is holding emergency cases.

Emergency: %d
Urgent: %d
Total waiting: %d
Providers on shift: %d%s

— Riverbend Ops`, plan.Counts.Emergency, plan.Counts.Urgent, plan.Total, plan.Providers, recsInfo)

	return s.deliver(ctx, alertSaturation, subject, body)
}

func (s *AlertService) deliver(ctx context.Context, key, subject, body string) error {
	if s.sender == nil || len(s.recipients) == 0 {
		s.logger.Debug("notify: no alert sender configured, dropping alert", "alert", key)
		return nil
	}
	if !s.claim(key) {
		s.logger.Debug("notify: alert inside cooldown window, suppressed", "alert", key)
		return nil
	}

	var errs []error
	for _, recipient := range s.recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d alert email(s) failed", len(errs))
	}

	s.logger.Info("operational alert sent", "alert", key, "recipients", len(s.recipients))
	return nil
}

// claim reports whether the alert type is outside its cooldown window and
// stamps the window when it is.
func (s *AlertService) claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFunc()
	if last, ok := s.lastSent[key]; ok && now.Sub(last) < s.cooldown {
		return false
	}
	s.lastSent[key] = now
	return true
}

func bulleted(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}

// Ensure interface compliance
var _ allocation.Alerter = (*AlertService)(nil)
