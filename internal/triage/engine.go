package triage

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/riverbend-health/hospital-ops-platform/pkg/logging"
)

var engineTracer = otel.Tracer("hospitalops.internal.triage.engine")

const defaultBatchWorkerLimit = 8

// Audit event types emitted by the engine.
const (
	auditInputRejected    = "triage.input_rejected"
	auditInferenceFailed  = "triage.inference_failed"
	auditParserFallback   = "triage.parser_fallback"
	auditCriticalDispatch = "triage.critical_dispatch"
)

// DecisionRecorder persists finished decisions out of band. Implementations
// must tolerate duplicate case IDs.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, in CaseInput, d Decision, score float64) error
}

// MultiRecorder fans a decision out to several recorders, in the spirit of
// io.MultiWriter. Every recorder runs; the first error wins.
func MultiRecorder(recorders ...DecisionRecorder) DecisionRecorder {
	return multiRecorder(recorders)
}

type multiRecorder []DecisionRecorder

func (m multiRecorder) RecordDecision(ctx context.Context, in CaseInput, d Decision, score float64) error {
	var firstErr error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordDecision(ctx, in, d, score); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AuditSink receives compliance events from the pipeline. Failures are logged
// and never fail a decision.
type AuditSink interface {
	LogEvent(ctx context.Context, eventType, subjectID string, detail map[string]any) error
}

// Engine runs the full triage pipeline: sanitize, cache, infer, parse, blend,
// route. Construct one per process and share it; all methods are safe for
// concurrent use.
type Engine struct {
	client     InferenceClient
	model      string
	cache      DecisionCache
	logger     *logging.Logger
	recorder   DecisionRecorder
	dispatcher Dispatcher
	audit      AuditSink
	batchLimit int
	flight     singleflight.Group
	now        func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithCache replaces the default in-memory decision cache.
func WithCache(c DecisionCache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithRecorder wires a decision journal.
func WithRecorder(r DecisionRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithDispatcher wires the critical-case dispatch collaborator.
func WithDispatcher(d Dispatcher) EngineOption {
	return func(e *Engine) { e.dispatcher = d }
}

// WithAuditSink wires the compliance event sink.
func WithAuditSink(a AuditSink) EngineOption {
	return func(e *Engine) { e.audit = a }
}

// WithEngineLogger overrides the default logger.
func WithEngineLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBatchWorkerLimit bounds DecideBatch concurrency.
func WithBatchWorkerLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.batchLimit = n
		}
	}
}

// NewEngine builds the triage engine. A nil client is allowed and yields a
// rule-only engine; with a client set, model must be non-empty.
func NewEngine(client InferenceClient, model string, opts ...EngineOption) *Engine {
	if client != nil && model == "" {
		panic("triage: model is required when an inference client is set")
	}
	e := &Engine{
		client:     client,
		model:      model,
		logger:     logging.Default(),
		batchLimit: defaultBatchWorkerLimit,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewMemoryCache(0, 0)
	}
	return e
}

// Decide triages one case. The only errors returned are ErrEmptyInput and
// ErrInputTooLong; every downstream failure degrades to a valid Decision.
func (e *Engine) Decide(ctx context.Context, in CaseInput) (Decision, error) {
	d, _, err := e.run(ctx, in)
	return d, err
}

// Score triages one case and returns it with the blended numeric score and
// resource requirement attached, for allocation planning.
func (e *Engine) Score(ctx context.Context, in CaseInput) (ScoredCase, error) {
	d, score, err := e.run(ctx, in)
	if err != nil {
		return ScoredCase{}, err
	}
	return ScoredCase{
		Case:                in,
		Decision:            d,
		FinalScore:          score,
		ResourceRequirement: requirementForCategory(d.Category),
	}, nil
}

// DecideBatch fans cases through the pipeline with bounded concurrency.
// Results are index-aligned with the input; per-case failures become error
// entries and never abort the batch.
func (e *Engine) DecideBatch(ctx context.Context, cases []CaseInput) []BatchResult {
	results := make([]BatchResult, len(cases))
	if len(cases) == 0 {
		return results
	}
	limit := e.batchLimit
	if limit <= 0 {
		limit = defaultBatchWorkerLimit
	}
	if limit > len(cases) {
		limit = len(cases)
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, in := range cases {
		wg.Add(1)
		go func(i int, in CaseInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			d, err := e.Decide(ctx, in)
			results[i] = BatchResult{Index: i, Decision: d, Err: err}
		}(i, in)
	}
	wg.Wait()
	return results
}

type flightResult struct {
	decision Decision
	score    float64
}

func (e *Engine) run(ctx context.Context, in CaseInput) (Decision, float64, error) {
	ctx, span := engineTracer.Start(ctx, "triage.decide")
	defer span.End()

	clean, err := sanitizeCase(in)
	if err != nil {
		span.RecordError(err)
		e.auditEvent(ctx, auditInputRejected, in.ID, map[string]any{"reason": err.Error()})
		return Decision{}, 0, err
	}

	key := CacheKey(clean)
	if cached, ok := e.cacheGet(ctx, key); ok {
		span.SetAttributes(attribute.Bool("hospitalops.triage.cache_hit", true))
		score := e.scoreForCached(clean, cached)
		cached.Source = SourceCache
		e.finish(ctx, clean, cached)
		return cached, score, nil
	}

	v, _, shared := e.flight.Do(key, func() (interface{}, error) {
		d, score := e.compute(ctx, clean)
		if err := e.cache.Put(ctx, key, d); err != nil {
			e.logger.Warn("decision cache write failed", "case_id", clean.ID, "error", err)
		}
		e.record(ctx, clean, d, score)
		return flightResult{decision: d, score: score}, nil
	})
	if shared {
		cacheEventsTotal.WithLabelValues("coalesced").Inc()
	}

	res := v.(flightResult)
	e.finish(ctx, clean, res.decision)
	return res.decision, res.score, nil
}

// compute runs the uncached pipeline: rules, optional inference, blend.
func (e *Engine) compute(ctx context.Context, in CaseInput) (Decision, float64) {
	rule := EvaluateRules(in)
	ai := e.infer(ctx, in)
	d, score := Blend(rule, ai)
	if d.Department == "" {
		d.Department = ResolveDepartment(in.SymptomText, d.Category, in.RequestedDepartment)
	}
	return d, score
}

// infer calls the configured inference client and parses the output. Any
// failure returns nil so the blender falls back to rule-only scoring.
func (e *Engine) infer(ctx context.Context, in CaseInput) *Decision {
	if e.client == nil {
		return nil
	}
	ctx, span := engineTracer.Start(ctx, "triage.infer")
	defer span.End()
	span.SetAttributes(attribute.String("hospitalops.triage.model", e.model))

	start := time.Now()
	resp, err := e.client.Infer(ctx, InferenceRequest{Model: e.model, Prompt: buildTriagePrompt(in)})
	status := "ok"
	if err != nil {
		status = "error"
	}
	inferenceLatency.WithLabelValues(e.model, status).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		e.logger.Warn("inference failed, scoring with rules only", "case_id", in.ID, "error", err)
		e.auditEvent(ctx, auditInferenceFailed, in.ID, map[string]any{"error": err.Error()})
		return nil
	}

	d := ParseDecision(resp.Content)
	switch d.Source {
	case SourceParserFallback:
		e.auditEvent(ctx, auditParserFallback, in.ID, map[string]any{"tier": "heuristic"})
	case SourceParserDefault:
		e.auditEvent(ctx, auditParserFallback, in.ID, map[string]any{"tier": "default"})
	}
	return &d
}

// finish applies the per-caller tail of the pipeline: decision accounting and
// dispatch eligibility. Runs on cache hits and coalesced calls too, since each
// caller carries a distinct patient.
func (e *Engine) finish(ctx context.Context, in CaseInput, d Decision) {
	decisionsTotal.WithLabelValues(string(d.Category), string(d.Source)).Inc()
	e.maybeDispatch(ctx, in, d)
}

func (e *Engine) maybeDispatch(ctx context.Context, in CaseInput, d Decision) {
	if e.dispatcher == nil || d.EmergencyLevel != LevelCritical || in.ID == "" {
		return
	}
	req := DispatchRequest{
		PatientID:   in.ID,
		Department:  d.Department,
		Level:       d.EmergencyLevel,
		Reason:      d.Reasoning,
		RequestedAt: e.now(),
	}
	if err := e.dispatcher.RequestDispatch(ctx, req); err != nil {
		e.logger.Error("dispatch request failed", "case_id", in.ID, "error", err)
		return
	}
	e.auditEvent(ctx, auditCriticalDispatch, in.ID, map[string]any{
		"department":   d.Department,
		"actions":      d.Actions,
		"risk_factors": d.RiskFactors,
	})
}

func (e *Engine) cacheGet(ctx context.Context, key string) (Decision, bool) {
	d, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		e.logger.Warn("decision cache read failed", "error", err)
		cacheEventsTotal.WithLabelValues("error").Inc()
		return Decision{}, false
	}
	if !ok {
		cacheEventsTotal.WithLabelValues("miss").Inc()
		return Decision{}, false
	}
	cacheEventsTotal.WithLabelValues("hit").Inc()
	return d, true
}

// scoreForCached rebuilds the numeric score for a cache-served decision. The
// rule multipliers are recomputed for this caller; the AI terms come from the
// cached decision when it was AI-routed, otherwise the rule-only score stands.
func (e *Engine) scoreForCached(in CaseInput, d Decision) float64 {
	rule := EvaluateRules(in)
	switch d.Source {
	case SourceAI, SourceAILowTrust:
		_, score := Blend(rule, &d)
		return score
	default:
		return rule.Score()
	}
}

func (e *Engine) record(ctx context.Context, in CaseInput, d Decision, score float64) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordDecision(ctx, in, d, score); err != nil {
		e.logger.Error("decision journal write failed", "case_id", in.ID, "error", err)
	}
}

func (e *Engine) auditEvent(ctx context.Context, eventType, subjectID string, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if err := e.audit.LogEvent(ctx, eventType, subjectID, detail); err != nil {
		e.logger.Warn("audit event write failed", "event_type", eventType, "error", err)
	}
}

func requirementForCategory(c Category) string {
	switch c {
	case CategoryEmergency:
		return "resuscitation bay"
	case CategoryUrgent:
		return "acute care slot"
	case CategorySemiUrgent:
		return "standard exam room"
	default:
		return "clinic visit"
	}
}
