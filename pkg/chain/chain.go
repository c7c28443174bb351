// Package chain composes analyzer, router, validator and the
// assistant capability into a bounded-retry orchestration pipeline,
// in buffered and streaming forms.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/zen-systems/chainflow/pkg/adapter"
	"github.com/zen-systems/chainflow/pkg/analyzer"
	"github.com/zen-systems/chainflow/pkg/catalog"
	"github.com/zen-systems/chainflow/pkg/metrics"
	"github.com/zen-systems/chainflow/pkg/router"
	"github.com/zen-systems/chainflow/pkg/selector"
	"github.com/zen-systems/chainflow/pkg/structured"
	"github.com/zen-systems/chainflow/pkg/telemetry"
	"github.com/zen-systems/chainflow/pkg/validator"
)

// Analyzer scores query complexity and category.
type Analyzer interface {
	Analyze(ctx context.Context, message string, history []adapter.Message) (*analyzer.Result, error)
}

// Router builds a routing plan from an analysis.
type Router interface {
	Route(ctx context.Context, analysis *analyzer.Result, available []string, preferCheap bool) *router.Plan
}

// Validator judges execution results.
type Validator interface {
	ValidateSimple(content string) *validator.Result
	Validate(ctx context.Context, message string, analysis *analyzer.Result, content string, availableModels []string) (*validator.Result, error)
}

// Execution is the outcome of one execution attempt.
type Execution struct {
	Content string        `json:"content"`
	Model   string        `json:"model"`
	Tokens  adapter.Usage `json:"tokens"`
	Cost    float64       `json:"cost"`
	Latency time.Duration `json:"latency"`
}

// Result is the terminal artifact of one orchestration run.
type Result struct {
	Analysis       *analyzer.Result  `json:"analysis"`
	Plan           *router.Plan      `json:"plan,omitempty"`
	Execution      *Execution        `json:"execution"`
	Validation     *validator.Result `json:"validation,omitempty"`
	RetryCount     int               `json:"retry_count"`
	TotalLatency   time.Duration     `json:"total_latency"`
	Successful     bool              `json:"successful"`
	Timestamp      time.Time         `json:"timestamp"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// Orchestrator runs the analyze/route/execute/validate pipeline.
type Orchestrator struct {
	assistant  adapter.Assistant
	analyzer   Analyzer
	router     Router
	validator  Validator
	catalog    *catalog.Catalog
	cache      *router.Cache
	store      telemetry.Store
	structurer structured.Service
	metrics    *metrics.Metrics
	config     Config
	debug      bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCatalog sets the model catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(o *Orchestrator) { o.catalog = cat }
}

// WithCache sets the route cache.
func WithCache(c *router.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithStore sets the routing decision store.
func WithStore(s telemetry.Store) Option {
	return func(o *Orchestrator) { o.store = s }
}

// WithStructurer sets the structured query service.
func WithStructurer(s structured.Service) Option {
	return func(o *Orchestrator) { o.structurer = s }
}

// WithMetrics sets the prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithAnalyzer overrides the analyzer agent.
func WithAnalyzer(a Analyzer) Option {
	return func(o *Orchestrator) { o.analyzer = a }
}

// WithRouter overrides the router agent.
func WithRouter(r Router) Option {
	return func(o *Orchestrator) { o.router = r }
}

// WithValidator overrides the validator agent.
func WithValidator(v Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithDebug enables debug logging.
func WithDebug(debug bool) Option {
	return func(o *Orchestrator) { o.debug = debug }
}

// New creates an orchestrator over the given assistant. Agents not
// overridden by options are built from the assistant and config.
func New(assistant adapter.Assistant, cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()
	o := &Orchestrator{
		assistant: assistant,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.catalog == nil {
		o.catalog = catalog.Default()
	}
	if o.cache == nil {
		o.cache = router.NewCache(router.DefaultCacheTTL, router.DefaultCacheCap)
	}
	if o.analyzer == nil {
		o.analyzer = analyzer.New(assistant, cfg.AnalyzerModel, analyzer.WithDebug(o.debug))
	}
	if o.router == nil {
		o.router = router.New(o.catalog, selector.New(selector.WithDebug(o.debug)), router.WithDebug(o.debug))
	}
	if o.validator == nil {
		o.validator = validator.New(assistant, cfg.ValidatorModel, validator.WithDebug(o.debug))
	}
	return o
}

// Orchestrate runs the full pipeline and returns the terminal result.
// Telemetry is persisted before returning; persistence failures are
// logged and swallowed.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (*Result, error) {
	result, err := o.run(ctx, req, nil)
	if err != nil {
		return nil, err
	}
	o.persist(ctx, req, result)
	return result, nil
}

// CacheStats returns a snapshot of the route cache.
func (o *Orchestrator) CacheStats() router.CacheStats {
	return o.cache.Stats()
}

// ClearCache drops every cached routing plan.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// run drives the pipeline, reporting milestones through emit when the
// caller streams.
func (o *Orchestrator) run(ctx context.Context, req Request, emit emitFunc) (*Result, error) {
	if emit == nil {
		emit = func(StreamEvent) {}
	}

	start := time.Now()
	cfg := o.config
	if req.Config != nil {
		cfg = *req.Config
		cfg.applyDefaults()
	}

	result := &Result{
		Timestamp:      time.Now().UTC(),
		ConversationID: req.ConversationID,
	}

	emit(progressEvent("analyze", 0.10, "analyzing query"))
	analysis, err := runStage(ctx, "analyze", cfg.AnalyzerTimeout, o.metrics,
		func(ctx context.Context) (*analyzer.Result, error) {
			return o.analyzer.Analyze(ctx, req.UserMessage, req.ConversationHistory)
		})
	if err != nil {
		// Analyzer failures abort the run; the retry loop only covers
		// execution and validation.
		return nil, fmt.Errorf("analyze stage: %w", err)
	}
	result.Analysis = analysis
	emit(progressEventMeta("analyze", 0.20, "analysis complete", map[string]any{
		"complexity": analysis.Complexity,
		"category":   analysis.Category,
	}))

	if analysis.Complexity < cfg.MinComplexityForChain {
		return o.runSimple(ctx, cfg, req, result, start, emit)
	}
	return o.runChain(ctx, cfg, req, result, start, emit)
}

// runSimple executes trivial queries directly against the first
// available model, skipping router and full validator.
func (o *Orchestrator) runSimple(ctx context.Context, cfg Config, req Request, result *Result, start time.Time, emit emitFunc) (*Result, error) {
	emit(progressEvent("route", 0.30, "simple path: routing skipped"))
	if len(cfg.AvailableModels) == 0 {
		return nil, fmt.Errorf("no available models configured")
	}
	model := cfg.AvailableModels[0]
	result.Plan = &router.Plan{
		PrimaryModel: model,
		Strategy:     router.StrategySingle,
		Reasoning:    "complexity below chain threshold",
	}

	prompt, history := o.buildPrompt(ctx, req)
	emit(progressEvent("execute", 0.50, "executing with "+model))
	exec, err := o.execute(ctx, cfg, prompt, history, model)
	if err != nil {
		return nil, fmt.Errorf("execute stage: %w", err)
	}
	emit(progressEvent("execute", 0.70, "execution complete"))

	if cfg.ValidationEnabled {
		result.Validation = o.validator.ValidateSimple(exec.Content)
	}

	result.Execution = exec
	result.Successful = true
	result.TotalLatency = time.Since(start)
	o.metrics.Decision(result.Analysis.Category, exec.Model, true)
	emit(progressEvent("complete", 1.0, "complete"))
	return result, nil
}

// runChain routes the request and drives the bounded retry loop.
func (o *Orchestrator) runChain(ctx context.Context, cfg Config, req Request, result *Result, start time.Time, emit emitFunc) (*Result, error) {
	emit(progressEvent("route", 0.30, "routing"))

	key := router.CacheKey(req.SessionID, req.UserMessage, result.Analysis.Complexity, result.Analysis.Category)
	plan, cached := o.cache.Get(key)
	if cached {
		o.metrics.CacheHit()
		emit(progressEvent("route", 0.40, "routed from cache: "+plan.PrimaryModel))
	} else {
		o.metrics.CacheMiss()
		var err error
		plan, err = runStage(ctx, "route", cfg.RouterTimeout, o.metrics,
			func(ctx context.Context) (*router.Plan, error) {
				return o.router.Route(ctx, result.Analysis, cfg.AvailableModels, cfg.PreferCheapModels), nil
			})
		if err != nil {
			// Same abort-on-failure rule as the analyzer.
			return nil, fmt.Errorf("route stage: %w", err)
		}
		o.cache.Put(key, plan)
		emit(progressEvent("route", 0.40, "routed to "+plan.PrimaryModel))
	}
	result.Plan = plan

	prompt, history := o.buildPrompt(ctx, req)

	var (
		retryCount  int
		exec        *Execution
		validation  *validator.Result
		lastExecErr error
		suggested   string
	)
	currentModel := plan.PrimaryModel

	for {
		emit(progressEvent("execute", 0.50+0.10*float64(retryCount), "executing with "+currentModel))
		exec, lastExecErr = o.execute(ctx, cfg, prompt, history, currentModel)
		failed := lastExecErr != nil
		validation = nil

		if !failed {
			emit(progressEvent("execute", 0.70, "execution complete"))
			if cfg.ValidationEnabled && plan.ShouldValidate {
				emit(progressEvent("validate", 0.80, "validating response"))
				v, vErr := runStage(ctx, "validate", cfg.ValidatorTimeout, o.metrics,
					func(ctx context.Context) (*validator.Result, error) {
						return o.validator.Validate(ctx, req.UserMessage, result.Analysis, exec.Content, cfg.AvailableModels)
					})
				if vErr != nil {
					// A thrown validation error lands in the same
					// retry branch as an execution error.
					failed = true
					lastExecErr = vErr
				} else {
					validation = v
					emit(progressEvent("validate", 0.90, "validation complete"))
					if v.ShouldRetry {
						failed = true
						lastExecErr = nil
						suggested = v.SuggestedModel
					}
				}
			}
		}

		if !failed {
			break
		}
		if retryCount >= cfg.MaxRetries {
			if lastExecErr != nil {
				return nil, &MaxRetriesError{Retries: cfg.MaxRetries, LastErr: lastExecErr}
			}
			// Validation kept rejecting but executions succeeded:
			// surface the last execution with its verdict attached.
			break
		}

		retryCount++
		o.metrics.Retry()
		currentModel = nextModel(plan, suggested, retryCount)
		suggested = ""
		if o.debug {
			log.Printf("[chain] retry %d with model %s", retryCount, currentModel)
		}
	}

	result.Execution = exec
	result.Validation = validation
	result.RetryCount = retryCount
	result.Successful = exec != nil
	result.TotalLatency = time.Since(start)
	o.metrics.Decision(result.Analysis.Category, exec.Model, result.Successful)
	emit(progressEvent("complete", 1.0, "complete"))
	return result, nil
}

// nextModel picks the model for a retry: the validator's suggestion
// first, then the fallback slot for this retry, then the primary.
func nextModel(plan *router.Plan, suggested string, retryCount int) string {
	if suggested != "" {
		return suggested
	}
	idx := retryCount - 1
	if idx >= 0 && idx < len(plan.FallbackModels) {
		return plan.FallbackModels[idx]
	}
	return plan.PrimaryModel
}

// execute calls the assistant once, under the execution timeout.
func (o *Orchestrator) execute(ctx context.Context, cfg Config, prompt string, history []adapter.Message, model string) (*Execution, error) {
	return runStage(ctx, "execute", cfg.ExecutionTimeout, o.metrics,
		func(ctx context.Context) (*Execution, error) {
			start := time.Now()
			resp, err := o.assistant.GetResponse(ctx, prompt, history, model)
			if err != nil {
				return nil, err
			}
			exec := &Execution{
				Content: resp.Content,
				Model:   resp.Model,
				Tokens:  resp.Usage,
				Cost:    resp.Cost,
				Latency: time.Since(start),
			}
			if exec.Model == "" {
				exec.Model = model
			}
			if exec.Cost == 0 {
				if m, ok := o.catalog.Get(model); ok {
					exec.Cost = m.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
				}
			}
			return exec, nil
		})
}

// buildPrompt hardens the request through the structured query service
// when asked to; structuring failures degrade to the raw message.
func (o *Orchestrator) buildPrompt(ctx context.Context, req Request) (string, []adapter.Message) {
	if !req.UseStructuredQuery || o.structurer == nil {
		return req.UserMessage, req.ConversationHistory
	}

	q, err := o.structurer.Structure(ctx, structured.Input{
		Message:        req.UserMessage,
		History:        req.ConversationHistory,
		UploadedFiles:  req.UploadedFiles,
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		log.Printf("[chain] structured query failed, using raw message: %v", err)
		return req.UserMessage, req.ConversationHistory
	}
	return o.structurer.FormatPrompt(q), nil
}

// persist writes the routing decision; failures are logged, never
// surfaced.
func (o *Orchestrator) persist(ctx context.Context, req Request, result *Result) {
	if o.store == nil || result == nil || result.Execution == nil {
		return
	}

	decision := telemetry.Decision{
		ID:             uuid.NewString(),
		Timestamp:      result.Timestamp,
		MessageHash:    telemetry.HashMessage(req.UserMessage),
		MessageLength:  len(req.UserMessage),
		Complexity:     result.Analysis.Complexity,
		Category:       result.Analysis.Category,
		Model:          result.Execution.Model,
		Cost:           result.Execution.Cost,
		Success:        result.Successful,
		RetryCount:     result.RetryCount,
		LatencyMillis:  result.TotalLatency.Milliseconds(),
		ConversationID: req.ConversationID,
	}
	if result.Plan != nil {
		decision.Strategy = string(result.Plan.Strategy)
	}
	if result.Validation != nil {
		score := result.Validation.Score
		decision.ValidationScore = &score
	}

	if err := o.store.Create(ctx, decision); err != nil {
		log.Printf("[chain] failed to persist routing decision: %v", err)
	}
}

// runStage races fn against the stage timeout. The context timer is
// always released on return.
func runStage[T any](ctx context.Context, stage string, timeout time.Duration, m *metrics.Metrics, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(stageCtx)
	m.Stage(stage, time.Since(start))
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return v, &StageTimeoutError{Stage: stage, Timeout: timeout}
	}
	return v, err
}
