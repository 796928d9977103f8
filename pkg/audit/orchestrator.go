package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/telemetry/logging"
	"gra-pca/sentinel/pkg/telemetry/tracing"
)

// Observer receives per-result and per-execution signals, typically to feed
// metrics. Calls are made from the goroutine running the audit.
type Observer interface {
	ObserveResult(r *agents.Result)
	ObserveError(e execution.ErrorEntry)
	ObserveExecution(e *execution.Execution)
}

// Recorder persists terminal executions. execution.Storage satisfies it.
type Recorder interface {
	Save(ctx context.Context, e *execution.Execution) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRegistry sets the agents used. Defaults to agents.DefaultRegistry().
func WithRegistry(registry *agents.Registry) Option {
	return func(o *Orchestrator) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) { o.observer = observer }
}

// WithRecorder saves every terminal execution.
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) { o.recorder = recorder }
}

// WithTracer records an "audit.run" span per execution and an
// "audit.declaration" span per declaration.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides execution ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// Orchestrator runs audits: it filters declarations, dispatches the
// applicable agents and aggregates their results into an Execution.
// It is safe for concurrent use; each Run owns its own Execution.
type Orchestrator struct {
	registry *agents.Registry
	logger   *slog.Logger
	observer Observer
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: agents.DefaultRegistry(),
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		now:      time.Now,
		newID:    uuid.NewString,
		running:  make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "audit")
	return o
}

// RunAudit runs a single audit with a default orchestrator.
func RunAudit(ctx context.Context, cfg *Config, decls []*declaration.Declaration, progress ProgressFunc) (*execution.Execution, error) {
	return NewOrchestrator().Run(ctx, cfg, decls, progress)
}

// outcome is the result of processing one declaration. Parallel units write
// only their own outcome slot.
type outcome struct {
	results   []*agents.Result
	errors    []execution.ErrorEntry
	attempted int
}

func (oc outcome) failed() bool {
	return oc.attempted > 0 && len(oc.results) == 0
}

// Run executes an audit and returns the terminal execution.
//
// Configuration problems return a *ConfigError and no execution. A failure
// during aggregation returns the failed execution together with an
// *ExecutionError. Cancellation (through ctx or Cancel) is not an error: the
// execution is returned with status cancelled and holds the results merged
// before the cancel was observed.
func (o *Orchestrator) Run(ctx context.Context, cfg *Config, decls []*declaration.Declaration, progress ProgressFunc) (*execution.Execution, error) {
	if cfg == nil {
		return nil, newConfigError("config", "configuration is required")
	}
	c := *cfg
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	selected := Filter(&c, decls)
	exec := execution.New(o.newID(), c.CaseID, c.RulePackID, len(selected), o.now())

	ctx = logging.WithExecution(ctx, exec.ID, exec.CaseID)
	ctx, span := o.tracer.Start(ctx, "audit.run", trace.WithAttributes(
		append(tracing.ExecutionAttributes(exec.ID, exec.CaseID),
			tracing.AttrScope.String(string(c.Scope)),
			tracing.AttrMode.String(string(c.Options.Mode)),
			tracing.AttrDeclarations.Int(len(selected)),
		)...,
	))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.track(exec.ID, cancel)
	defer o.untrack(exec.ID)

	o.logger.InfoContext(ctx, "audit started",
		"scope", c.Scope,
		"mode", c.Options.Mode,
		"input", len(decls),
		"selected", len(selected),
	)

	r := &run{o: o, cfg: &c, exec: exec, progress: progress}
	var cancelled bool
	switch {
	case runCtx.Err() != nil:
		cancelled = true
	case c.Options.Mode == ModeSequential:
		cancelled = r.sequential(runCtx, selected)
	default:
		cancelled = r.parallel(runCtx, selected)
	}

	end := o.now()
	var runErr error
	if err := Aggregate(exec, end.Sub(exec.StartedAt)); err != nil {
		runErr = &ExecutionError{ExecutionID: exec.ID, Stage: "aggregation", Message: "failed to aggregate agent results", Cause: err}
		_ = exec.Transition(execution.StatusFailed, end)
		o.logger.ErrorContext(ctx, "audit failed", "error", err)
	} else if cancelled {
		_ = exec.Transition(execution.StatusCancelled, end)
		o.logger.WarnContext(ctx, "audit cancelled",
			"processed", exec.ProcessedDeclarations,
			"failed", exec.FailedDeclarations,
			"total", exec.TotalDeclarations,
		)
	} else {
		_ = exec.Transition(execution.StatusCompleted, end)
		o.logger.InfoContext(ctx, "audit completed",
			"processed", exec.ProcessedDeclarations,
			"failed", exec.FailedDeclarations,
			"violations", exec.GhanaMetrics.TotalViolations,
			"recovery", exec.GhanaMetrics.TotalRecovery,
			"duration", exec.Duration(),
		)
	}

	span.SetAttributes(
		tracing.AttrStatus.String(string(exec.Status)),
		tracing.AttrProcessed.Int(exec.ProcessedDeclarations),
		tracing.AttrFailed.Int(exec.FailedDeclarations),
		tracing.AttrViolations.Int(exec.GhanaMetrics.TotalViolations),
		tracing.AttrRecovery.Float64(exec.GhanaMetrics.TotalRecovery),
	)
	tracing.End(span, runErr)

	if o.observer != nil {
		o.observer.ObserveExecution(exec)
	}
	r.report(ctx)
	o.record(ctx, exec)
	return exec, runErr
}

// Cancel requests cooperative cancellation of a running execution. Work
// already dispatched finishes but is not merged.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	cancel, ok := o.running[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrExecutionNotRunning, id)
	}
	cancel()
	return nil
}

// Running returns the IDs of executions currently in progress.
func (o *Orchestrator) Running() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	ids := make([]string, 0, len(o.running))
	for id := range o.running {
		ids = append(ids, id)
	}
	return ids
}

func (o *Orchestrator) track(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.running[id] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) untrack(id string) {
	o.mu.Lock()
	delete(o.running, id)
	o.mu.Unlock()
}

func (o *Orchestrator) record(ctx context.Context, exec *execution.Execution) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Save(context.WithoutCancel(ctx), exec); err != nil {
		o.logger.ErrorContext(ctx, "failed to record execution", "error", err)
	}
}

// process runs every applicable agent against d, one after another.
// Agent errors and panics become error entries.
func (o *Orchestrator) process(ctx context.Context, d *declaration.Declaration, position int, toggles AgentToggles) outcome {
	var oc outcome
	declID := d.ID
	if declID == "" {
		declID = fmt.Sprintf("#%d", position)
	}

	selected := SelectAgents(d, toggles, o.registry)
	ctx, span := o.tracer.Start(ctx, "audit.declaration", trace.WithAttributes(
		append(tracing.DeclarationAttributes(declID, d.HSCode),
			tracing.AttrAgents.Int(len(selected)),
		)...,
	))
	defer span.End()

	for _, a := range selected {
		oc.attempted++
		result, err := analyze(a, d)
		if err != nil {
			oc.errors = append(oc.errors, execution.ErrorEntry{
				DeclarationID: declID,
				AgentType:     a.Type(),
				Message:       err.Error(),
				Timestamp:     o.now(),
			})
			o.logger.WarnContext(logging.WithDeclarationID(ctx, declID), "agent failed",
				"agent", a.ID(),
				"error", err,
			)
			span.RecordError(err, trace.WithAttributes(attribute.String("agent", a.ID())))
			continue
		}
		oc.results = append(oc.results, result)
	}
	return oc
}

var errAgentPanic = errors.New("agent panicked")

func analyze(a agents.Agent, d *declaration.Declaration) (result *agents.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %v", errAgentPanic, r)
		}
	}()
	return a.Analyze(d)
}

// run holds the state of one Run call. Only the goroutine that called Run
// mutates exec.
type run struct {
	o          *Orchestrator
	cfg        *Config
	exec       *execution.Execution
	progress   ProgressFunc
	violations int
}

func (r *run) sequential(ctx context.Context, decls []*declaration.Declaration) bool {
	for i, d := range decls {
		if ctx.Err() != nil {
			return true
		}
		oc := r.o.process(ctx, d, i, r.cfg.Agents)
		if ctx.Err() != nil {
			return true
		}
		r.merge(oc)
		r.report(ctx)
	}
	return false
}

func (r *run) parallel(ctx context.Context, decls []*declaration.Declaration) bool {
	size := r.cfg.Options.BatchSize
	for start := 0; start < len(decls); start += size {
		if ctx.Err() != nil {
			return true
		}
		end := min(start+size, len(decls))
		batch := decls[start:end]
		outcomes := make([]outcome, len(batch))

		var g errgroup.Group
		g.SetLimit(r.cfg.Options.MaxConcurrency)
		for i, d := range batch {
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				outcomes[i] = r.o.process(ctx, d, start+i, r.cfg.Agents)
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return true
		}
		for _, oc := range outcomes {
			r.merge(oc)
		}
		r.report(ctx)
	}
	return false
}

func (r *run) merge(oc outcome) {
	r.exec.AgentResults = append(r.exec.AgentResults, oc.results...)
	r.exec.Errors = append(r.exec.Errors, oc.errors...)
	if oc.failed() {
		r.exec.FailedDeclarations++
	} else {
		r.exec.ProcessedDeclarations++
	}

	for _, res := range oc.results {
		if res.HasViolation {
			r.violations++
		}
		if r.o.observer != nil {
			r.o.observer.ObserveResult(res)
		}
	}
	if r.o.observer != nil {
		for _, e := range oc.errors {
			r.o.observer.ObserveError(e)
		}
	}
}

func (r *run) report(ctx context.Context) {
	if r.progress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.o.logger.ErrorContext(ctx, "progress callback panicked", "panic", rec)
		}
	}()
	r.progress(snapshot(r.exec, r.violations, r.o.now()))
}
