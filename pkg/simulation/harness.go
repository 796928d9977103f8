package simulation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/telemetry/logging"
	"gra-pca/sentinel/pkg/telemetry/tracing"
)

// ErrNoRulePack is returned when Evaluate is called without a pack.
var ErrNoRulePack = errors.New("rule pack is required")

// Observer receives completed simulation results, typically to feed metrics.
type Observer interface {
	ObserveSimulation(r *Result)
}

// Option configures a Harness.
type Option func(*Harness)

// WithLabeler sets the false-positive labeler. Defaults to a RandomLabeler
// at DefaultFalsePositiveRate with seed 1.
func WithLabeler(l Labeler) Option {
	return func(h *Harness) {
		if l != nil {
			h.labeler = l
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(h *Harness) { h.observer = o }
}

// WithTracer records a "simulation.run" span per evaluation.
func WithTracer(tracer trace.Tracer) Option {
	return func(h *Harness) {
		if tracer != nil {
			h.tracer = tracer
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(h *Harness) {
		if now != nil {
			h.now = now
		}
	}
}

// WithIDGenerator overrides simulation ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(h *Harness) {
		if newID != nil {
			h.newID = newID
		}
	}
}

// Harness runs rule pack simulations.
type Harness struct {
	labeler  Labeler
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	now      func() time.Time
	newID    func() string
}

// NewHarness creates a harness.
func NewHarness(opts ...Option) *Harness {
	h := &Harness{
		labeler: NewRandomLabeler(DefaultFalsePositiveRate, 1),
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer(""),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "simulation")
	return h
}

// SimulateRulePack evaluates pack over dataset with a default harness.
func SimulateRulePack(ctx context.Context, pack *rulepack.RulePack, dataset []*declaration.Declaration) (*Result, error) {
	return NewHarness().Evaluate(ctx, pack, dataset)
}

// Run resolves packID in store and evaluates it. An empty packID selects the
// active pack.
func (h *Harness) Run(ctx context.Context, store rulepack.Store, packID string, dataset []*declaration.Declaration) (*Result, error) {
	var (
		pack *rulepack.RulePack
		err  error
	)
	if packID == "" {
		pack, err = rulepack.Active(ctx, store)
	} else {
		pack, err = store.Get(ctx, packID)
	}
	if err != nil {
		return nil, err
	}
	return h.Evaluate(ctx, pack, dataset)
}

// Evaluate scores every declaration in dataset against pack. An invalid pack
// is rejected before any scoring. Nil declarations are skipped.
func (h *Harness) Evaluate(ctx context.Context, pack *rulepack.RulePack, dataset []*declaration.Declaration) (*Result, error) {
	if pack == nil {
		return nil, ErrNoRulePack
	}
	if err := pack.Validate(); err != nil {
		return nil, err
	}

	started := h.now()
	result := &Result{
		ID:              h.newID(),
		RulePackID:      pack.ID,
		RulePackVersion: pack.Version,
		Sectors:         map[string]SectorResult{},
		TierDistribution: map[rulepack.RiskLevel]int{
			rulepack.RiskLow:    0,
			rulepack.RiskMedium: 0,
			rulepack.RiskHigh:   0,
		},
		Declarations: []DeclarationScore{},
		StartedAt:    started,
	}

	ctx = logging.WithRulePackID(logging.WithSimulationID(ctx, result.ID), pack.ID)
	ctx, span := h.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		append(tracing.RulePackAttributes(pack.ID, pack.Version),
			tracing.AttrSimulationID.String(result.ID),
			tracing.AttrDeclarations.Int(len(dataset)),
		)...,
	))
	h.logger.InfoContext(ctx, "simulation started", "declarations", len(dataset))

	scorer := NewScorer(pack)
	result.Threshold, result.HasThreshold = scorer.Threshold()
	result.ExpectedAccuracy = expectedAccuracy(pack)

	recovery := decimal.Zero
	sectorRecovery := map[string]decimal.Decimal{}

	for _, d := range dataset {
		if err := ctx.Err(); err != nil {
			h.logger.WarnContext(ctx, "simulation cancelled", "scored", len(result.Declarations))
			tracing.End(span, err)
			return nil, err
		}
		if d == nil {
			continue
		}

		s := scorer.Score(d)
		if s.HasViolation {
			s.FalsePositive = h.labeler.IsFalsePositive(d)
		}
		result.Declarations = append(result.Declarations, s)
		result.TierDistribution[s.Tier]++

		sector := result.Sectors[s.Sector]
		sector.Declarations++
		if s.HasViolation {
			result.ViolationsDetected++
			sector.Violations++
			if s.FalsePositive {
				result.FalsePositives++
				sector.FalsePositives++
			} else {
				amount := decimal.NewFromFloat(d.Value * s.RecoveryRate * sectorWeight(pack, d.Sector))
				recovery = recovery.Add(amount)
				sectorRecovery[s.Sector] = sectorRecovery[s.Sector].Add(amount)
			}
		}
		result.Sectors[s.Sector] = sector
	}

	result.TotalDeclarations = len(result.Declarations)
	result.EstimatedRecovery = recovery.InexactFloat64()
	for key, sector := range result.Sectors {
		if sector.Declarations > 0 {
			sector.Accuracy = float64(sector.Violations-sector.FalsePositives) / float64(sector.Declarations)
		}
		sector.Recovery = sectorRecovery[key].InexactFloat64()
		result.Sectors[key] = sector
	}
	computeMetrics(result)
	result.Recommendations = recommend(result)

	result.CompletedAt = h.now()
	result.Duration = result.CompletedAt.Sub(started)

	span.SetAttributes(
		tracing.AttrViolations.Int(result.ViolationsDetected),
		tracing.AttrPrecision.Float64(result.Precision),
		tracing.AttrRecall.Float64(result.Recall),
		tracing.AttrF1.Float64(result.F1Score),
	)
	tracing.End(span, nil)

	if h.observer != nil {
		h.observer.ObserveSimulation(result)
	}
	h.logger.InfoContext(ctx, "simulation completed",
		"declarations", result.TotalDeclarations,
		"violations", result.ViolationsDetected,
		"false_positives", result.FalsePositives,
		"precision", result.Precision,
		"recall", result.Recall,
		"duration", result.Duration,
	)
	return result, nil
}

// computeMetrics fills accuracy, precision, recall and F1 from the counts.
func computeMetrics(r *Result) {
	tp := float64(r.TruePositives())
	if r.TotalDeclarations > 0 {
		r.Accuracy = tp / float64(r.TotalDeclarations)
		r.Recall = float64(r.ViolationsDetected) / float64(r.TotalDeclarations)
	}
	if r.ViolationsDetected > 0 {
		r.Precision = tp / float64(r.ViolationsDetected)
	}
	if r.Precision+r.Recall > 0 {
		r.F1Score = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
}

// sectorWeight is the pack's focus weight for a sector; sectors outside the
// focus areas count in full.
func sectorWeight(pack *rulepack.RulePack, sector declaration.Sector) float64 {
	if focus, ok := pack.SectoralFocus.For(sector); ok {
		return focus.Weight
	}
	return 1
}

func expectedAccuracy(pack *rulepack.RulePack) float64 {
	rules := pack.ActiveRules()
	if len(rules) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rules {
		sum += r.Impact.Accuracy
	}
	return sum / float64(len(rules))
}
