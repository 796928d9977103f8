package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gra-pca/sentinel/pkg/execution"
)

// AuditMetrics track terminal executions.
type AuditMetrics struct {
	executions     *prometheus.CounterVec
	duration       prometheus.Histogram
	declarations   *prometheus.CounterVec
	violations     *prometheus.CounterVec
	recovery       *prometheus.CounterVec
	complianceRate prometheus.Gauge
}

// NewAuditMetrics creates and registers the audit metrics.
func NewAuditMetrics(namespace string, registry *prometheus.Registry) *AuditMetrics {
	m := &AuditMetrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "executions_total",
				Help:      "Audit executions by terminal status",
			},
			[]string{"status"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "execution_duration_seconds",
				Help:      "Wall time of audit executions",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
			},
		),
		declarations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "declarations_total",
				Help:      "Declarations audited by outcome",
			},
			[]string{"outcome"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "violations_total",
				Help:      "Violating agent results by sector",
			},
			[]string{"sector"},
		),
		recovery: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "recovery_ghs_total",
				Help:      "Estimated recoverable revenue in GHS by sector",
			},
			[]string{"sector"},
		),
		complianceRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "compliance_rate",
				Help:      "Compliance rate of the most recent execution, 0-100",
			},
		),
	}

	registry.MustRegister(
		m.executions,
		m.duration,
		m.declarations,
		m.violations,
		m.recovery,
		m.complianceRate,
	)
	return m
}

// RecordExecution adds the totals of a terminal execution.
func (m *AuditMetrics) RecordExecution(e *execution.Execution) {
	m.executions.WithLabelValues(string(e.Status)).Inc()
	m.duration.Observe(e.Duration().Seconds())
	m.declarations.WithLabelValues("processed").Add(float64(e.ProcessedDeclarations))
	m.declarations.WithLabelValues("failed").Add(float64(e.FailedDeclarations))

	for sector, stats := range e.GhanaMetrics.SectoralBreakdown {
		m.violations.WithLabelValues(sector).Add(float64(stats.Violations))
		if stats.Recovery > 0 {
			m.recovery.WithLabelValues(sector).Add(stats.Recovery)
		}
	}
	m.complianceRate.Set(e.GhanaMetrics.ComplianceRate)
}
