package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"gra-pca/sentinel/pkg/agents"
)

// AgentMetrics track individual agent runs.
type AgentMetrics struct {
	runs      *prometheus.CounterVec
	errors    *prometheus.CounterVec
	riskScore *prometheus.HistogramVec
	duration  *prometheus.HistogramVec
	findings  *prometheus.CounterVec
}

// NewAgentMetrics creates and registers the agent metrics.
func NewAgentMetrics(namespace string, registry *prometheus.Registry) *AgentMetrics {
	m := &AgentMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "runs_total",
				Help:      "Completed agent runs by agent and violation flag",
			},
			[]string{"agent", "violation"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "errors_total",
				Help:      "Failed agent runs",
			},
			[]string{"agent"},
		),
		riskScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "risk_score",
				Help:      "Risk scores produced by agents",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
			[]string{"agent"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "duration_seconds",
				Help:      "Agent processing time",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"agent"},
		),
		findings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "findings_total",
				Help:      "Findings raised by type and severity",
			},
			[]string{"type", "severity"},
		),
	}

	registry.MustRegister(m.runs, m.errors, m.riskScore, m.duration, m.findings)
	return m
}

// RecordRun records one successful agent result.
func (m *AgentMetrics) RecordRun(r *agents.Result) {
	agent := string(r.AgentType)
	m.runs.WithLabelValues(agent, strconv.FormatBool(r.HasViolation)).Inc()
	m.riskScore.WithLabelValues(agent).Observe(r.RiskScore)
	m.duration.WithLabelValues(agent).Observe(r.ProcessingTime.Seconds())
}

// RecordError records one failed agent run.
func (m *AgentMetrics) RecordError(agent string) {
	if agent == "" {
		agent = "unknown"
	}
	m.errors.WithLabelValues(agent).Inc()
}

// RecordFinding records one finding.
func (m *AgentMetrics) RecordFinding(findingType, severity string) {
	m.findings.WithLabelValues(findingType, severity).Inc()
}
