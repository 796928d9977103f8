package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/simulation"
)

// MaxFindingTypes bounds the distinct finding types exported before new
// ones are folded into "other".
const MaxFindingTypes = 256

// Collector owns a Prometheus registry and records audit, agent and
// simulation metrics. It satisfies audit.Observer and simulation.Observer.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	audit      *AuditMetrics
	agent      *AgentMetrics
	simulation *SimulationMetrics
	jobs       *JobMetrics

	findingTypes *CardinalityLimiter
}

// NewCollector registers every metric on registry. A nil registry gets a
// fresh one, never the global default.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	namespace := config.DefaultMetricsNamespace
	enabled := config.DefaultMetricsEnabled
	if cfg != nil {
		if cfg.Namespace != "" {
			namespace = cfg.Namespace
		}
		enabled = config.BoolValue(cfg.Enabled, enabled)
	}

	return &Collector{
		enabled:      enabled,
		registry:     registry,
		audit:        NewAuditMetrics(namespace, registry),
		agent:        NewAgentMetrics(namespace, registry),
		simulation:   NewSimulationMetrics(namespace, registry),
		jobs:         NewJobMetrics(namespace, registry),
		findingTypes: NewCardinalityLimiter(MaxFindingTypes),
	}
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveResult records one agent run.
func (c *Collector) ObserveResult(r *agents.Result) {
	if !c.enabled || r == nil {
		return
	}
	c.agent.RecordRun(r)
	for _, f := range r.Findings {
		findingType := f.Type
		if !c.findingTypes.Allow(findingType) {
			findingType = "other"
		}
		c.agent.RecordFinding(findingType, string(f.Severity))
	}
}

// ObserveError records one failed agent run.
func (c *Collector) ObserveError(e execution.ErrorEntry) {
	if !c.enabled {
		return
	}
	c.agent.RecordError(string(e.AgentType))
}

// ObserveExecution records a terminal execution.
func (c *Collector) ObserveExecution(e *execution.Execution) {
	if !c.enabled || e == nil {
		return
	}
	c.audit.RecordExecution(e)
}

// ObserveSimulation records a completed simulation.
func (c *Collector) ObserveSimulation(r *simulation.Result) {
	if !c.enabled || r == nil {
		return
	}
	c.simulation.Record(r)
}

// RecordRulePackSync records the outcome of one rule pack directory sync.
func (c *Collector) RecordRulePackSync(imported, failed int) {
	if !c.enabled {
		return
	}
	c.jobs.RecordSync(imported, failed)
}

// RecordPrune records one retention pass.
func (c *Collector) RecordPrune(deleted int64, err error) {
	if !c.enabled {
		return
	}
	c.jobs.RecordPrune(deleted, err)
}

// CardinalityLimiter caps the number of distinct label values admitted.
type CardinalityLimiter struct {
	limit   int
	mu      sync.RWMutex
	current map[string]struct{}
}

// NewCardinalityLimiter creates a limiter admitting up to limit values.
func NewCardinalityLimiter(limit int) *CardinalityLimiter {
	return &CardinalityLimiter{limit: limit, current: make(map[string]struct{})}
}

// Allow reports whether value is already admitted or still fits.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, ok := cl.current[value]
	cl.mu.RUnlock()
	if ok {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.current[value]; ok {
		return true
	}
	if len(cl.current) >= cl.limit {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
