package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics track the background jobs run by the serve command: rule pack
// directory syncs and execution retention.
type JobMetrics struct {
	imports      prometheus.Counter
	importErrors prometheus.Counter
	pruned       prometheus.Counter
	pruneErrors  prometheus.Counter
}

// NewJobMetrics creates and registers the job metrics.
func NewJobMetrics(namespace string, registry *prometheus.Registry) *JobMetrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	m := &JobMetrics{
		imports:      counter("rulepack", "imports_total", "Rule packs imported from the watched directory"),
		importErrors: counter("rulepack", "import_errors_total", "Rule pack files that failed to load or import"),
		pruned:       counter("executions", "pruned_total", "Executions removed by retention"),
		pruneErrors:  counter("executions", "prune_errors_total", "Failed retention passes"),
	}

	registry.MustRegister(m.imports, m.importErrors, m.pruned, m.pruneErrors)
	return m
}

// RecordSync adds the outcome of one directory sync.
func (m *JobMetrics) RecordSync(imported, failed int) {
	m.imports.Add(float64(imported))
	m.importErrors.Add(float64(failed))
}

// RecordPrune adds the outcome of one retention pass.
func (m *JobMetrics) RecordPrune(deleted int64, err error) {
	if err != nil {
		m.pruneErrors.Inc()
	}
	m.pruned.Add(float64(deleted))
}
