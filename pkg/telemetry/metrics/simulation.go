package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"gra-pca/sentinel/pkg/simulation"
)

// SimulationMetrics track rule pack simulations. Quality gauges hold the
// latest result per rule pack.
type SimulationMetrics struct {
	runs           *prometheus.CounterVec
	falsePositives *prometheus.CounterVec
	accuracy       *prometheus.GaugeVec
	precision      *prometheus.GaugeVec
	recall         *prometheus.GaugeVec
	f1             *prometheus.GaugeVec
}

func simulationGauge(namespace, name, help string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      name,
			Help:      help,
		},
		[]string{"rule_pack"},
	)
}

// NewSimulationMetrics creates and registers the simulation metrics.
func NewSimulationMetrics(namespace string, registry *prometheus.Registry) *SimulationMetrics {
	m := &SimulationMetrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "runs_total",
				Help:      "Completed rule pack simulations",
			},
			[]string{"rule_pack"},
		),
		falsePositives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "simulation",
				Name:      "false_positives_total",
				Help:      "Flagged declarations labelled as false positives",
			},
			[]string{"rule_pack"},
		),
		accuracy:  simulationGauge(namespace, "accuracy", "Accuracy of the latest simulation"),
		precision: simulationGauge(namespace, "precision", "Precision of the latest simulation"),
		recall:    simulationGauge(namespace, "recall", "Recall of the latest simulation"),
		f1:        simulationGauge(namespace, "f1_score", "F1 score of the latest simulation"),
	}

	registry.MustRegister(m.runs, m.falsePositives, m.accuracy, m.precision, m.recall, m.f1)
	return m
}

// Record stores one simulation result.
func (m *SimulationMetrics) Record(r *simulation.Result) {
	pack := r.RulePackID
	m.runs.WithLabelValues(pack).Inc()
	m.falsePositives.WithLabelValues(pack).Add(float64(r.FalsePositives))
	m.accuracy.WithLabelValues(pack).Set(r.Accuracy)
	m.precision.WithLabelValues(pack).Set(r.Precision)
	m.recall.WithLabelValues(pack).Set(r.Recall)
	m.f1.WithLabelValues(pack).Set(r.F1Score)
}
