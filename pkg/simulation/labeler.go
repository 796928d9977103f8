package simulation

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"gra-pca/sentinel/pkg/declaration"
)

// DefaultFalsePositiveRate is the share of flagged declarations the random
// labeler marks as false positives.
const DefaultFalsePositiveRate = 0.1

// Labeler decides whether a flagged declaration is a false positive.
type Labeler interface {
	IsFalsePositive(d *declaration.Declaration) bool
}

// LabelerFunc adapts a function to Labeler.
type LabelerFunc func(d *declaration.Declaration) bool

// IsFalsePositive calls f(d).
func (f LabelerFunc) IsFalsePositive(d *declaration.Declaration) bool {
	return f(d)
}

// RandomLabeler marks each flagged declaration as a false positive with a
// fixed probability. The same seed yields the same sequence of draws.
type RandomLabeler struct {
	rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLabeler creates a labeler drawing false positives at rate.
func NewRandomLabeler(rate float64, seed uint64) *RandomLabeler {
	return &RandomLabeler{
		rate: rate,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// IsFalsePositive draws once from the generator.
func (l *RandomLabeler) IsFalsePositive(*declaration.Declaration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Float64() < l.rate
}

// HistoricalLabeler uses known audit outcomes keyed by declaration ID. A
// declaration without a label is treated as a true positive.
type HistoricalLabeler struct {
	labels map[string]bool
}

// NewHistoricalLabeler creates a labeler from id -> false positive labels.
func NewHistoricalLabeler(labels map[string]bool) *HistoricalLabeler {
	copied := make(map[string]bool, len(labels))
	for id, fp := range labels {
		copied[id] = fp
	}
	return &HistoricalLabeler{labels: copied}
}

// IsFalsePositive reports the recorded label for d.
func (l *HistoricalLabeler) IsFalsePositive(d *declaration.Declaration) bool {
	return l.labels[d.ID]
}

// Len returns the number of labelled declarations.
func (l *HistoricalLabeler) Len() int {
	return len(l.labels)
}

// LoadLabels reads a YAML or JSON mapping of declaration ID to a boolean
// false-positive label.
func LoadLabels(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	labels := map[string]bool{}
	if err := yaml.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse labels file %s: %w", path, err)
	}
	return labels, nil
}
