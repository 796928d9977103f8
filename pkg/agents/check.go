package agents

import (
	"math"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// penalty is a finding together with the risk points it contributes.
type penalty struct {
	finding Finding
	points  float64
}

// check is one independent heuristic. It returns a penalty for every issue it
// detects, or nothing.
type check func(d *declaration.Declaration) []penalty

// fold runs every check in order and accumulates findings and risk. The total
// is capped at MaxRiskScore.
func fold(d *declaration.Declaration, checks []check) ([]Finding, float64) {
	findings := []Finding{}
	var risk float64
	for _, c := range checks {
		for _, p := range c(d) {
			findings = append(findings, p.finding)
			risk += p.points
		}
	}
	return findings, math.Min(risk, MaxRiskScore)
}

func one(f Finding, points float64) []penalty {
	return []penalty{{finding: f, points: points}}
}

func hasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func newResult(a Agent, d *declaration.Declaration, started time.Time) *Result {
	return &Result{
		AgentID:       a.ID(),
		AgentType:     a.Type(),
		DeclarationID: d.ID,
		Findings:      []Finding{},
		Metadata:      Metadata{Sector: string(d.Sector)},
		CreatedAt:     started,
	}
}

// within reports whether actual is within tolerance (a fraction) of expected.
// A zero expectation only matches a zero actual.
func within(actual, expected, tolerance float64) bool {
	if expected == 0 {
		return math.Abs(actual) < 0.005
	}
	return math.Abs(actual-expected)/math.Abs(expected) <= tolerance
}

func deviation(actual, expected float64) float64 {
	if expected == 0 {
		if actual == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(actual-expected) / math.Abs(expected)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
