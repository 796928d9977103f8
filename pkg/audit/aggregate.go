package audit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/execution"
)

// Aggregate recomputes the Ghana metrics, per-agent performance and
// performance metrics of exec from its results and errors. Results must
// already be in (declaration position, agent order) so that every run over
// the same input reduces identically.
//
// A non-finite recovery amount cannot be summed and is reported as an error.
func Aggregate(exec *execution.Execution, wall time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregation panicked: %v", r)
		}
	}()

	exec.GhanaMetrics = ghanaMetrics(exec.AgentResults)
	exec.AgentPerformance = agentPerformance(exec.AgentResults, exec.Errors)
	exec.Performance = performance(exec, wall)
	return nil
}

func ghanaMetrics(results []*agents.Result) execution.GhanaMetrics {
	m := execution.NewGhanaMetrics()

	total := decimal.Zero
	sectorRecovery := map[string]decimal.Decimal{}
	sectorDeclarations := map[string]map[string]bool{}

	for _, r := range results {
		sector := r.Metadata.Sector
		if sector == "" {
			sector = execution.UnknownSector
		}
		stats := m.SectoralBreakdown[sector]
		seen := sectorDeclarations[sector]
		if seen == nil {
			seen = map[string]bool{}
			sectorDeclarations[sector] = seen
		}
		if !seen[r.DeclarationID] {
			seen[r.DeclarationID] = true
			stats.Declarations++
		}

		if r.HasViolation {
			m.TotalViolations++
			stats.Violations++
			amount := decimal.NewFromFloat(r.Metadata.Recovery())
			total = total.Add(amount)
			sectorRecovery[sector] = sectorRecovery[sector].Add(amount)
		}
		m.SectoralBreakdown[sector] = stats

		for _, f := range r.Findings {
			m.ViolationTypes[f.Type]++
		}
		m.RiskLevels[execution.RiskLevel(r.RiskScore)]++
	}

	m.TotalRecovery = total.InexactFloat64()
	for sector, amount := range sectorRecovery {
		stats := m.SectoralBreakdown[sector]
		stats.Recovery = amount.InexactFloat64()
		m.SectoralBreakdown[sector] = stats
	}

	if n := len(results); n > 0 {
		m.ComplianceRate = float64(n-m.TotalViolations) / float64(n) * 100
	} else {
		m.ComplianceRate = 100
	}
	return m
}

type perfAccumulator struct {
	runs, violations, errors int
	duration                 time.Duration
	risk, confidence         float64
}

func agentPerformance(results []*agents.Result, errs []execution.ErrorEntry) map[agents.AgentType]execution.AgentPerformance {
	acc := map[agents.AgentType]*perfAccumulator{}
	get := func(t agents.AgentType) *perfAccumulator {
		a := acc[t]
		if a == nil {
			a = &perfAccumulator{}
			acc[t] = a
		}
		return a
	}

	for _, r := range results {
		a := get(r.AgentType)
		a.runs++
		if r.HasViolation {
			a.violations++
		}
		a.duration += r.ProcessingTime
		a.risk += r.RiskScore
		a.confidence += r.Confidence
	}
	for _, e := range errs {
		if e.AgentType == "" {
			continue
		}
		get(e.AgentType).errors++
	}

	out := make(map[agents.AgentType]execution.AgentPerformance, len(acc))
	for t, a := range acc {
		p := execution.AgentPerformance{
			Runs:       a.runs + a.errors,
			Violations: a.violations,
			Errors:     a.errors,
		}
		if a.runs > 0 {
			p.AverageDuration = a.duration / time.Duration(a.runs)
			p.AverageRiskScore = a.risk / float64(a.runs)
			p.AverageConfidence = a.confidence / float64(a.runs)
		}
		out[t] = p
	}
	return out
}

func performance(exec *execution.Execution, wall time.Duration) execution.PerformanceMetrics {
	p := execution.PerformanceMetrics{WallTime: wall}

	if n := len(exec.AgentResults); n > 0 {
		var sum time.Duration
		for _, r := range exec.AgentResults {
			sum += r.ProcessingTime
		}
		p.AverageProcessingTime = sum / time.Duration(n)
	}

	if ms := float64(wall) / float64(time.Millisecond); ms > 0 {
		p.Throughput = float64(exec.ProcessedDeclarations) * 1000 / ms
	}
	if exec.TotalDeclarations > 0 {
		p.ErrorRate = float64(exec.FailedDeclarations) / float64(exec.TotalDeclarations) * 100
	}
	return p
}
