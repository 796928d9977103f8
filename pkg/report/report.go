// Package report turns a finished audit execution into a period summary for
// case officers.
package report

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/execution"
)

// ErrExecutionNotTerminal is returned for executions that are still running.
var ErrExecutionNotTerminal = errors.New("execution is not in a terminal state")

// TopViolationLimit caps the violation types listed in a summary.
const TopViolationLimit = 5

// Period is the reporting window a summary covers.
type Period struct {
	Label string    `json:"label,omitempty"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

// String renders the period for headings.
func (p Period) String() string {
	span := fmt.Sprintf("%s to %s", p.From.Format(time.DateOnly), p.To.Format(time.DateOnly))
	if p.Label != "" {
		return fmt.Sprintf("%s (%s)", p.Label, span)
	}
	return span
}

// PeriodFor returns a period covering the execution's run.
func PeriodFor(e *execution.Execution) Period {
	to := e.StartedAt
	if e.EndedAt != nil {
		to = *e.EndedAt
	}
	return Period{From: e.StartedAt, To: to}
}

// ViolationCount is one entry of the violation type ranking.
type ViolationCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// SectorRow is one line of the sector table.
type SectorRow struct {
	Sector       string  `json:"sector"`
	Declarations int     `json:"declarations"`
	Violations   int     `json:"violations"`
	Recovery     float64 `json:"recovery"`
}

// AgentRow is one line of the agent table.
type AgentRow struct {
	Agent            agents.AgentType `json:"agent"`
	Runs             int              `json:"runs"`
	Violations       int              `json:"violations"`
	Errors           int              `json:"errors"`
	AverageRiskScore float64          `json:"average_risk_score"`
}

// Summary is the reporting view of one execution.
type Summary struct {
	ExecutionID string           `json:"execution_id"`
	CaseID      string           `json:"case_id"`
	RulePackID  string           `json:"rule_pack_id,omitempty"`
	Status      execution.Status `json:"status"`
	Period      Period           `json:"period"`

	TotalDeclarations int     `json:"total_declarations"`
	Processed         int     `json:"processed"`
	Failed            int     `json:"failed"`
	TotalViolations   int     `json:"total_violations"`
	TotalRecovery     float64 `json:"total_recovery"`
	ComplianceRate    float64 `json:"compliance_rate"`
	ErrorCount        int     `json:"error_count"`

	TopViolations []ViolationCount `json:"top_violations"`
	RiskLevels    map[string]int   `json:"risk_levels"`
	Sectors       []SectorRow      `json:"sectors"`
	Agents        []AgentRow       `json:"agents"`

	WallTime   time.Duration `json:"wall_time"`
	Throughput float64       `json:"throughput"`
}

// Summarize builds a summary of a terminal execution.
func Summarize(e *execution.Execution, period Period) (*Summary, error) {
	if e == nil || !e.Status.Terminal() {
		return nil, ErrExecutionNotTerminal
	}

	gm := e.GhanaMetrics
	s := &Summary{
		ExecutionID:       e.ID,
		CaseID:            e.CaseID,
		RulePackID:        e.RulePackID,
		Status:            e.Status,
		Period:            period,
		TotalDeclarations: e.TotalDeclarations,
		Processed:         e.ProcessedDeclarations,
		Failed:            e.FailedDeclarations,
		TotalViolations:   gm.TotalViolations,
		TotalRecovery:     gm.TotalRecovery,
		ComplianceRate:    gm.ComplianceRate,
		ErrorCount:        len(e.Errors),
		TopViolations:     topViolations(gm.ViolationTypes, TopViolationLimit),
		RiskLevels:        make(map[string]int, len(gm.RiskLevels)),
		Sectors:           []SectorRow{},
		Agents:            []AgentRow{},
		WallTime:          e.Performance.WallTime,
		Throughput:        e.Performance.Throughput,
	}
	for level, n := range gm.RiskLevels {
		s.RiskLevels[level] = n
	}

	for sector, stats := range gm.SectoralBreakdown {
		s.Sectors = append(s.Sectors, SectorRow{
			Sector:       sector,
			Declarations: stats.Declarations,
			Violations:   stats.Violations,
			Recovery:     stats.Recovery,
		})
	}
	sort.Slice(s.Sectors, func(i, j int) bool { return s.Sectors[i].Sector < s.Sectors[j].Sector })

	for agent, perf := range e.AgentPerformance {
		s.Agents = append(s.Agents, AgentRow{
			Agent:            agent,
			Runs:             perf.Runs,
			Violations:       perf.Violations,
			Errors:           perf.Errors,
			AverageRiskScore: perf.AverageRiskScore,
		})
	}
	sort.Slice(s.Agents, func(i, j int) bool {
		return agents.Rank(s.Agents[i].Agent) < agents.Rank(s.Agents[j].Agent)
	})

	return s, nil
}

// topViolations ranks types by count, then name, keeping at most limit.
func topViolations(types map[string]int, limit int) []ViolationCount {
	ranked := make([]ViolationCount, 0, len(types))
	for t, n := range types {
		if n > 0 {
			ranked = append(ranked, ViolationCount{Type: t, Count: n})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Type < ranked[j].Type
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Render writes the summary as markdown.
func (s *Summary) Render(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Post-Clearance Audit Report: %s\n\n", s.CaseID)
	fmt.Fprintf(&b, "- Execution: `%s` (%s)\n", s.ExecutionID, s.Status)
	fmt.Fprintf(&b, "- Period: %s\n", s.Period)
	if s.RulePackID != "" {
		fmt.Fprintf(&b, "- Rule pack: %s\n", s.RulePackID)
	}
	fmt.Fprintf(&b, "- Wall time: %s (%.2f declarations/s)\n\n", s.WallTime.Round(time.Millisecond), s.Throughput)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Declarations | %d |\n", s.TotalDeclarations)
	fmt.Fprintf(&b, "| Processed | %d |\n", s.Processed)
	fmt.Fprintf(&b, "| Failed | %d |\n", s.Failed)
	fmt.Fprintf(&b, "| Violations | %d |\n", s.TotalViolations)
	fmt.Fprintf(&b, "| Estimated recovery (GHS) | %s |\n", formatAmount(s.TotalRecovery))
	fmt.Fprintf(&b, "| Compliance rate | %.1f%% |\n", s.ComplianceRate)
	fmt.Fprintf(&b, "| Processing errors | %d |\n\n", s.ErrorCount)

	b.WriteString("## Top violation types\n\n")
	if len(s.TopViolations) == 0 {
		b.WriteString("No violations recorded.\n\n")
	} else {
		for i, v := range s.TopViolations {
			fmt.Fprintf(&b, "%d. %s: %d\n", i+1, v.Type, v.Count)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Risk levels\n\n")
	for _, level := range []string{execution.RiskCritical, execution.RiskHigh, execution.RiskMedium, execution.RiskLow} {
		fmt.Fprintf(&b, "- %s: %d\n", level, s.RiskLevels[level])
	}
	b.WriteString("\n")

	if len(s.Sectors) > 0 {
		b.WriteString("## Sectors\n\n| Sector | Declarations | Violations | Recovery (GHS) |\n|---|---|---|---|\n")
		for _, row := range s.Sectors {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", row.Sector, row.Declarations, row.Violations, formatAmount(row.Recovery))
		}
		b.WriteString("\n")
	}

	if len(s.Agents) > 0 {
		b.WriteString("## Agents\n\n| Agent | Runs | Violations | Errors | Avg risk |\n|---|---|---|---|---|\n")
		for _, row := range s.Agents {
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %.1f |\n", row.Agent, row.Runs, row.Violations, row.Errors, row.AverageRiskScore)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// formatAmount renders a currency amount with thousands separators and two
// decimals.
func formatAmount(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
