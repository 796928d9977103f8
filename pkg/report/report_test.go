package report

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/execution"
)

func finished() *execution.Execution {
	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	e := execution.New("exec-1", "CASE-7", "gra-default", 4, start)
	e.ProcessedDeclarations = 3
	e.FailedDeclarations = 1
	e.Errors = append(e.Errors, execution.ErrorEntry{DeclarationID: "#4", Message: "malformed"})
	e.GhanaMetrics.TotalViolations = 8
	e.GhanaMetrics.TotalRecovery = 1250.5
	e.GhanaMetrics.ComplianceRate = 25
	e.GhanaMetrics.ViolationTypes = map[string]int{
		"origin-fraud":       2,
		"tax-mismatch":       3,
		"invalid-tin-format": 1,
		"atg-shortfall":      1,
		"payment-shortfall":  1,
		"unused":             0,
	}
	e.GhanaMetrics.RiskLevels[execution.RiskHigh] = 2
	e.GhanaMetrics.RiskLevels[execution.RiskLow] = 5
	e.GhanaMetrics.SectoralBreakdown = map[string]execution.SectorStats{
		"textiles":  {Declarations: 1, Violations: 3, Recovery: 250.5},
		"petroleum": {Declarations: 2, Violations: 5, Recovery: 1000},
	}
	e.AgentPerformance = map[agents.AgentType]execution.AgentPerformance{
		agents.AgentTax:    {Runs: 4, Violations: 3, Errors: 1, AverageRiskScore: 40},
		agents.AgentOrigin: {Runs: 2, Violations: 2, AverageRiskScore: 70},
	}
	e.Performance.WallTime = 2 * time.Second
	e.Performance.Throughput = 1.5
	if err := e.Transition(execution.StatusCompleted, start.Add(2*time.Second)); err != nil {
		panic(err)
	}
	return e
}

func TestSummarize(t *testing.T) {
	e := finished()
	s, err := Summarize(e, PeriodFor(e))
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.TotalDeclarations != 4 || s.Processed != 3 || s.Failed != 1 || s.ErrorCount != 1 {
		t.Errorf("counts = %+v", s)
	}
	if s.TotalRecovery != 1250.5 || s.ComplianceRate != 25 || s.TotalViolations != 8 {
		t.Errorf("totals = %v %v %v", s.TotalRecovery, s.ComplianceRate, s.TotalViolations)
	}

	wantTop := []ViolationCount{
		{"tax-mismatch", 3},
		{"origin-fraud", 2},
		{"atg-shortfall", 1},
		{"invalid-tin-format", 1},
		{"payment-shortfall", 1},
	}
	if !reflect.DeepEqual(s.TopViolations, wantTop) {
		t.Errorf("TopViolations = %v, want %v", s.TopViolations, wantTop)
	}

	if len(s.Sectors) != 2 || s.Sectors[0].Sector != "petroleum" || s.Sectors[1].Recovery != 250.5 {
		t.Errorf("Sectors = %+v", s.Sectors)
	}
	if len(s.Agents) != 2 || s.Agents[0].Agent != agents.AgentOrigin || s.Agents[1].Errors != 1 {
		t.Errorf("Agents = %+v", s.Agents)
	}

	s.RiskLevels[execution.RiskHigh] = 99
	if e.GhanaMetrics.RiskLevels[execution.RiskHigh] != 2 {
		t.Error("Summarize() shares risk level map with the execution")
	}
}

func TestSummarizeRejectsRunning(t *testing.T) {
	running := execution.New("exec-2", "CASE", "", 0, time.Now())
	if _, err := Summarize(running, Period{}); !errors.Is(err, ErrExecutionNotTerminal) {
		t.Errorf("Summarize(running) error = %v, want ErrExecutionNotTerminal", err)
	}
	if _, err := Summarize(nil, Period{}); !errors.Is(err, ErrExecutionNotTerminal) {
		t.Errorf("Summarize(nil) error = %v, want ErrExecutionNotTerminal", err)
	}
}

func TestRender(t *testing.T) {
	e := finished()
	period := Period{
		Label: "Q1 2024",
		From:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		To:    time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	s, err := Summarize(e, period)
	if err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	if err := s.Render(&b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := b.String()

	for _, want := range []string{
		"# Post-Clearance Audit Report: CASE-7",
		"- Period: Q1 2024 (2024-01-01 to 2024-03-31)",
		"- Rule pack: gra-default",
		"| Estimated recovery (GHS) | 1,250.50 |",
		"| Compliance rate | 25.0% |",
		"1. tax-mismatch: 3",
		"- high: 2",
		"- critical: 0",
		"| petroleum | 2 | 5 | 1,000.00 |",
		"| origin | 2 | 2 | 0 | 70.0 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q\n%s", want, out)
		}
	}
}

func TestRenderNoViolations(t *testing.T) {
	e := execution.New("exec-3", "CASE", "", 0, time.Now())
	if err := e.Transition(execution.StatusCancelled, time.Now()); err != nil {
		t.Fatal(err)
	}
	s, err := Summarize(e, PeriodFor(e))
	if err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := s.Render(&b); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "No violations recorded.") {
		t.Errorf("Render() = %s", b.String())
	}
	if strings.Contains(b.String(), "## Sectors") {
		t.Error("Render() printed an empty sector table")
	}
}
