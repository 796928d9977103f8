package audit

import (
	"time"

	"gra-pca/sentinel/pkg/execution"
)

// Progress is a snapshot of a running execution, delivered after each
// declaration (sequential mode) or batch (parallel mode), and once more when
// the execution reaches a terminal status.
type Progress struct {
	ExecutionID string           `json:"execution_id"`
	CaseID      string           `json:"case_id"`
	Status      execution.Status `json:"status"`
	Total       int              `json:"total"`
	Processed   int              `json:"processed"`
	Failed      int              `json:"failed"`
	Results     int              `json:"results"`
	Violations  int              `json:"violations"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Percent returns the share of declarations finished, 0-100.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Processed+p.Failed) / float64(p.Total) * 100
}

// ProgressFunc receives progress snapshots. It is called from the goroutine
// running the audit and must not block for long.
type ProgressFunc func(Progress)

func snapshot(exec *execution.Execution, violations int, at time.Time) Progress {
	return Progress{
		ExecutionID: exec.ID,
		CaseID:      exec.CaseID,
		Status:      exec.Status,
		Total:       exec.TotalDeclarations,
		Processed:   exec.ProcessedDeclarations,
		Failed:      exec.FailedDeclarations,
		Results:     len(exec.AgentResults),
		Violations:  violations,
		Timestamp:   at,
	}
}
