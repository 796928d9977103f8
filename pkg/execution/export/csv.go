package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/execution"
)

// CSVExporter flattens executions into one row per finding. A result with no
// findings still gets a single row so clean declarations remain visible.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"execution_id", "case_id", "status",
	"declaration_id", "agent_type", "sector",
	"has_violation", "risk_score", "confidence", "recovery",
	"finding_type", "severity", "description", "evidence", "recommendation",
	"created_at",
}

// Export writes the CSV rows for every execution.
func (e *CSVExporter) Export(ctx context.Context, executions []*execution.Execution, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return execution.NewExportError("csv", len(executions), err)
		}
	}

	for _, exec := range executions {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, result := range exec.AgentResults {
			for _, row := range resultRows(exec, result) {
				if err := writer.Write(row); err != nil {
					return execution.NewExportError("csv", len(executions), err)
				}
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return execution.NewExportError("csv", len(executions), err)
	}
	return nil
}

func resultRows(exec *execution.Execution, r *agents.Result) [][]string {
	base := []string{
		exec.ID, exec.CaseID, string(exec.Status),
		r.DeclarationID, string(r.AgentType), r.Metadata.Sector,
		strconv.FormatBool(r.HasViolation),
		strconv.FormatFloat(r.RiskScore, 'f', 2, 64),
		strconv.FormatFloat(r.Confidence, 'f', 2, 64),
		strconv.FormatFloat(r.Metadata.Recovery(), 'f', 2, 64),
	}
	created := r.CreatedAt.UTC().Format(time.RFC3339)

	if len(r.Findings) == 0 {
		row := append(append([]string{}, base...), "", "", "", "", "", created)
		return [][]string{row}
	}

	rows := make([][]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		row := append(append([]string{}, base...),
			f.Type, string(f.Severity), f.Description,
			strings.Join(f.Evidence, "; "), f.Recommendation, created)
		rows = append(rows, row)
	}
	return rows
}
