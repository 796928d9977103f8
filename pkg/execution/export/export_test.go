package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/execution"
)

func sampleExecution(id string) *execution.Execution {
	e := execution.New(id, "CASE-7", "", 2, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	e.AgentResults = []*agents.Result{
		{
			AgentType:     agents.AgentOrigin,
			DeclarationID: "D1",
			HasViolation:  true,
			RiskScore:     65,
			Confidence:    0.95,
			Findings: []agents.Finding{
				{Type: "origin-fraud", Severity: agents.SeverityCritical, Evidence: []string{"declared origin: CN", "claim: true"}},
				{Type: "suspicious-origin-pattern", Severity: agents.SeverityHigh},
			},
			Metadata: agents.Metadata{Sector: "textiles"},
		},
		{
			AgentType:     agents.AgentTax,
			DeclarationID: "D2",
			Confidence:    1,
			Findings:      []agents.Finding{},
		},
	}
	return e
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVExporter(true).Export(context.Background(), []*execution.Execution{sampleExecution("E1")}, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	// header + two findings + one clean result
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "execution_id" {
		t.Errorf("header[0] = %q, want execution_id", rows[0][0])
	}
	if rows[1][10] != "origin-fraud" || rows[2][10] != "suspicious-origin-pattern" {
		t.Errorf("finding columns = %q, %q", rows[1][10], rows[2][10])
	}
	if rows[1][13] != "declared origin: CN; claim: true" {
		t.Errorf("evidence column = %q", rows[1][13])
	}
	if rows[3][3] != "D2" || rows[3][10] != "" {
		t.Errorf("clean result row = %v", rows[3])
	}
	for i, row := range rows {
		if len(row) != len(csvHeader) {
			t.Errorf("row %d has %d columns, want %d", i, len(row), len(csvHeader))
		}
	}
}

func TestJSONExporter(t *testing.T) {
	tests := []struct {
		name       string
		executions []*execution.Execution
		pretty     bool
		wantPrefix string
	}{
		{"empty", nil, false, "[]"},
		{"single object", []*execution.Execution{sampleExecution("E1")}, false, "{"},
		{"array", []*execution.Execution{sampleExecution("E1"), sampleExecution("E2")}, true, "["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONExporter(tt.pretty).Export(context.Background(), tt.executions, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			out := strings.TrimSpace(buf.String())
			if !strings.HasPrefix(out, tt.wantPrefix) {
				t.Errorf("output starts with %q, want %q", out[:1], tt.wantPrefix)
			}
			if !json.Valid([]byte(out)) {
				t.Error("output is not valid JSON")
			}
		})
	}
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(ctx, []*execution.Execution{sampleExecution("E1")}, &buf); err == nil {
		t.Error("CSV Export() with cancelled context returned nil error")
	}
	if err := NewJSONExporter(false).Export(ctx, []*execution.Execution{sampleExecution("E1")}, &buf); err == nil {
		t.Error("JSON Export() with cancelled context returned nil error")
	}
}
