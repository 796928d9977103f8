package export

import (
	"context"
	"encoding/json"
	"io"

	"gra-pca/sentinel/pkg/execution"
)

// JSONExporter exports executions as JSON.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes a single execution as an object and several as an array.
func (e *JSONExporter) Export(ctx context.Context, executions []*execution.Execution, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(executions) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var v interface{} = executions
	if len(executions) == 1 {
		v = executions[0]
	}

	enc := json.NewEncoder(w)
	if e.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return execution.NewExportError("json", len(executions), err)
	}
	return nil
}
