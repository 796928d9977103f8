package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"gra-pca/sentinel/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	redactor := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"tin", "declarant TIN1234567 filed", "declarant TIN******* filed"},
		{"ten digit tin", "TIN0123456789", "TIN*******"},
		{"tsa reference", "ref TSA123456789012", "ref TSA1234********"},
		{"email", "contact kofi@gra.gov.gh", "contact ***@gra.gov.gh"},
		{"ghana phone", "call +233241234567", "call +233*********"},
		{"bearer", "Authorization: Bearer abc.def", "Authorization: Bearer ***"},
		{"short tin untouched", "TIN123", "TIN123"},
		{"plain text", "tax-calculation-error on DEC-1", "tax-calculation-error on DEC-1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_CustomPatterns(t *testing.T) {
	redactor := NewRedactor([]config.RedactPattern{
		{Name: "container", Pattern: `MSKU\d{7}`, Replacement: "MSKU*******"},
		{Name: "broken", Pattern: "[unclosed", Replacement: "x"},
	})

	if got := redactor.RedactString("box MSKU1234567"); got != "box MSKU*******" {
		t.Errorf("custom pattern not applied: %q", got)
	}
	if len(redactor.patterns) != len(defaultPatterns)+1 {
		t.Errorf("expected invalid pattern to be skipped, got %d patterns", len(redactor.patterns))
	}
}

func TestRedactor_SensitiveKeys(t *testing.T) {
	redactor := NewRedactor(nil)

	tests := []struct {
		key  string
		want string
	}{
		{"password", "***"},
		{"db_password", "***"},
		{"api_key", "***"},
		{"setting", "value"},
		{"declarant", "value"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := redactor.RedactAttr(slog.String(tt.key, "value"))
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr(%s) = %q, want %q", tt.key, got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactTIN(t *testing.T) {
	if got := RedactTIN("TIN1234567"); got != "TIN*******" {
		t.Errorf("RedactTIN = %q", got)
	}
	if got := RedactTIN("12345"); got != "***" {
		t.Errorf("RedactTIN without prefix = %q", got)
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	return entry
}

func TestNew_ContextFieldsAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Redact: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithExecution(context.Background(), "exec-1", "CASE-9")
	ctx = WithDeclarationID(ctx, "DEC-7")
	logger.With("component", "audit").InfoContext(ctx, "analysed",
		"declarant", "TIN1234567",
		"payment", slog.GroupValue(slog.String("reference", "TSA123456789012")),
		"error", errors.New("bad TIN9876543"),
	)

	entry := decodeLine(t, &buf)
	checks := map[string]string{
		"execution_id":   "exec-1",
		"case_id":        "CASE-9",
		"declaration_id": "DEC-7",
		"component":      "audit",
		"declarant":      "TIN*******",
		"error":          "bad TIN*******",
	}
	for key, want := range checks {
		if got, _ := entry[key].(string); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	payment, ok := entry["payment"].(map[string]any)
	if !ok || payment["reference"] != "TSA1234********" {
		t.Errorf("group not redacted: %v", entry["payment"])
	}
}

func TestNew_RedactionDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("filed", "declarant", "TIN1234567")

	entry := decodeLine(t, &buf)
	if entry["declarant"] != "TIN1234567" {
		t.Errorf("declarant = %v, want unredacted", entry["declarant"])
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "msg=shown") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad level", Config{Level: "verbose"}},
		{"bad format", Config{Format: "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestContextGetters(t *testing.T) {
	ctx := WithExecution(context.Background(), "e", "")
	if GetExecutionID(ctx) != "e" || GetCaseID(ctx) != "" {
		t.Errorf("unexpected context values")
	}
	ctx = WithRequestID(ctx, "r")
	if GetRequestID(ctx) != "r" {
		t.Errorf("GetRequestID = %q", GetRequestID(ctx))
	}
	if GetDeclarationID(context.Background()) != "" {
		t.Error("expected empty declaration id")
	}
}

func TestTraceFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	logger.InfoContext(ctx, "traced")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	if entry["span_id"] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", entry["span_id"])
	}
}
