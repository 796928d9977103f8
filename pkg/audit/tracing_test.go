package audit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRun_Tracer(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")

	exec, err := NewOrchestrator(WithTracer(tracer)).Run(context.Background(), sequentialConfig(), fixtures(), nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != exec.TotalDeclarations+1 {
		t.Fatalf("recorded %d spans, want %d", len(spans), exec.TotalDeclarations+1)
	}

	root := spans[len(spans)-1]
	if root.Name() != "audit.run" {
		t.Fatalf("last span = %q, want audit.run", root.Name())
	}
	if root.Status().Code != codes.Ok {
		t.Errorf("audit.run status = %v", root.Status())
	}
	attrs := map[string]string{}
	for _, kv := range root.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["sentinel.execution.id"] != exec.ID || attrs["sentinel.case.id"] != "CASE-1" {
		t.Errorf("audit.run attributes = %v", attrs)
	}
	if attrs["sentinel.execution.status"] != "completed" {
		t.Errorf("status attribute = %q", attrs["sentinel.execution.status"])
	}

	for _, s := range spans[:len(spans)-1] {
		if s.Name() != "audit.declaration" {
			t.Errorf("span %q, want audit.declaration", s.Name())
		}
		if s.Parent().SpanID() != root.SpanContext().SpanID() {
			t.Errorf("declaration span is not a child of audit.run")
		}
	}
}
