package simulation

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gra-pca/sentinel/pkg/rulepack"
)

func TestEvaluateTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)).Tracer("test")
	h := fixedHarness(WithTracer(tracer))

	if _, err := h.Evaluate(context.Background(), rulepack.Default(), dataset()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Evaluate(cancelled, rulepack.Default(), dataset()); err == nil {
		t.Fatal("Evaluate(cancelled) should fail")
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	ok, failed := spans[0], spans[1]
	if ok.Name() != "simulation.run" || ok.Status().Code != codes.Ok {
		t.Errorf("first span = %q %v", ok.Name(), ok.Status())
	}
	keys := map[string]bool{}
	for _, kv := range ok.Attributes() {
		keys[string(kv.Key)] = true
	}
	for _, want := range []string{"sentinel.rulepack.id", "sentinel.simulation.id", "sentinel.simulation.precision", "sentinel.simulation.f1"} {
		if !keys[want] {
			t.Errorf("simulation.run missing attribute %s", want)
		}
	}
	if failed.Status().Code != codes.Error {
		t.Errorf("cancelled span status = %v", failed.Status())
	}
}
