// Package tracing provides OpenTelemetry tracing for audit runs, simulations
// and the monitor HTTP server.
//
// # Exporters
//
// Two exporters are supported:
//   - otlp: OTLP over gRPC to a collector (Jaeger, Tempo, the OTel collector)
//   - stdout: pretty-printed JSON spans, for local debugging
//
// # Sampling
//
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample a share of traces by trace ID
//
// Every sampler is wrapped in ParentBased, so child spans follow the decision
// of their parent.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	orch := audit.NewOrchestrator(audit.WithTracer(tracer))
//
// A disabled configuration yields a noop tracer, so callers never need to
// branch on whether tracing is on.
//
// # Span Names
//
//	audit.run           one audit execution
//	audit.declaration   one declaration inside an audit
//	simulation.run      one rule pack simulation
//	http.request        one monitor HTTP request
package tracing
