// Package telemetry groups the observability packages used by sentinel.
//
// # Components
//
//   - logging: structured slog logging with TIN and TSA reference redaction
//   - metrics: Prometheus collectors fed by audits and simulations
//   - tracing: OpenTelemetry spans for audits, simulations and HTTP
//   - health: liveness and readiness probes for the monitor
//
// # Usage
//
//	logger, err := logging.FromConfig(cfg.Telemetry.Logging, os.Stderr)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	...
//	orch := audit.NewOrchestrator(
//	    audit.WithLogger(logger),
//	    audit.WithObserver(collector),
//	    audit.WithTracer(tracer),
//	)
package telemetry
