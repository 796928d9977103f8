// Package metrics exposes Prometheus metrics for audits, agents, rule pack
// simulations and the background jobs of the serve command.
//
// # Metrics
//
// With the default "sentinel" namespace:
//
//	sentinel_audit_executions_total{status}
//	sentinel_audit_execution_duration_seconds
//	sentinel_audit_declarations_total{outcome}
//	sentinel_audit_violations_total{sector}
//	sentinel_audit_recovery_ghs_total{sector}
//	sentinel_audit_compliance_rate
//	sentinel_agent_runs_total{agent,violation}
//	sentinel_agent_errors_total{agent}
//	sentinel_agent_risk_score{agent}
//	sentinel_agent_duration_seconds{agent}
//	sentinel_agent_findings_total{type,severity}
//	sentinel_simulation_runs_total{rule_pack}
//	sentinel_simulation_false_positives_total{rule_pack}
//	sentinel_simulation_{accuracy,precision,recall,f1_score}{rule_pack}
//	sentinel_rulepack_imports_total
//	sentinel_rulepack_import_errors_total
//	sentinel_executions_pruned_total
//	sentinel_executions_prune_errors_total
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	orch := audit.NewOrchestrator(audit.WithObserver(collector))
//	harness := simulation.NewHarness(simulation.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// A collector built from a disabled configuration accepts every call and
// records nothing.
package metrics
