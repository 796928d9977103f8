// Package audit runs post-clearance audits over batches of customs
// declarations.
//
// An Orchestrator takes a Config and a declaration snapshot and produces one
// execution.Execution:
//
//  1. Filter: scope (all, HS-code prefixes, shipment IDs) then the common
//     filters (date range, country, minimum risk, sector), all ANDed.
//  2. Dispatch: per declaration, the agents that both apply to it and are
//     enabled in the config run one after another. Declarations run either
//     sequentially or in parallel batches bounded by MaxConcurrency.
//  3. Aggregate: one pass over the ordered results computes the Ghana
//     metrics, per-agent performance and throughput.
//
// # Usage
//
//	orch := audit.NewOrchestrator(
//	    audit.WithLogger(logger),
//	    audit.WithRecorder(store),
//	)
//
//	cfg := audit.DefaultConfig()
//	cfg.CaseID = "CASE-2024-017"
//	cfg.Scope = audit.ScopeHSCodes
//	cfg.Filters.HSCodes = []string{"2710"}
//
//	exec, err := orch.Run(ctx, cfg, decls, func(p audit.Progress) {
//	    fmt.Printf("%.0f%%\n", p.Percent())
//	})
//
// # Failures
//
// Agent errors (and panics) are recorded in the execution's error log and never
// abort sibling work. A declaration counts as failed only when every agent
// attempted on it failed. Invalid configuration is rejected with a
// *ConfigError before anything runs; an aggregation failure yields a failed
// execution and an *ExecutionError.
//
// # Cancellation
//
// Cancelling ctx, or calling Cancel with the execution ID, stops the audit
// before the next declaration (sequential) or batch (parallel). Work already
// in flight finishes but its results are discarded. Parallel and sequential
// runs over the same input produce identical Ghana metrics.
package audit
