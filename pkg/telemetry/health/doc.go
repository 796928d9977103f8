// Package health implements the liveness and readiness probes served by the
// monitor.
//
// Liveness only reports that the process is up. Readiness runs every
// registered check concurrently, each under its own timeout, and reports
// "degraded" when any of them fails:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("rulepacks", health.ActiveRulePackCheck(packs))
//	checker.RegisterCheck("executions", health.ExecutionStoreCheck(storage))
//	mux.Handle("/readyz", checker.ReadinessHandler())
package health
