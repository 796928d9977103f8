// Package execution defines the audit execution record and the ports used to
// persist and export it.
//
// An Execution is created by the audit orchestrator in the running state and
// moves exactly once into completed, failed or cancelled:
//
//	exec := execution.New(id, caseID, packID, len(decls), time.Now())
//	...
//	if err := exec.Transition(execution.StatusCompleted, time.Now()); err != nil {
//	    // already terminal
//	}
//
// Terminal executions are saved through a Storage backend (see the storage
// subpackage), exported with an Exporter (see export) and pruned by the
// retention subpackage.
package execution
