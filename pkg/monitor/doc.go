// Package monitor serves live audit progress and operational endpoints.
//
// The Broadcaster fans audit progress out to websocket clients. Its Publish
// method has the audit.ProgressFunc signature and never blocks the audit: each
// client owns a bounded buffer and events are dropped for clients that fall
// behind.
//
//	b := monitor.NewBroadcaster(cfg.Monitor.ClientBuffer, logger)
//	exec, err := orch.Run(ctx, auditCfg, decls, b.Publish)
//
// The Server mounts the broadcaster on /ws next to /metrics, /healthz,
// /readyz and /version, and shuts down gracefully when its context ends.
package monitor
