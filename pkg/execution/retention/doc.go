// Package retention prunes stored executions by age and count, optionally
// archiving them to JSON first, and schedules pruning with
// github.com/robfig/cron/v3.
package retention
