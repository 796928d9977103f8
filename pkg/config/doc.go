// Package config loads and validates sentinel configuration.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("sentinel.yaml")
//	cfg, err := config.LoadConfigWithEnvOverrides("sentinel.yaml")
//	cfg := config.Default()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SENTINEL_SECTION_FIELD:
//
//   - SENTINEL_ENGINE_MAX_CONCURRENCY overrides engine.max_concurrency
//   - SENTINEL_EXECUTIONS_SQLITE_PATH overrides executions.sqlite.path
//   - SENTINEL_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values are applied in order: defaults, YAML file, environment, then
// validation. Validation collects every FieldError before failing:
//
//	configuration validation failed with 2 errors:
//	  - engine.mode: invalid mode "fast": must be 'parallel' or 'sequential'
//	  - executions.retention.prune_schedule: invalid cron expression ...
//
// # Example Configuration
//
//	engine:
//	  mode: parallel
//	  max_concurrency: 8
//	  agents:
//	    payment: false
//
//	rulepacks:
//	  backend: sqlite
//	  directory: ./rulepacks
//	  watch: true
//
//	executions:
//	  backend: sqlite
//	  sqlite:
//	    path: data/executions.db
//	  retention:
//	    days: 365
//	    prune_schedule: "0 3 * * *"
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//
// There is no process-wide configuration; callers pass *Config explicitly.
package config
