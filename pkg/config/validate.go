package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "engine.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration. All field errors are collected
// and returned together as a ValidationError.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateRulePacks(&cfg.RulePacks)...)
	errs = append(errs, validateExecutions(&cfg.Executions)...)
	errs = append(errs, validateSimulation(&cfg.Simulation)...)
	errs = append(errs, validateMonitor(&cfg.Monitor)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.Mode != "parallel" && cfg.Mode != "sequential" {
		errs = append(errs, FieldError{
			Field:   "engine.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'parallel' or 'sequential'", cfg.Mode),
		})
	}
	if cfg.MaxConcurrency < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.max_concurrency",
			Message: "max concurrency must be at least 1",
		})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.batch_size",
			Message: "batch size must be at least 1",
		})
	}

	a := cfg.Agents
	if !BoolValue(a.Origin, true) && !BoolValue(a.ATG, true) && !BoolValue(a.Tax, true) && !BoolValue(a.Payment, true) {
		errs = append(errs, FieldError{
			Field:   "engine.agents",
			Message: "at least one agent must be enabled",
		})
	}
	return errs
}

func validateBackend(field, backend string) []FieldError {
	if backend != "memory" && backend != "sqlite" {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", backend),
		}}
	}
	return nil
}

func validateRulePacks(cfg *RulePacksConfig) []FieldError {
	errs := validateBackend("rulepacks.backend", cfg.Backend)

	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "rulepacks.sqlite_path",
			Message: "sqlite path is required for the sqlite backend",
		})
	}
	if cfg.Watch && cfg.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "rulepacks.directory",
			Message: "directory is required when watch is enabled",
		})
	}
	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "rulepacks.watch_debounce",
			Message: "watch debounce must be non-negative",
		})
	}
	if cfg.Git.Enabled() {
		errs = append(errs, validateGit(&cfg.Git)...)
	}
	return errs
}

func validateGit(cfg *GitConfig) []FieldError {
	var errs []FieldError

	if cfg.Branch == "" {
		errs = append(errs, FieldError{Field: "rulepacks.git.branch", Message: "branch is required"})
	}
	if cfg.LocalPath == "" {
		errs = append(errs, FieldError{Field: "rulepacks.git.local_path", Message: "local path is required"})
	}
	if cfg.Depth < 0 {
		errs = append(errs, FieldError{Field: "rulepacks.git.depth", Message: "depth must be non-negative"})
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, FieldError{Field: "rulepacks.git.poll_interval", Message: "poll interval must be positive"})
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{Field: "rulepacks.git.timeout", Message: "timeout must be positive"})
	}

	switch cfg.Auth.Type {
	case "none":
	case "token":
		if cfg.Auth.Token == "" {
			errs = append(errs, FieldError{Field: "rulepacks.git.auth.token", Message: "token auth requires a token"})
		}
	case "ssh":
		if cfg.Auth.SSHKeyPath == "" {
			errs = append(errs, FieldError{Field: "rulepacks.git.auth.ssh_key_path", Message: "ssh auth requires ssh_key_path"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "rulepacks.git.auth.type",
			Message: fmt.Sprintf("invalid auth type %q: must be 'none', 'token' or 'ssh'", cfg.Auth.Type),
		})
	}
	return errs
}

func validateExecutions(cfg *ExecutionsConfig) []FieldError {
	errs := validateBackend("executions.backend", cfg.Backend)

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "executions.sqlite.path",
				Message: "sqlite path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "executions.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
		if cfg.SQLite.MaxIdleConns < 0 || cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "executions.sqlite.max_idle_conns",
				Message: "max idle connections must be between 0 and max open connections",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "executions.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	}

	r := cfg.Retention
	if r.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "executions.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if r.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "executions.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if r.PruneSchedule != "" {
		if _, err := cron.ParseStandard(r.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "executions.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", r.PruneSchedule, err),
			})
		}
	}
	if r.ArchiveBeforeDelete && r.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "executions.retention.archive_path",
			Message: "archive path is required when archive_before_delete is enabled",
		})
	}
	return errs
}

func validateSimulation(cfg *SimulationConfig) []FieldError {
	var errs []FieldError
	if rate := cfg.FalsePositiveRate; rate != nil && (*rate < 0 || *rate > 1) {
		errs = append(errs, FieldError{
			Field:   "simulation.false_positive_rate",
			Message: "false positive rate must be between 0.0 and 1.0",
		})
	}
	return errs
}

func validateMonitor(cfg *MonitorConfig) []FieldError {
	var errs []FieldError

	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "monitor.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 || cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "monitor.timeouts",
			Message: "timeouts must be non-negative",
		})
	}
	if cfg.ClientBuffer < 1 {
		errs = append(errs, FieldError{
			Field:   "monitor.client_buffer",
			Message: "client buffer must be at least 1",
		})
	}

	seen := make(map[string]bool)
	for i, k := range cfg.APIKeys {
		field := fmt.Sprintf("monitor.api_keys[%d]", i)
		switch {
		case k.Name == "":
			errs = append(errs, FieldError{Field: field + ".name", Message: "name is required"})
		case k.Key == "":
			errs = append(errs, FieldError{Field: field + ".key", Message: "key is required"})
		case seen[k.Key]:
			errs = append(errs, FieldError{Field: field + ".key", Message: fmt.Sprintf("key for %q duplicates another key", k.Name)})
		}
		seen[k.Key] = true
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if BoolValue(cfg.Metrics.Enabled, DefaultMetricsEnabled) && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with '/'",
		})
	}

	tr := cfg.Tracing
	if tr.Exporter != "otlp" && tr.Exporter != "stdout" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.exporter",
			Message: fmt.Sprintf("invalid exporter %q: must be 'otlp' or 'stdout'", tr.Exporter),
		})
	}
	if tr.Enabled && tr.Exporter == "otlp" && tr.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required for the otlp exporter",
		})
	}
	switch tr.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", tr.Sampler),
		})
	}
	if tr.SampleRatio != nil && (*tr.SampleRatio < 0 || *tr.SampleRatio > 1) {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0 and 1, got %v", *tr.SampleRatio),
		})
	}
	return errs
}
