package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SENTINEL_"

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates it. Environment variables are not consulted.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults without validating.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration and applies environment
// variable overrides named SENTINEL_<SECTION>_<FIELD>, e.g.
// SENTINEL_ENGINE_MAX_CONCURRENCY. An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if cfg, err = Parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

// envOverride binds one environment variable to a field setter.
type envOverride struct {
	name string
	set  func(cfg *Config, value string) error
}

func stringField(get func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		*get(cfg) = v
		return nil
	}
}

func intField(get func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*get(cfg) = i
		return nil
	}
}

func boolField(get func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(cfg) = b
		return nil
	}
}

func boolPtrField(get func(*Config) **bool) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*get(cfg) = Bool(b)
		return nil
	}
}

func durationField(get func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*get(cfg) = d
		return nil
	}
}

var envOverrides = []envOverride{
	// Engine
	{"ENGINE_MODE", stringField(func(c *Config) *string { return &c.Engine.Mode })},
	{"ENGINE_MAX_CONCURRENCY", intField(func(c *Config) *int { return &c.Engine.MaxConcurrency })},
	{"ENGINE_BATCH_SIZE", intField(func(c *Config) *int { return &c.Engine.BatchSize })},
	{"ENGINE_AGENTS_ORIGIN", boolPtrField(func(c *Config) **bool { return &c.Engine.Agents.Origin })},
	{"ENGINE_AGENTS_ATG", boolPtrField(func(c *Config) **bool { return &c.Engine.Agents.ATG })},
	{"ENGINE_AGENTS_TAX", boolPtrField(func(c *Config) **bool { return &c.Engine.Agents.Tax })},
	{"ENGINE_AGENTS_PAYMENT", boolPtrField(func(c *Config) **bool { return &c.Engine.Agents.Payment })},

	// Rule packs
	{"RULEPACKS_BACKEND", stringField(func(c *Config) *string { return &c.RulePacks.Backend })},
	{"RULEPACKS_SQLITE_PATH", stringField(func(c *Config) *string { return &c.RulePacks.SQLitePath })},
	{"RULEPACKS_DIRECTORY", stringField(func(c *Config) *string { return &c.RulePacks.Directory })},
	{"RULEPACKS_WATCH", boolField(func(c *Config) *bool { return &c.RulePacks.Watch })},
	{"RULEPACKS_WATCH_DEBOUNCE", durationField(func(c *Config) *time.Duration { return &c.RulePacks.WatchDebounce })},
	{"RULEPACKS_GIT_REPOSITORY", stringField(func(c *Config) *string { return &c.RulePacks.Git.Repository })},
	{"RULEPACKS_GIT_BRANCH", stringField(func(c *Config) *string { return &c.RulePacks.Git.Branch })},
	{"RULEPACKS_GIT_TOKEN", stringField(func(c *Config) *string { return &c.RulePacks.Git.Auth.Token })},

	// Executions
	{"EXECUTIONS_BACKEND", stringField(func(c *Config) *string { return &c.Executions.Backend })},
	{"EXECUTIONS_SQLITE_PATH", stringField(func(c *Config) *string { return &c.Executions.SQLite.Path })},
	{"EXECUTIONS_SQLITE_BUSY_TIMEOUT", durationField(func(c *Config) *time.Duration { return &c.Executions.SQLite.BusyTimeout })},
	{"EXECUTIONS_RETENTION_DAYS", intField(func(c *Config) *int { return &c.Executions.Retention.Days })},
	{"EXECUTIONS_RETENTION_PRUNE_SCHEDULE", stringField(func(c *Config) *string { return &c.Executions.Retention.PruneSchedule })},
	{"EXECUTIONS_RETENTION_MAX_RECORDS", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Executions.Retention.MaxRecords = n
		return nil
	}},
	{"EXECUTIONS_RETENTION_ARCHIVE_BEFORE_DELETE", boolField(func(c *Config) *bool { return &c.Executions.Retention.ArchiveBeforeDelete })},
	{"EXECUTIONS_RETENTION_ARCHIVE_PATH", stringField(func(c *Config) *string { return &c.Executions.Retention.ArchivePath })},

	// Simulation
	{"SIMULATION_FALSE_POSITIVE_RATE", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Simulation.FalsePositiveRate = Float(f)
		return nil
	}},
	{"SIMULATION_SEED", func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		c.Simulation.Seed = n
		return nil
	}},
	{"SIMULATION_LABELS_PATH", stringField(func(c *Config) *string { return &c.Simulation.LabelsPath })},

	// Monitor
	{"MONITOR_LISTEN_ADDRESS", stringField(func(c *Config) *string { return &c.Monitor.ListenAddress })},
	{"MONITOR_SHUTDOWN_TIMEOUT", durationField(func(c *Config) *time.Duration { return &c.Monitor.ShutdownTimeout })},
	{"MONITOR_CLIENT_BUFFER", intField(func(c *Config) *int { return &c.Monitor.ClientBuffer })},

	// Telemetry
	{"TELEMETRY_LOGGING_LEVEL", stringField(func(c *Config) *string { return &c.Telemetry.Logging.Level })},
	{"TELEMETRY_LOGGING_FORMAT", stringField(func(c *Config) *string { return &c.Telemetry.Logging.Format })},
	{"TELEMETRY_LOGGING_REDACT", boolPtrField(func(c *Config) **bool { return &c.Telemetry.Logging.Redact })},
	{"TELEMETRY_METRICS_ENABLED", boolPtrField(func(c *Config) **bool { return &c.Telemetry.Metrics.Enabled })},
	{"TELEMETRY_METRICS_PATH", stringField(func(c *Config) *string { return &c.Telemetry.Metrics.Path })},
	{"TELEMETRY_TRACING_ENABLED", boolField(func(c *Config) *bool { return &c.Telemetry.Tracing.Enabled })},
	{"TELEMETRY_TRACING_EXPORTER", stringField(func(c *Config) *string { return &c.Telemetry.Tracing.Exporter })},
	{"TELEMETRY_TRACING_ENDPOINT", stringField(func(c *Config) *string { return &c.Telemetry.Tracing.Endpoint })},
	{"TELEMETRY_TRACING_SAMPLER", stringField(func(c *Config) *string { return &c.Telemetry.Tracing.Sampler })},
}

// applyEnvOverrides applies every set override. Malformed values are
// reported as field errors.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) error {
	var errs []FieldError
	for _, o := range envOverrides {
		val, ok := lookup(EnvPrefix + o.name)
		if !ok || val == "" {
			continue
		}
		if err := o.set(cfg, val); err != nil {
			errs = append(errs, FieldError{
				Field:   EnvPrefix + o.name,
				Message: fmt.Sprintf("invalid value %q: %v", val, err),
			})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
