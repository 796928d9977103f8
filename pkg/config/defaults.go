package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultEngineMode           = "parallel"
	DefaultEngineMaxConcurrency = 4

	// Rule pack defaults
	DefaultRulePacksBackend       = "sqlite"
	DefaultRulePacksSQLitePath    = "data/rulepacks.db"
	DefaultRulePacksDirectory     = "rulepacks"
	DefaultRulePacksWatchDebounce = 100 * time.Millisecond
	DefaultGitBranch              = "main"
	DefaultGitLocalPath           = "data/rulepacks-git"
	DefaultGitPollInterval        = time.Minute
	DefaultGitTimeout             = 30 * time.Second
	DefaultGitAuthType            = "none"

	// Execution defaults
	DefaultExecutionsBackend           = "sqlite"
	DefaultExecutionsSQLitePath        = "data/executions.db"
	DefaultExecutionsSQLiteMaxOpen     = 10
	DefaultExecutionsSQLiteMaxIdle     = 5
	DefaultExecutionsSQLiteWALMode     = true
	DefaultExecutionsSQLiteBusyTimeout = 5 * time.Second
	DefaultRetentionDays               = 365
	DefaultRetentionSchedule           = "0 3 * * *"
	DefaultRetentionArchivePath        = "data/archives"
	DefaultExportJSONPretty            = true
	DefaultExportCSVHeader             = true

	// Simulation defaults
	DefaultSimulationFalsePositiveRate = 0.1
	DefaultSimulationSeed              = uint64(1)

	// Monitor defaults
	DefaultMonitorListenAddress   = "127.0.0.1:9090"
	DefaultMonitorReadTimeout     = 10 * time.Second
	DefaultMonitorWriteTimeout    = 10 * time.Second
	DefaultMonitorShutdownTimeout = 15 * time.Second
	DefaultMonitorClientBuffer    = 64

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingRedact    = true
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "sentinel"
	DefaultTracingExporter  = "otlp"
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingSampler   = "always"
	DefaultTracingRatio     = 1.0
	DefaultTracingService   = "sentinel"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Explicit values,
// including explicit false for pointer-typed booleans, are preserved.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.Mode == "" {
		cfg.Engine.Mode = DefaultEngineMode
	}
	if cfg.Engine.MaxConcurrency == 0 {
		cfg.Engine.MaxConcurrency = DefaultEngineMaxConcurrency
	}
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = cfg.Engine.MaxConcurrency
	}
	agents := &cfg.Engine.Agents
	for _, toggle := range []**bool{&agents.Origin, &agents.ATG, &agents.Tax, &agents.Payment} {
		if *toggle == nil {
			*toggle = Bool(true)
		}
	}

	// Rule pack defaults
	if cfg.RulePacks.Backend == "" {
		cfg.RulePacks.Backend = DefaultRulePacksBackend
	}
	if cfg.RulePacks.SQLitePath == "" {
		cfg.RulePacks.SQLitePath = DefaultRulePacksSQLitePath
	}
	if cfg.RulePacks.Directory == "" {
		cfg.RulePacks.Directory = DefaultRulePacksDirectory
	}
	if cfg.RulePacks.WatchDebounce == 0 {
		cfg.RulePacks.WatchDebounce = DefaultRulePacksWatchDebounce
	}
	git := &cfg.RulePacks.Git
	if git.Branch == "" {
		git.Branch = DefaultGitBranch
	}
	if git.LocalPath == "" {
		git.LocalPath = DefaultGitLocalPath
	}
	if git.PollInterval == 0 {
		git.PollInterval = DefaultGitPollInterval
	}
	if git.Timeout == 0 {
		git.Timeout = DefaultGitTimeout
	}
	if git.Auth.Type == "" {
		git.Auth.Type = DefaultGitAuthType
	}

	// Execution defaults
	exec := &cfg.Executions
	if exec.Backend == "" {
		exec.Backend = DefaultExecutionsBackend
	}
	if exec.SQLite.Path == "" {
		exec.SQLite.Path = DefaultExecutionsSQLitePath
	}
	if exec.SQLite.MaxOpenConns == 0 {
		exec.SQLite.MaxOpenConns = DefaultExecutionsSQLiteMaxOpen
	}
	if exec.SQLite.MaxIdleConns == 0 {
		exec.SQLite.MaxIdleConns = DefaultExecutionsSQLiteMaxIdle
	}
	if exec.SQLite.WALMode == nil {
		exec.SQLite.WALMode = Bool(DefaultExecutionsSQLiteWALMode)
	}
	if exec.SQLite.BusyTimeout == 0 {
		exec.SQLite.BusyTimeout = DefaultExecutionsSQLiteBusyTimeout
	}
	if exec.Retention.Days == 0 {
		exec.Retention.Days = DefaultRetentionDays
	}
	if exec.Retention.PruneSchedule == "" {
		exec.Retention.PruneSchedule = DefaultRetentionSchedule
	}
	if exec.Retention.ArchivePath == "" {
		exec.Retention.ArchivePath = DefaultRetentionArchivePath
	}
	if exec.Export.JSONPretty == nil {
		exec.Export.JSONPretty = Bool(DefaultExportJSONPretty)
	}
	if exec.Export.CSVHeader == nil {
		exec.Export.CSVHeader = Bool(DefaultExportCSVHeader)
	}

	// Simulation defaults
	if cfg.Simulation.FalsePositiveRate == nil {
		cfg.Simulation.FalsePositiveRate = Float(DefaultSimulationFalsePositiveRate)
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = DefaultSimulationSeed
	}

	// Monitor defaults
	if cfg.Monitor.ListenAddress == "" {
		cfg.Monitor.ListenAddress = DefaultMonitorListenAddress
	}
	if cfg.Monitor.ReadTimeout == 0 {
		cfg.Monitor.ReadTimeout = DefaultMonitorReadTimeout
	}
	if cfg.Monitor.WriteTimeout == 0 {
		cfg.Monitor.WriteTimeout = DefaultMonitorWriteTimeout
	}
	if cfg.Monitor.ShutdownTimeout == 0 {
		cfg.Monitor.ShutdownTimeout = DefaultMonitorShutdownTimeout
	}
	if cfg.Monitor.ClientBuffer == 0 {
		cfg.Monitor.ClientBuffer = DefaultMonitorClientBuffer
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Redact == nil {
		cfg.Telemetry.Logging.Redact = Bool(DefaultLoggingRedact)
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = Bool(DefaultMetricsEnabled)
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Exporter == "" {
		cfg.Telemetry.Tracing.Exporter = DefaultTracingExporter
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == nil {
		cfg.Telemetry.Tracing.SampleRatio = Float(DefaultTracingRatio)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingService
	}
}
