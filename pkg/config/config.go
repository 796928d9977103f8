package config

import "time"

// Config is the root configuration structure for sentinel.
type Config struct {
	// Engine controls how audits dispatch declarations to agents.
	Engine EngineConfig `yaml:"engine"`

	// RulePacks selects where rule packs are stored and whether a directory
	// of YAML packs is watched.
	RulePacks RulePacksConfig `yaml:"rulepacks"`

	// Executions configures execution storage, retention and export.
	Executions ExecutionsConfig `yaml:"executions"`

	// Simulation configures the rule pack simulation harness.
	Simulation SimulationConfig `yaml:"simulation"`

	// Monitor configures the HTTP monitoring server.
	Monitor MonitorConfig `yaml:"monitor"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains audit orchestrator defaults. Individual runs may
// override them.
type EngineConfig struct {
	// Mode is "parallel" or "sequential".
	// Default: "parallel"
	Mode string `yaml:"mode"`

	// MaxConcurrency bounds the number of declarations analysed at once in
	// parallel mode.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// BatchSize is the number of declarations per parallel batch.
	// Default: MaxConcurrency
	BatchSize int `yaml:"batch_size"`

	// Agents enables or disables individual agents. All default to enabled.
	Agents AgentsConfig `yaml:"agents"`
}

// AgentsConfig toggles agents. A nil value means enabled.
type AgentsConfig struct {
	Origin  *bool `yaml:"origin"`
	ATG     *bool `yaml:"atg"`
	Tax     *bool `yaml:"tax"`
	Payment *bool `yaml:"payment"`
}

// RulePacksConfig contains rule pack store configuration.
type RulePacksConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	// Default: "data/rulepacks.db"
	SQLitePath string `yaml:"sqlite_path"`

	// Directory holds YAML rule pack files imported at startup.
	// Default: "rulepacks"
	Directory string `yaml:"directory"`

	// Watch re-imports packs when files in Directory change.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces bursts of file events.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git syncs packs from a Git repository. Disabled when Repository is
	// empty.
	Git GitConfig `yaml:"git"`
}

// GitConfig points at a Git repository of rule pack files.
type GitConfig struct {
	// Repository is the clone URL or local path.
	Repository string `yaml:"repository"`

	// Branch to track.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the pack directory inside the repository. Empty means the
	// repository root.
	Path string `yaml:"path"`

	// LocalPath is where the repository is cloned.
	// Default: "data/rulepacks-git"
	LocalPath string `yaml:"local_path"`

	// Depth limits the clone history. 0 clones everything.
	Depth int `yaml:"depth"`

	// PollInterval is how often the remote is pulled.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout bounds each clone or pull.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	Auth GitAuthConfig `yaml:"auth"`
}

// Enabled reports whether a repository is configured.
func (c GitConfig) Enabled() bool {
	return c.Repository != ""
}

// GitAuthConfig selects how the repository is authenticated.
type GitAuthConfig struct {
	// Type is "none", "token" or "ssh".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is used as the HTTP basic auth password for "token".
	Token string `yaml:"token"`

	// SSHKeyPath and SSHKeyPassphrase are used for "ssh".
	SSHKeyPath       string `yaml:"ssh_key_path"`
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// ExecutionsConfig contains execution storage configuration.
type ExecutionsConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	SQLite    SQLiteConfig    `yaml:"sqlite"`
	Retention RetentionConfig `yaml:"retention"`
	Export    ExportConfig    `yaml:"export"`
}

// SQLiteConfig configures the SQLite execution store.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/executions.db"
	Path string `yaml:"path"`

	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures pruning of old executions.
type RetentionConfig struct {
	// Days is how long terminal executions are kept. 0 keeps them forever.
	// Default: 365
	Days int `yaml:"days"`

	// PruneSchedule is a standard five-field cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// MaxRecords caps the number of stored executions. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`

	// ArchiveBeforeDelete writes pruned executions to ArchivePath as JSON.
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`
}

// ExportConfig configures execution export.
type ExportConfig struct {
	// Default: true
	JSONPretty *bool `yaml:"json_pretty"`

	// Default: true
	CSVHeader *bool `yaml:"csv_header"`
}

// SimulationConfig configures the simulation harness.
type SimulationConfig struct {
	// FalsePositiveRate is the share of flagged declarations labelled as
	// false positives by the random labeler.
	// Default: 0.1
	FalsePositiveRate *float64 `yaml:"false_positive_rate"`

	// Seed makes random labelling reproducible.
	// Default: 1
	Seed uint64 `yaml:"seed"`

	// LabelsPath points to a YAML map of declaration id to false-positive
	// outcome. When set, historical labels are used instead of random ones.
	LabelsPath string `yaml:"labels_path"`
}

// MonitorConfig configures the monitoring HTTP server.
type MonitorConfig struct {
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Default: 10s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// ClientBuffer is the per-websocket-client event buffer. Events are
	// dropped for clients whose buffer is full.
	// Default: 64
	ClientBuffer int `yaml:"client_buffer"`

	// APIKeys, when non-empty, are required on every route except the
	// health and version endpoints.
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig is one monitor API key.
type APIKeyConfig struct {
	// Name identifies the key holder in logs.
	Name string `yaml:"name"`

	Key string `yaml:"key"`

	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`

	// Redact masks TINs and TSA references in log fields.
	// Default: true
	Redact *bool `yaml:"redact"`

	// RedactPatterns are custom redaction patterns applied after the
	// built-in ones.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is where the monitor server exposes Prometheus metrics.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "sentinel"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Exporter is "otlp" or "stdout".
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Sampler is "always", "never" or "ratio".
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is used by the ratio sampler.
	// Default: 1.0
	SampleRatio *float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "sentinel"
	ServiceName string `yaml:"service_name"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// BoolValue returns *p, or def when p is nil.
func BoolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// FloatValue returns *p, or def when p is nil.
func FloatValue(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
