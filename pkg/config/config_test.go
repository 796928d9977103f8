package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Engine.Mode != DefaultEngineMode {
		t.Errorf("engine.mode = %q", cfg.Engine.Mode)
	}
	if cfg.Engine.BatchSize != DefaultEngineMaxConcurrency {
		t.Errorf("engine.batch_size = %d, want max concurrency", cfg.Engine.BatchSize)
	}
	if !BoolValue(cfg.Engine.Agents.Payment, false) {
		t.Error("payment agent should default to enabled")
	}
	if *cfg.Simulation.FalsePositiveRate != DefaultSimulationFalsePositiveRate {
		t.Errorf("simulation.false_positive_rate = %v", *cfg.Simulation.FalsePositiveRate)
	}
	if cfg.Executions.Retention.PruneSchedule != DefaultRetentionSchedule {
		t.Errorf("prune schedule = %q", cfg.Executions.Retention.PruneSchedule)
	}
}

func TestApplyDefaults_PreservesExplicitFalse(t *testing.T) {
	cfg := &Config{}
	cfg.Engine.Agents.ATG = Bool(false)
	cfg.Executions.SQLite.WALMode = Bool(false)
	cfg.Simulation.FalsePositiveRate = Float(0)

	ApplyDefaults(cfg)

	if *cfg.Engine.Agents.ATG {
		t.Error("explicit atg=false overwritten")
	}
	if *cfg.Executions.SQLite.WALMode {
		t.Error("explicit wal_mode=false overwritten")
	}
	if *cfg.Simulation.FalsePositiveRate != 0 {
		t.Error("explicit false_positive_rate=0 overwritten")
	}
	if !*cfg.Engine.Agents.Tax {
		t.Error("unset tax toggle should default to true")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  mode: sequential
  max_concurrency: 8
  agents:
    payment: false
executions:
  backend: memory
  retention:
    days: 30
    max_records: 500
simulation:
  false_positive_rate: 0.25
  seed: 42
telemetry:
  logging:
    level: debug
    format: text
    redact_patterns:
      - name: container
        pattern: 'MSKU\d{7}'
        replacement: 'MSKU*******'
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.Mode != "sequential" || cfg.Engine.MaxConcurrency != 8 || cfg.Engine.BatchSize != 8 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if BoolValue(cfg.Engine.Agents.Payment, true) {
		t.Error("payment agent should be disabled")
	}
	if !BoolValue(cfg.Engine.Agents.Origin, false) {
		t.Error("origin agent should default to enabled")
	}
	if cfg.Executions.Backend != "memory" || cfg.Executions.Retention.Days != 30 || cfg.Executions.Retention.MaxRecords != 500 {
		t.Errorf("executions = %+v", cfg.Executions)
	}
	if *cfg.Simulation.FalsePositiveRate != 0.25 || cfg.Simulation.Seed != 42 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Telemetry.Logging.Level != "debug" || len(cfg.Telemetry.Logging.RedactPatterns) != 1 {
		t.Errorf("logging = %+v", cfg.Telemetry.Logging)
	}
	if cfg.Monitor.ListenAddress != DefaultMonitorListenAddress {
		t.Errorf("monitor.listen_address = %q", cfg.Monitor.ListenAddress)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "engine: [", "failed to parse"},
		{"invalid mode", "engine:\n  mode: fast\n", "engine.mode"},
		{"invalid cron", "executions:\n  retention:\n    prune_schedule: \"every day\"\n", "prune_schedule"},
		{"negative retention", "executions:\n  retention:\n    days: -1\n", "executions.retention.days"},
		{"bad fp rate", "simulation:\n  false_positive_rate: 1.5\n", "false_positive_rate"},
		{"all agents off", "engine:\n  agents: {origin: false, atg: false, tax: false, payment: false}\n", "engine.agents"},
		{"bad backend", "rulepacks:\n  backend: postgres\n", "rulepacks.backend"},
		{"bad listen address", "monitor:\n  listen_address: nowhere\n", "monitor.listen_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Engine.Mode = "fast"
	cfg.Engine.MaxConcurrency = 0
	cfg.Telemetry.Logging.Level = "verbose"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "validation failed with 3 errors") {
		t.Errorf("unexpected message: %s", verr.Error())
	}
}

func TestValidate_Git(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GitConfig)
		fields []string
	}{
		{"disabled", func(g *GitConfig) { g.Repository = ""; g.Auth.Type = "kerberos" }, nil},
		{"valid", func(g *GitConfig) {}, nil},
		{"token without token", func(g *GitConfig) { g.Auth.Type = "token" }, []string{"rulepacks.git.auth.token"}},
		{"ssh without key", func(g *GitConfig) { g.Auth.Type = "ssh" }, []string{"rulepacks.git.auth.ssh_key_path"}},
		{"unknown auth", func(g *GitConfig) { g.Auth.Type = "kerberos" }, []string{"rulepacks.git.auth.type"}},
		{"bad timings", func(g *GitConfig) { g.PollInterval = -1; g.Timeout = -1; g.Depth = -1 }, []string{
			"rulepacks.git.depth", "rulepacks.git.poll_interval", "rulepacks.git.timeout",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.RulePacks.Git.Repository = "https://git.example.gov.gh/pca/rulepacks.git"
			tt.mutate(&cfg.RulePacks.Git)

			err := Validate(cfg)
			if len(tt.fields) == 0 {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Errors) != len(tt.fields) {
				t.Fatalf("got %d errors, want %d: %v", len(verr.Errors), len(tt.fields), verr)
			}
			for i, field := range tt.fields {
				if verr.Errors[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, verr.Errors[i].Field, field)
				}
			}
		})
	}
}

func TestValidate_MonitorAPIKeys(t *testing.T) {
	cfg := Default()
	cfg.Monitor.APIKeys = []APIKeyConfig{
		{Name: "dashboard", Key: "k-1"},
		{Name: "", Key: "k-2"},
		{Name: "ops", Key: ""},
		{Name: "copy", Key: "k-1"},
	}

	var verr ValidationError
	if err := Validate(cfg); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"monitor.api_keys[1].name", "monitor.api_keys[2].key", "monitor.api_keys[3].key"}
	if len(verr.Errors) != len(want) {
		t.Fatalf("got %d errors, want %d: %v", len(verr.Errors), len(want), verr)
	}
	for i, field := range want {
		if verr.Errors[i].Field != field {
			t.Errorf("error %d field = %q, want %q", i, verr.Errors[i].Field, field)
		}
	}
}

func TestDefault_Git(t *testing.T) {
	g := Default().RulePacks.Git
	if g.Enabled() {
		t.Error("git sync should be disabled by default")
	}
	if g.Branch != DefaultGitBranch || g.PollInterval != DefaultGitPollInterval || g.Auth.Type != "none" {
		t.Errorf("git defaults = %+v", g)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SENTINEL_ENGINE_MODE":                    "sequential",
		"SENTINEL_ENGINE_MAX_CONCURRENCY":         "16",
		"SENTINEL_ENGINE_AGENTS_ATG":              "false",
		"SENTINEL_EXECUTIONS_SQLITE_PATH":         "/tmp/x.db",
		"SENTINEL_RULEPACKS_WATCH_DEBOUNCE":       "250ms",
		"SENTINEL_SIMULATION_SEED":                "7",
		"SENTINEL_TELEMETRY_LOGGING_REDACT":       "false",
		"SENTINEL_EXECUTIONS_RETENTION_DAYS":      "",
		"SENTINEL_SIMULATION_FALSE_POSITIVE_RATE": "0.05",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	if err := applyEnvOverrides(cfg, lookup); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Engine.Mode != "sequential" || cfg.Engine.MaxConcurrency != 16 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if BoolValue(cfg.Engine.Agents.ATG, true) {
		t.Error("atg override not applied")
	}
	if cfg.Executions.SQLite.Path != "/tmp/x.db" {
		t.Errorf("sqlite path = %q", cfg.Executions.SQLite.Path)
	}
	if cfg.RulePacks.WatchDebounce != 250*time.Millisecond {
		t.Errorf("watch debounce = %v", cfg.RulePacks.WatchDebounce)
	}
	if cfg.Simulation.Seed != 7 || *cfg.Simulation.FalsePositiveRate != 0.05 {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if BoolValue(cfg.Telemetry.Logging.Redact, true) {
		t.Error("redact override not applied")
	}
	if cfg.Executions.Retention.Days != DefaultRetentionDays {
		t.Error("empty override should be ignored")
	}
}

func TestApplyEnvOverrides_Malformed(t *testing.T) {
	lookup := func(key string) (string, bool) {
		if key == "SENTINEL_ENGINE_MAX_CONCURRENCY" {
			return "lots", true
		}
		return "", false
	}

	err := applyEnvOverrides(Default(), lookup)
	var verr ValidationError
	if !errors.As(err, &verr) || len(verr.Errors) != 1 {
		t.Fatalf("expected one field error, got %v", err)
	}
	if verr.Errors[0].Field != "SENTINEL_ENGINE_MAX_CONCURRENCY" {
		t.Errorf("field = %q", verr.Errors[0].Field)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	t.Setenv("SENTINEL_MONITOR_LISTEN_ADDRESS", "0.0.0.0:9999")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, "engine:\n  mode: parallel\n"))
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Monitor.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("listen address = %q", cfg.Monitor.ListenAddress)
	}

	t.Setenv("SENTINEL_ENGINE_MODE", "turbo")
	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("expected validation error after override")
	}
}
