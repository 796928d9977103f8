package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/execution/export"
	"gra-pca/sentinel/pkg/execution/storage"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/rulepack/store"
	"gra-pca/sentinel/pkg/telemetry/logging"
	"gra-pca/sentinel/pkg/telemetry/tracing"
)

// app carries the configuration and logger shared by one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewCommandError("config", err)
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, cli.NewUsageError("log-level", err.Error())
		}
		cfg.Telemetry.Logging.Level = logLevel
	}

	logger, err := logging.FromConfig(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)

	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) openExecutions() (execution.Storage, error) {
	cfg := a.cfg.Executions
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		if err := ensureDir(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		return storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      config.BoolValue(cfg.SQLite.WALMode, config.DefaultExecutionsSQLiteWALMode),
			BusyTimeout:  cfg.SQLite.BusyTimeout,
			Logger:       a.logger,
		})
	default:
		return nil, fmt.Errorf("unsupported execution backend: %s", cfg.Backend)
	}
}

// openRulePacks opens the configured store and seeds it with the built-in
// pack when it is empty.
func (a *app) openRulePacks(ctx context.Context) (rulepack.Store, error) {
	cfg := a.cfg.RulePacks

	var s rulepack.Store
	switch cfg.Backend {
	case "memory":
		s = store.NewMemoryStore()
	case "sqlite":
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		sqlite, err := store.NewSQLiteStore(store.SQLiteConfig{Path: cfg.SQLitePath, Logger: a.logger})
		if err != nil {
			return nil, err
		}
		s = sqlite
	default:
		return nil, fmt.Errorf("unsupported rule pack backend: %s", cfg.Backend)
	}

	packs, err := s.List(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if len(packs) == 0 {
		a.logger.Info("seeding rule pack store with built-in pack", "rule_pack_id", rulepack.DefaultID)
		if err := rulepack.Import(ctx, s, rulepack.Default(), time.Now()); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to seed default rule pack: %w", err)
		}
	}
	return s, nil
}

func (a *app) newTracer() (*tracing.Tracer, error) {
	return tracing.New(&a.cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
}

func (a *app) shutdownTracer(t *tracing.Tracer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", "error", err)
	}
}

func (a *app) exporter(format string) (execution.Exporter, error) {
	switch format {
	case "json":
		return export.NewJSONExporter(config.BoolValue(a.cfg.Executions.Export.JSONPretty, config.DefaultExportJSONPretty)), nil
	case "csv":
		return export.NewCSVExporter(config.BoolValue(a.cfg.Executions.Export.CSVHeader, config.DefaultExportCSVHeader)), nil
	default:
		return nil, cli.NewUsageError("format", fmt.Sprintf("unknown export format %q (valid: json, csv)", format))
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
