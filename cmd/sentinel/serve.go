package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/audit"
	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/execution/retention"
	"gra-pca/sentinel/pkg/monitor"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/rulepack/git"
	"gra-pca/sentinel/pkg/rulepack/watch"
	"gra-pca/sentinel/pkg/simulation"
	"gra-pca/sentinel/pkg/telemetry/health"
	"gra-pca/sentinel/pkg/telemetry/metrics"
)

var serveFlags struct {
	audit        auditFlags
	listen       string
	declarations string
	dataset      string
	schedule     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the monitoring server",
	Long: `Start the monitoring server. It exposes:
  /ws        audit progress and simulation results over WebSocket
  /metrics   Prometheus metrics
  /healthz   liveness
  /readyz    readiness (active rule pack, execution store)
  /version   build information

While serving, executions are pruned on the retention schedule and, when
rulepacks.watch is set, the rule pack directory is re-imported on change.

With --declarations, an audit of that file runs at startup and then on
--schedule; --dataset does the same for a simulation of the active pack.

Examples:
  sentinel serve
  sentinel serve --listen 0.0.0.0:9090 --declarations inbox.json --schedule "@hourly"`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveFlags.audit.register(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", "", "override monitor listen address")
	serveCmd.Flags().StringVar(&serveFlags.declarations, "declarations", "", "declarations file audited on schedule")
	serveCmd.Flags().StringVar(&serveFlags.dataset, "dataset", "", "dataset simulated against the active pack on schedule")
	serveCmd.Flags().StringVar(&serveFlags.schedule, "schedule", "", "cron schedule for --declarations and --dataset (default: once at startup)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if serveFlags.listen != "" {
		a.cfg.Monitor.ListenAddress = serveFlags.listen
	}
	auditCfg, err := serveFlags.audit.auditConfig(cmd, a.cfg.Engine)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	// Stores
	packs, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer packs.Close()

	executions, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer executions.Close()

	// Telemetry
	collector := metrics.NewCollector(&a.cfg.Telemetry.Metrics, prometheus.NewRegistry())
	tracer, err := a.newTracer()
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.shutdownTracer(tracer)

	checker := health.New(health.DefaultCheckTimeout)
	checker.RegisterCheck("rulepacks", health.ActiveRulePackCheck(packs))
	checker.RegisterCheck("executions", health.ExecutionStoreCheck(executions))

	// Monitor server
	broadcaster := monitor.NewBroadcaster(a.cfg.Monitor.ClientBuffer, a.logger)
	opts := []monitor.ServerOption{
		monitor.WithHealthChecker(checker),
		monitor.WithServerTracer(tracer),
		monitor.WithServerLogger(a.logger),
		monitor.WithBuildInfo(monitor.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate}),
		monitor.WithAPIKeys(apiKeys(a.cfg.Monitor.APIKeys)...),
	}
	if collector.Enabled() {
		opts = append(opts, monitor.WithMetricsHandler(a.cfg.Telemetry.Metrics.Path, collector.Handler()))
	}
	server := monitor.NewServer(a.cfg.Monitor, broadcaster, opts...)

	// Background jobs
	pruner := retention.NewPruner(executions, retentionConfig(a), a.logger)
	pruner.OnPrune = collector.RecordPrune
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer pruner.Stop()

	if a.cfg.RulePacks.Watch {
		watcher, err := startWatcher(ctx, a, packs, collector)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer watcher.Stop()
	}
	if a.cfg.RulePacks.Git.Enabled() {
		syncer, err := startGitSync(ctx, a, packs, collector)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer syncer.Stop()
	}

	jobs := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{a.logger})))
	if serveFlags.declarations != "" {
		orch := audit.NewOrchestrator(
			audit.WithLogger(a.logger),
			audit.WithRecorder(executions),
			audit.WithObserver(collector),
			audit.WithTracer(tracer),
		)
		job := auditJob(ctx, a.logger, orch, packs, auditCfg, serveFlags.declarations, broadcaster.Publish)
		if err := schedule(jobs, serveFlags.schedule, job); err != nil {
			return err
		}
	}
	if serveFlags.dataset != "" {
		harness := simulation.NewHarness(
			simulation.WithLabeler(simulation.NewRandomLabeler(
				config.FloatValue(a.cfg.Simulation.FalsePositiveRate, config.DefaultSimulationFalsePositiveRate),
				a.cfg.Simulation.Seed,
			)),
			simulation.WithLogger(a.logger),
			simulation.WithTracer(tracer),
			simulation.WithObserver(simulationObservers{collector, broadcaster}),
		)
		job := simulationJob(ctx, a.logger, harness, packs, serveFlags.dataset)
		if err := schedule(jobs, serveFlags.schedule, job); err != nil {
			return err
		}
	}
	jobs.Start()
	defer func() { <-jobs.Stop().Done() }()

	a.logger.Info("starting monitor server",
		"address", a.cfg.Monitor.ListenAddress,
		"metrics", collector.Enabled(),
		"watch", a.cfg.RulePacks.Watch,
	)
	if err := server.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	a.logger.Info("monitor server stopped")
	return nil
}

func startWatcher(ctx context.Context, a *app, packs rulepack.Store, collector *metrics.Collector) (*watch.Watcher, error) {
	watcher, err := watch.New(watch.Config{
		Dir:      a.cfg.RulePacks.Directory,
		Debounce: a.cfg.RulePacks.WatchDebounce,
	}, packs, a.logger)
	if err != nil {
		return nil, err
	}
	watcher.OnSync = func(r watch.SyncResult) {
		collector.RecordRulePackSync(len(r.Imported), len(r.Errors))
	}
	go func() {
		if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("rule pack watcher failed", "error", err)
		}
	}()
	return watcher, nil
}

func apiKeys(cfg []config.APIKeyConfig) []monitor.APIKey {
	keys := make([]monitor.APIKey, 0, len(cfg))
	for _, k := range cfg {
		keys = append(keys, monitor.APIKey{Name: k.Name, Key: k.Key, Enabled: config.BoolValue(k.Enabled, true)})
	}
	return keys
}

func startGitSync(ctx context.Context, a *app, packs rulepack.Store, collector *metrics.Collector) (*git.Syncer, error) {
	repo, err := git.NewRepository(a.cfg.RulePacks.Git)
	if err != nil {
		return nil, err
	}
	syncer := git.NewSyncer(repo, packs, a.cfg.RulePacks.Git.PollInterval, a.logger)
	syncer.OnSync = func(r git.SyncResult) {
		collector.RecordRulePackSync(len(r.Imported), len(r.Errors))
	}
	go func() {
		if err := syncer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("rule pack git sync failed", "error", err)
		}
	}()
	return syncer, nil
}

// schedule runs job on expr, or once in the background when expr is empty.
func schedule(c *cron.Cron, expr string, job func()) error {
	if expr == "" {
		go job()
		return nil
	}
	if _, err := c.AddFunc(expr, job); err != nil {
		return cli.NewUsageError("schedule", fmt.Sprintf("invalid cron schedule %q: %v", expr, err))
	}
	return nil
}

func auditJob(ctx context.Context, logger *slog.Logger, orch *audit.Orchestrator, packs rulepack.Store, base *audit.Config, path string, progress audit.ProgressFunc) func() {
	source := declaration.NewFileSource(path)
	return func() {
		decls, err := source.Load(ctx)
		if err != nil {
			logger.Error("failed to load declarations", "path", path, "error", err)
			return
		}
		cfg := *base
		if err := resolveRulePack(ctx, packs, &cfg); err != nil {
			logger.Error("failed to resolve rule pack", "error", err)
			return
		}
		exec, err := orch.Run(ctx, &cfg, decls, progress)
		if err != nil {
			logger.Error("scheduled audit failed", "path", path, "error", err)
			return
		}
		logger.Info("scheduled audit finished",
			"execution_id", exec.ID,
			"status", exec.Status,
			"violations", exec.GhanaMetrics.TotalViolations,
		)
	}
}

func simulationJob(ctx context.Context, logger *slog.Logger, harness *simulation.Harness, packs rulepack.Store, path string) func() {
	source := declaration.NewFileSource(path)
	return func() {
		dataset, err := source.Load(ctx)
		if err != nil {
			logger.Error("failed to load dataset", "path", path, "error", err)
			return
		}
		active, err := rulepack.Active(ctx, packs)
		if err != nil {
			logger.Error("failed to resolve active rule pack", "error", err)
			return
		}
		if _, err := harness.Evaluate(ctx, active, dataset); err != nil {
			logger.Error("scheduled simulation failed", "rule_pack_id", active.ID, "error", err)
		}
	}
}

// simulationObservers fans one simulation result out to several observers.
type simulationObservers []simulation.Observer

func (o simulationObservers) ObserveSimulation(r *simulation.Result) {
	for _, observer := range o {
		observer.ObserveSimulation(r)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
