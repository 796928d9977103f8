package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/audit"
	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/report"
	"gra-pca/sentinel/pkg/rulepack"
)

// dateLayout is the format of --from and --to.
const dateLayout = "2006-01-02"

type auditFlags struct {
	caseID      string
	rulePackID  string
	scope       string
	hsCodes     []string
	shipments   []string
	from        string
	to          string
	countries   []string
	sectors     []string
	minRisk     float64
	mode        string
	concurrency int
}

func (f *auditFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.caseID, "case", "", "case identifier recorded on the execution")
	flags.StringVar(&f.rulePackID, "rule-pack", "", "rule pack to record on the execution (default: active pack)")
	flags.StringVar(&f.scope, "scope", string(audit.ScopeAll), "audit scope (all, hs-codes, shipments)")
	flags.StringSliceVar(&f.hsCodes, "hs-code", nil, "HS code prefix, repeatable")
	flags.StringSliceVar(&f.shipments, "shipment", nil, "declaration id, repeatable")
	flags.StringVar(&f.from, "from", "", "earliest declaration date (YYYY-MM-DD)")
	flags.StringVar(&f.to, "to", "", "latest declaration date (YYYY-MM-DD)")
	flags.StringSliceVar(&f.countries, "country", nil, "origin or destination country, repeatable")
	flags.StringSliceVar(&f.sectors, "sector", nil, "sector (petroleum, textiles, vehicles, other), repeatable")
	flags.Float64Var(&f.minRisk, "min-risk", 0, "minimum pre-assessed risk score (0-100)")
	flags.StringVar(&f.mode, "mode", "", "dispatch mode (parallel, sequential); default from config")
	flags.IntVar(&f.concurrency, "concurrency", 0, "maximum concurrent declarations; default from config")
}

// auditConfig builds an audit configuration from the engine config and the
// flags set on cmd.
func (f *auditFlags) auditConfig(cmd *cobra.Command, engine config.EngineConfig) (*audit.Config, error) {
	cfg := audit.DefaultConfig()
	if f.caseID != "" {
		cfg.CaseID = f.caseID
	}
	cfg.RulePackID = f.rulePackID
	cfg.Scope = audit.Scope(f.scope)
	cfg.Filters.HSCodes = f.hsCodes
	cfg.Filters.ShipmentIDs = f.shipments
	cfg.Filters.Countries = f.countries
	for _, s := range f.sectors {
		cfg.Filters.Sectors = append(cfg.Filters.Sectors, declaration.Sector(s))
	}

	var err error
	if cfg.Filters.DateFrom, err = parseDate("from", f.from, false); err != nil {
		return nil, err
	}
	if cfg.Filters.DateTo, err = parseDate("to", f.to, true); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("min-risk") {
		cfg.Filters.MinRiskScore = config.Float(f.minRisk)
	}

	cfg.Agents = audit.AgentToggles{
		Origin:  config.BoolValue(engine.Agents.Origin, true),
		ATG:     config.BoolValue(engine.Agents.ATG, true),
		Tax:     config.BoolValue(engine.Agents.Tax, true),
		Payment: config.BoolValue(engine.Agents.Payment, true),
	}

	cfg.Options.Mode = audit.Mode(engine.Mode)
	if f.mode != "" {
		cfg.Options.Mode = audit.Mode(f.mode)
	}
	cfg.Options.MaxConcurrency = engine.MaxConcurrency
	cfg.Options.BatchSize = engine.BatchSize
	if f.concurrency != 0 {
		cfg.Options.MaxConcurrency = f.concurrency
		cfg.Options.BatchSize = f.concurrency
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		var cerr *audit.ConfigError
		if errors.As(err, &cerr) {
			return nil, cli.NewUsageError("", cerr.Error())
		}
		return nil, err
	}
	return cfg, nil
}

// parseDate parses a YYYY-MM-DD flag. endOfDay moves the result to the last
// instant of that day.
func parseDate(flag, value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, cli.NewUsageError(flag, fmt.Sprintf("expected YYYY-MM-DD, got %q", value))
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// resolveRulePack fills cfg.RulePackID with the active pack when unset, and
// checks that an explicit pack exists.
func resolveRulePack(ctx context.Context, s rulepack.Store, cfg *audit.Config) error {
	if cfg.RulePackID != "" {
		if _, err := s.Get(ctx, cfg.RulePackID); err != nil {
			return fmt.Errorf("rule pack %s: %w", cfg.RulePackID, err)
		}
		return nil
	}
	active, err := rulepack.Active(ctx, s)
	if err != nil {
		if errors.Is(err, rulepack.ErrNoActivePack) {
			return nil
		}
		return err
	}
	cfg.RulePackID = active.ID
	return nil
}

var runFlags struct {
	audit        auditFlags
	declarations string
	format       string
	noProgress   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit a file of declarations",
	Long: `Audit a JSON or YAML file of declarations and store the resulting execution.

Examples:
  # Audit everything in a file
  sentinel run --declarations declarations.json

  # Audit petroleum declarations from March, sequentially
  sentinel run --declarations q1.yaml --scope hs-codes --hs-code 2710 \
    --from 2026-03-01 --to 2026-03-31 --mode sequential --case PCA-2026-014

  # Print the full execution as JSON
  sentinel run --declarations declarations.json --format json`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runFlags.audit.register(runCmd)
	runCmd.Flags().StringVarP(&runFlags.declarations, "declarations", "d", "", "declarations file (JSON or YAML)")
	runCmd.Flags().StringVarP(&runFlags.format, "format", "f", "text", "output format (text, json)")
	runCmd.Flags().BoolVar(&runFlags.noProgress, "no-progress", false, "disable the progress display")
	_ = runCmd.MarkFlagRequired("declarations")
}

func runAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(runFlags.format)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	auditCfg, err := runFlags.audit.auditConfig(cmd, a.cfg.Engine)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	decls, err := declaration.NewFileSource(runFlags.declarations).Load(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	packs, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer packs.Close()
	if err := resolveRulePack(ctx, packs, auditCfg); err != nil {
		return cli.NewCommandError("run", err)
	}

	executions, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer executions.Close()

	tracer, err := a.newTracer()
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.shutdownTracer(tracer)

	orch := audit.NewOrchestrator(
		audit.WithLogger(a.logger),
		audit.WithRecorder(executions),
		audit.WithTracer(tracer),
	)

	var progress audit.ProgressFunc
	var bar *cli.Progress
	if !runFlags.noProgress && format == cli.FormatText {
		bar = cli.NewProgress(os.Stderr)
		progress = bar.Report
	}

	exec, err := orch.Run(ctx, auditCfg, decls, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := printExecution(cmd.OutOrStdout(), format, exec); err != nil {
		return err
	}
	if exec.Status == execution.StatusCancelled {
		return cli.NewCommandError("run", context.Canceled)
	}
	return nil
}

// printExecution writes exec as JSON or as a markdown summary.
func printExecution(w io.Writer, format cli.OutputFormat, exec *execution.Execution) error {
	if format == cli.FormatJSON {
		return cli.WriteJSON(w, exec)
	}
	fmt.Fprintf(w, "Execution %s (%s)\n\n", exec.ID, exec.Status)
	summary, err := report.Summarize(exec, report.PeriodFor(exec))
	if err != nil {
		return err
	}
	return summary.Render(w)
}
