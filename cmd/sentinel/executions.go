package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/execution/retention"
	"gra-pca/sentinel/pkg/report"
)

type queryFlags struct {
	caseID string
	status string
	since  time.Duration
	limit  int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.caseID, "case", "", "only executions of this case")
	cmd.Flags().StringVar(&f.status, "status", "", "only executions with this status (running, completed, failed, cancelled)")
	cmd.Flags().DurationVar(&f.since, "since", 0, "only executions started within this duration, e.g. 72h")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of executions (0 is unlimited)")
}

func (f *queryFlags) query(now time.Time) (*execution.Query, error) {
	q := &execution.Query{CaseID: f.caseID, Limit: f.limit}
	if f.status != "" {
		q.Status = execution.Status(f.status)
		if !q.Status.Valid() {
			return nil, cli.NewUsageError("status", fmt.Sprintf("unknown status %q", f.status))
		}
	}
	if f.since < 0 {
		return nil, cli.NewUsageError("since", "must not be negative")
	}
	if f.since > 0 {
		start := now.Add(-f.since)
		q.StartTime = &start
	}
	if f.limit < 0 {
		return nil, cli.NewUsageError("limit", "must not be negative")
	}
	return q, nil
}

var executionsFlags struct {
	query        queryFlags
	listFormat   string
	showFormat   string
	exportFormat string
	reportFormat string
	output       string
	period       string
}

var executionsCmd = &cobra.Command{
	Use:     "executions",
	Aliases: []string{"exec"},
	Short:   "Inspect stored executions",
}

var executionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored executions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runExecutionsList,
}

var executionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecutionsShow,
}

var executionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export executions as JSON or CSV",
	Long: `Export stored executions. CSV output has one row per finding, or one row per
agent result without findings.

Examples:
  sentinel executions export --case PCA-2026-014 --format csv --output findings.csv
  sentinel executions export --since 168h`,
	Args: cobra.NoArgs,
	RunE: runExecutionsExport,
}

var executionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy once",
	Args:  cobra.NoArgs,
	RunE:  runExecutionsPrune,
}

var executionsReportCmd = &cobra.Command{
	Use:   "report <id>",
	Short: "Render the case report of a finished execution",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecutionsReport,
}

func init() {
	rootCmd.AddCommand(executionsCmd)
	executionsCmd.AddCommand(executionsListCmd, executionsShowCmd, executionsExportCmd, executionsPruneCmd, executionsReportCmd)

	executionsFlags.query.register(executionsListCmd)
	executionsFlags.query.register(executionsExportCmd)
	executionsListCmd.Flags().StringVarP(&executionsFlags.listFormat, "format", "f", "text", "output format (text, json)")
	executionsShowCmd.Flags().StringVarP(&executionsFlags.showFormat, "format", "f", "json", "output format (text, json)")
	executionsExportCmd.Flags().StringVarP(&executionsFlags.exportFormat, "format", "f", "json", "export format (json, csv)")
	executionsExportCmd.Flags().StringVarP(&executionsFlags.output, "output", "o", "", "output file (default stdout)")
	executionsReportCmd.Flags().StringVarP(&executionsFlags.reportFormat, "format", "f", "text", "output format (text, json)")
	executionsReportCmd.Flags().StringVar(&executionsFlags.period, "period", "", "reporting period label, e.g. \"Q1 2026\"")
}

func runExecutionsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(executionsFlags.listFormat)
	if err != nil {
		return err
	}
	q, err := executionsFlags.query.query(time.Now())
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	storage, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("executions list", err)
	}
	defer storage.Close()

	execs, err := storage.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("executions list", err)
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), execs)
	}
	return printExecutionTable(cmd.OutOrStdout(), execs)
}

func printExecutionTable(w io.Writer, execs []*execution.Execution) error {
	t := cli.NewTable(w, "ID", "CASE", "STATUS", "STARTED", "DECLARATIONS", "VIOLATIONS", "RECOVERY", "COMPLIANCE")
	for _, e := range execs {
		t.Row(
			e.ID,
			e.CaseID,
			e.Status,
			humanize.Time(e.StartedAt),
			fmt.Sprintf("%d/%d", e.ProcessedDeclarations, e.TotalDeclarations),
			humanize.Comma(int64(e.GhanaMetrics.TotalViolations)),
			ghs(e.GhanaMetrics.TotalRecovery),
			fmt.Sprintf("%.1f%%", e.GhanaMetrics.ComplianceRate),
		)
	}
	return t.Flush()
}

func runExecutionsShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(executionsFlags.showFormat)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	storage, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("executions show", err)
	}
	defer storage.Close()

	exec, err := storage.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("executions show", err)
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), exec)
	}
	if err := printExecutionTable(cmd.OutOrStdout(), []*execution.Execution{exec}); err != nil {
		return err
	}
	if len(exec.Errors) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d agent errors:\n", len(exec.Errors))
		for _, e := range exec.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s %s: %s\n", e.DeclarationID, e.AgentType, e.Message)
		}
	}
	return nil
}

func runExecutionsExport(cmd *cobra.Command, args []string) error {
	q, err := executionsFlags.query.query(time.Now())
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	exporter, err := a.exporter(executionsFlags.exportFormat)
	if err != nil {
		return err
	}
	storage, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("executions export", err)
	}
	defer storage.Close()

	execs, err := storage.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("executions export", err)
	}

	w := cmd.OutOrStdout()
	if executionsFlags.output != "" {
		f, err := os.Create(executionsFlags.output)
		if err != nil {
			return cli.NewCommandError("executions export", err)
		}
		defer f.Close()
		w = f
	}
	if err := exporter.Export(cmd.Context(), execs, w); err != nil {
		return cli.NewCommandError("executions export", err)
	}
	if executionsFlags.output != "" {
		a.logger.Info("executions exported", "count", len(execs), "path", executionsFlags.output, "format", executionsFlags.exportFormat)
	}
	return nil
}

func runExecutionsPrune(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	storage, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("executions prune", err)
	}
	defer storage.Close()

	deleted, err := retention.NewPruner(storage, retentionConfig(a), a.logger).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("executions prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s executions\n", humanize.Comma(deleted))
	return nil
}

func retentionConfig(a *app) *retention.Config {
	r := a.cfg.Executions.Retention
	return &retention.Config{
		RetentionDays:       r.Days,
		PruneSchedule:       r.PruneSchedule,
		MaxRecords:          r.MaxRecords,
		ArchiveBeforeDelete: r.ArchiveBeforeDelete,
		ArchivePath:         r.ArchivePath,
	}
}

func runExecutionsReport(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(executionsFlags.reportFormat)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	storage, err := a.openExecutions()
	if err != nil {
		return cli.NewCommandError("executions report", err)
	}
	defer storage.Close()

	exec, err := storage.Get(cmd.Context(), args[0])
	if err != nil {
		return cli.NewCommandError("executions report", err)
	}
	period := report.PeriodFor(exec)
	period.Label = executionsFlags.period

	summary, err := report.Summarize(exec, period)
	if err != nil {
		return cli.NewCommandError("executions report", err)
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), summary)
	}
	return summary.Render(cmd.OutOrStdout())
}
