/*
Package cli holds the helpers shared by the sentinel commands: output
formats, audit progress rendering, signal handling and exit codes.

Output Formatting:

	format, err := cli.ParseFormat(flagValue)
	if format == cli.FormatJSON {
		return cli.WriteJSON(os.Stdout, exec)
	}
	t := cli.NewTable(os.Stdout, "ID", "CASE", "STATUS")
	t.Row(exec.ID, exec.CaseID, exec.Status)
	return t.Flush()

Progress Reporting:

	progress := cli.NewProgress(os.Stderr)
	exec, err := orch.Run(ctx, cfg, decls, cli.Tee(progress.Report, broadcaster.Publish))
	progress.Finish()

On a terminal the reporter redraws a single bar; otherwise it prints one line
per completed tenth of the run.

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
*/
package cli
