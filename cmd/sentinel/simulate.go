package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/config"
	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/simulation"
)

var simulateFlags struct {
	packID   string
	packFile string
	dataset  string
	labels   string
	fpRate   float64
	seed     uint64
	format   string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Estimate a rule pack against a dataset",
	Long: `Replay a rule pack against a dataset of declarations and report the
estimated accuracy, precision, recall and recovery.

False positives come from a labels file when given, otherwise from a seeded
random draw at --fp-rate.

Examples:
  # Simulate the active pack
  sentinel simulate --dataset history.json

  # Simulate a candidate pack file with known outcomes
  sentinel simulate --pack-file candidate.yaml --dataset history.json --labels outcomes.yaml`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	flags := simulateCmd.Flags()
	flags.StringVar(&simulateFlags.packID, "pack", "", "stored rule pack id (default: active pack)")
	flags.StringVar(&simulateFlags.packFile, "pack-file", "", "rule pack YAML file")
	flags.StringVar(&simulateFlags.dataset, "dataset", "", "declarations file (JSON or YAML)")
	flags.StringVar(&simulateFlags.labels, "labels", "", "false-positive labels file (YAML or JSON map of declaration id to bool)")
	flags.Float64Var(&simulateFlags.fpRate, "fp-rate", 0, "random false-positive rate; default from config")
	flags.Uint64Var(&simulateFlags.seed, "seed", 0, "random labeler seed; default from config")
	flags.StringVarP(&simulateFlags.format, "format", "f", "text", "output format (text, json)")
	simulateCmd.MarkFlagsMutuallyExclusive("pack", "pack-file")
	_ = simulateCmd.MarkFlagRequired("dataset")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(simulateFlags.format)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}

	labeler, err := simulationLabeler(cmd, a.cfg.Simulation)
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	dataset, err := declaration.NewFileSource(simulateFlags.dataset).Load(ctx)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	tracer, err := a.newTracer()
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}
	defer a.shutdownTracer(tracer)

	harness := simulation.NewHarness(
		simulation.WithLabeler(labeler),
		simulation.WithLogger(a.logger),
		simulation.WithTracer(tracer),
	)

	var result *simulation.Result
	if simulateFlags.packFile != "" {
		pack, err := rulepack.LoadFile(simulateFlags.packFile)
		if err != nil {
			return cli.NewCommandError("simulate", err)
		}
		result, err = harness.Evaluate(ctx, pack, dataset)
		if err != nil {
			return cli.NewCommandError("simulate", err)
		}
	} else {
		packs, err := a.openRulePacks(ctx)
		if err != nil {
			return cli.NewCommandError("simulate", err)
		}
		defer packs.Close()

		id := simulateFlags.packID
		if id == "" {
			active, err := rulepack.Active(ctx, packs)
			if err != nil {
				return cli.NewCommandError("simulate", err)
			}
			id = active.ID
		}
		result, err = harness.Run(ctx, packs, id, dataset)
		if err != nil {
			return cli.NewCommandError("simulate", err)
		}
	}

	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), result)
	}
	return printSimulation(cmd.OutOrStdout(), result)
}

func simulationLabeler(cmd *cobra.Command, cfg config.SimulationConfig) (simulation.Labeler, error) {
	labelsPath := cfg.LabelsPath
	if simulateFlags.labels != "" {
		labelsPath = simulateFlags.labels
	}
	if labelsPath != "" {
		labels, err := simulation.LoadLabels(labelsPath)
		if err != nil {
			return nil, cli.NewCommandError("simulate", err)
		}
		return simulation.NewHistoricalLabeler(labels), nil
	}

	rate := config.FloatValue(cfg.FalsePositiveRate, config.DefaultSimulationFalsePositiveRate)
	if cmd.Flags().Changed("fp-rate") {
		rate = simulateFlags.fpRate
	}
	if rate < 0 || rate > 1 {
		return nil, cli.NewUsageError("fp-rate", fmt.Sprintf("must be within [0, 1], got %v", rate))
	}
	seed := cfg.Seed
	if cmd.Flags().Changed("seed") {
		seed = simulateFlags.seed
	}
	return simulation.NewRandomLabeler(rate, seed), nil
}

func printSimulation(w io.Writer, r *simulation.Result) error {
	fmt.Fprintf(w, "Simulation %s: rule pack %s v%s\n\n", r.ID, r.RulePackID, r.RulePackVersion)

	t := cli.NewTable(w, "METRIC", "VALUE")
	t.Row("declarations", humanize.Comma(int64(r.TotalDeclarations)))
	t.Row("violations detected", humanize.Comma(int64(r.ViolationsDetected)))
	t.Row("false positives", humanize.Comma(int64(r.FalsePositives)))
	threshold := "none"
	if r.HasThreshold {
		threshold = fmt.Sprintf("%.1f", r.Threshold)
	}
	t.Row("threshold", threshold)
	t.Row("accuracy", percent(r.Accuracy))
	t.Row("precision", percent(r.Precision))
	t.Row("recall", percent(r.Recall))
	t.Row("f1 score", fmt.Sprintf("%.3f", r.F1Score))
	t.Row("expected accuracy", percent(r.ExpectedAccuracy))
	t.Row("estimated recovery", ghs(r.EstimatedRecovery))
	t.Row("duration", r.Duration)
	if err := t.Flush(); err != nil {
		return err
	}

	if len(r.Sectors) > 0 {
		fmt.Fprintln(w)
		sectors := make([]string, 0, len(r.Sectors))
		for name := range r.Sectors {
			sectors = append(sectors, name)
		}
		sort.Strings(sectors)

		t = cli.NewTable(w, "SECTOR", "DECLARATIONS", "VIOLATIONS", "FALSE POSITIVES", "ACCURACY", "RECOVERY")
		for _, name := range sectors {
			s := r.Sectors[name]
			t.Row(name, s.Declarations, s.Violations, s.FalsePositives, percent(s.Accuracy), ghs(s.Recovery))
		}
		if err := t.Flush(); err != nil {
			return err
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
	return nil
}

// percent renders a ratio in [0, 1] as a percentage.
func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func ghs(v float64) string {
	return "GHS " + humanize.FormatFloat("#,###.##", v)
}
