package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gra-pca/sentinel/pkg/cli"
	"gra-pca/sentinel/pkg/rulepack"
	"gra-pca/sentinel/pkg/rulepack/git"
)

var rulepackFlags struct {
	format     string
	activate   string
	repository string
	branch     string
}

var rulepackCmd = &cobra.Command{
	Use:   "rulepack",
	Short: "Manage rule packs",
	Long: `Manage the rule packs held in the configured store.

Exactly one pack is active at a time. The store is seeded with the built-in
Ghana pack when it is empty.`,
}

var rulepackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rule packs",
	Args:  cobra.NoArgs,
	RunE:  runRulePackList,
}

var rulepackShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a stored rule pack",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulePackShow,
}

var rulepackValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate rule pack files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRulePackValidate,
}

var rulepackImportCmd = &cobra.Command{
	Use:   "import <file|dir>...",
	Short: "Import rule pack files or directories",
	Long: `Import rule pack files into the store. Directories are scanned for .yaml and
.yml files; invalid packs are reported and skipped.

Examples:
  sentinel rulepack import packs/
  sentinel rulepack import candidate.yaml --activate ghana-2026-q2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRulePackImport,
}

var rulepackActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a stored rule pack the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulePackActivate,
}

var rulepackSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import rule packs from the configured Git repository",
	Long: `Clone or pull the rule pack repository and import the packs under
rulepacks.git.path. Invalid packs are reported and skipped.

Examples:
  sentinel rulepack sync
  sentinel rulepack sync --repository https://git.example.gov.gh/pca/rulepacks.git --branch release`,
	Args: cobra.NoArgs,
	RunE: runRulePackSync,
}

func init() {
	rootCmd.AddCommand(rulepackCmd)
	rulepackCmd.AddCommand(rulepackListCmd, rulepackShowCmd, rulepackValidateCmd, rulepackImportCmd, rulepackActivateCmd, rulepackSyncCmd)

	rulepackListCmd.Flags().StringVarP(&rulepackFlags.format, "format", "f", "text", "output format (text, json)")
	rulepackShowCmd.Flags().StringVarP(&rulepackFlags.format, "format", "f", "text", "output format (text is YAML, json)")
	rulepackImportCmd.Flags().StringVar(&rulepackFlags.activate, "activate", "", "pack id to activate after importing")
	rulepackSyncCmd.Flags().StringVar(&rulepackFlags.repository, "repository", "", "repository URL or path (overrides rulepacks.git.repository)")
	rulepackSyncCmd.Flags().StringVar(&rulepackFlags.branch, "branch", "", "branch to track (overrides rulepacks.git.branch)")
}

func runRulePackList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulepackFlags.format)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack list", err)
	}
	defer store.Close()

	packs, err := store.List(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack list", err)
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), packs)
	}

	t := cli.NewTable(cmd.OutOrStdout(), "ID", "NAME", "VERSION", "ACTIVE", "RULES", "UPDATED")
	for _, p := range packs {
		active := ""
		if p.IsActive {
			active = "*"
		}
		t.Row(p.ID, p.Name, p.Version, active, fmt.Sprintf("%d/%d", len(p.ActiveRules()), len(p.Rules)), humanize.Time(p.UpdatedAt))
	}
	return t.Flush()
}

func runRulePackShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulepackFlags.format)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack show", err)
	}
	defer store.Close()

	pack, err := store.Get(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("rulepack show", err)
	}
	if format == cli.FormatJSON {
		return cli.WriteJSON(cmd.OutOrStdout(), pack)
	}
	data, err := rulepack.Marshal(pack)
	if err != nil {
		return cli.NewCommandError("rulepack show", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runRulePackValidate(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	invalid := 0
	for _, path := range args {
		pack, err := rulepack.LoadFile(path)
		if err != nil {
			invalid++
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(w, "✓ %s: %s v%s (%d rules)\n", path, pack.ID, pack.Version, len(pack.Rules))
	}
	if invalid > 0 {
		return cli.NewCommandError("rulepack validate", fmt.Errorf("%d of %d files invalid", invalid, len(args)))
	}
	return nil
}

func runRulePackImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack import", err)
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	var errs []error
	now := time.Now()
	for _, path := range args {
		packs, err := loadPacks(path)
		if err != nil {
			errs = append(errs, err)
			fmt.Fprintf(w, "✗ %s: %v\n", path, err)
		}
		for _, p := range packs {
			if err := rulepack.Import(ctx, store, p, now); err != nil {
				errs = append(errs, err)
				fmt.Fprintf(w, "✗ %s: %v\n", p.ID, err)
				continue
			}
			fmt.Fprintf(w, "✓ imported %s v%s\n", p.ID, p.Version)
		}
	}

	if rulepackFlags.activate != "" {
		if err := rulepack.Activate(ctx, store, rulepackFlags.activate, now); err != nil {
			return cli.NewCommandError("rulepack import", err)
		}
		fmt.Fprintf(w, "✓ activated %s\n", rulepackFlags.activate)
	}
	if len(errs) > 0 {
		return cli.NewCommandError("rulepack import", errors.Join(errs...))
	}
	return nil
}

// loadPacks reads one file or every pack file in a directory. A directory
// returns the packs it could load alongside the error for the rest.
func loadPacks(path string) ([]*rulepack.RulePack, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return rulepack.LoadDir(path)
	}
	pack, err := rulepack.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*rulepack.RulePack{pack}, nil
}

func runRulePackActivate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack activate", err)
	}
	defer store.Close()

	if err := rulepack.Activate(ctx, store, args[0], time.Now()); err != nil {
		return cli.NewCommandError("rulepack activate", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ activated %s\n", args[0])
	return nil
}

func runRulePackSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	gitCfg := a.cfg.RulePacks.Git
	if rulepackFlags.repository != "" {
		gitCfg.Repository = rulepackFlags.repository
	}
	if rulepackFlags.branch != "" {
		gitCfg.Branch = rulepackFlags.branch
	}
	if !gitCfg.Enabled() {
		return cli.NewUsageError("repository", "no rule pack repository configured")
	}

	repo, err := git.NewRepository(gitCfg)
	if err != nil {
		return cli.NewUsageError("repository", err.Error())
	}
	ctx := cmd.Context()
	store, err := a.openRulePacks(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack sync", err)
	}
	defer store.Close()

	result, err := git.NewSyncer(repo, store, gitCfg.PollInterval, a.logger).Sync(ctx)
	if err != nil {
		return cli.NewCommandError("rulepack sync", err)
	}

	w := cmd.OutOrStdout()
	for _, id := range result.Imported {
		fmt.Fprintf(w, "✓ imported %s\n", id)
	}
	for _, err := range result.Errors {
		fmt.Fprintf(w, "✗ %v\n", err)
	}
	head := result.Commit
	if len(head) > 8 {
		head = head[:8]
	}
	fmt.Fprintf(w, "Synced %d packs at %s\n", len(result.Imported), head)
	if len(result.Errors) > 0 {
		return cli.NewCommandError("rulepack sync", errors.Join(result.Errors...))
	}
	return nil
}
