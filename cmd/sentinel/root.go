package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - post-clearance audit engine",
	Long: `Sentinel runs post-clearance audits over customs declarations.

Each declaration is checked by up to four agents:
  - origin: ECOWAS origin fraud and missing certificates
  - atg: petroleum volume reconciliation against tank gauge readings
  - tax: VAT, NHIL, GETFund, COVID levy and import duty liability
  - payment: TSA payment confirmation

Results are aggregated into case-level metrics and stored as executions.
Rule packs can be simulated against labelled datasets before activation.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
