// Sentinel is the post-clearance audit engine of the GRA PCA unit.
//
// It evaluates customs declarations with the origin, ATG, tax and payment
// agents, aggregates case-level Ghana metrics, and replays rule packs against
// labelled datasets to estimate their precision and recall.
//
// Usage:
//
//	# Audit a declaration file with the active rule pack
//	sentinel run --declarations declarations.json --case PCA-2026-014
//
//	# Estimate a candidate rule pack against a dataset
//	sentinel simulate --pack-file textiles.yaml --dataset history.json
//
//	# Manage rule packs
//	sentinel rulepack import packs/ --activate ghana-2026
//
//	# Inspect stored executions
//	sentinel executions list --case PCA-2026-014
//
//	# Start the monitoring server
//	sentinel serve --config /etc/sentinel/config.yaml
package main

import (
	"os"

	"gra-pca/sentinel/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
