// Package export writes executions as JSON documents or as flat CSV suitable
// for spreadsheets, one row per finding.
package export
