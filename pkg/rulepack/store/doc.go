// Package store provides rule pack storage backends: an in-memory map for
// tests and single runs, and a SQLite database for durable deployments.
package store
