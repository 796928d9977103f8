// Package simulation replays a rule pack's match criteria over a test
// dataset to estimate how the pack would perform.
//
// The harness never calls the live agents. It scores each declaration with
// the pack's own criteria, asks a Labeler whether each flagged declaration is
// a false positive, and reports accuracy, precision, recall and F1 together
// with per-sector estimates and recommendations.
//
//	h := simulation.NewHarness(
//	    simulation.WithLabeler(simulation.NewHistoricalLabeler(labels)),
//	)
//	result, err := h.Evaluate(ctx, pack, dataset)
//
// Packs are read, never modified.
package simulation
