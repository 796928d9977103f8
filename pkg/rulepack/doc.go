// Package rulepack models the declarative rule packs used to configure and
// simulate post-clearance audits.
//
// A RulePack bundles sectoral focus weights, a three-tier risk policy and a
// list of named Rules with match criteria. Packs are versioned and stored
// through a Store; exactly one pack is active at a time.
//
// Loading a pack from disk:
//
//	pack, err := rulepack.LoadFile("packs/ghana.yaml")
//	if err != nil {
//	    var verr *rulepack.ValidationError
//	    if errors.As(err, &verr) {
//	        // inspect verr.Errors
//	    }
//	}
//
// Rule criteria are not consulted by the live agents. They drive the
// simulation harness only (see package simulation).
package rulepack
