// Package agents implements the violation-detection agents that score a single
// customs declaration.
//
// # Agents
//
// Four agents are provided, each independently runnable:
//
//   - OriginAgent: ECOWAS origin fraud, suspicious sourcing patterns,
//     under-valuation and missing certificates of origin
//   - ATGAgent: petroleum volumetric shortfall against Automated Transfer
//     Gauger readings, density cross-check and petroleum tax lines
//   - TaxAgent: VAT, GETFund, NHIL, COVID levy and import duty recomputation,
//     TIN and exemption validation
//   - PaymentAgent: Treasury Single Account reference, amount and exchange
//     rate reconciliation
//
// # Risk Scoring
//
// Every agent holds an ordered list of checks. A check inspects the declaration
// and returns zero or more findings, each carrying a fixed number of risk
// points. The agent folds the checks into a findings list and a risk score
// capped at 100:
//
//	findings, risk := fold(d, []check{checkOriginFraud, checkUndervaluation})
//
// Each point of risk therefore traces to exactly one named finding.
//
// # Usage
//
//	registry := agents.DefaultRegistry()
//	tax, _ := registry.Get(agents.AgentTax)
//	result, err := tax.Analyze(decl)
//	if err != nil {
//	    // only ErrMalformedDeclaration
//	}
//
// Agents are stateless and safe for concurrent use.
package agents
