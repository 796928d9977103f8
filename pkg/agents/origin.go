package agents

import (
	"fmt"
	"strings"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// Origin penalties.
const (
	originFraudPoints        = 40
	suspiciousPatternPoints  = 25
	undervaluationPoints     = 20
	missingCertOriginPoints  = 15
	undervaluationThreshold  = 0.8
	lostDutyRecoveryFraction = ImportDutyRate
)

// OriginAgent checks ECOWAS origin claims for fraud, suspicious sourcing
// patterns and under-valuation.
type OriginAgent struct {
	id     string
	checks []check
}

// NewOriginAgent creates an origin-fraud agent.
func NewOriginAgent() *OriginAgent {
	return &OriginAgent{
		id: "origin-fraud-agent",
		checks: []check{
			checkOriginFraud,
			checkSuspiciousOrigin,
			checkUndervaluation,
			checkCertificateOfOrigin,
		},
	}
}

// ID implements Agent.
func (a *OriginAgent) ID() string { return a.id }

// Type implements Agent.
func (a *OriginAgent) Type() AgentType { return AgentOrigin }

// Analyze implements Agent.
func (a *OriginAgent) Analyze(d *declaration.Declaration) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	started := time.Now()

	result := newResult(a, d, started)
	result.Findings, result.RiskScore = fold(d, a.checks)
	result.HasViolation = len(result.Findings) > 0

	result.Confidence = 0.85
	if hasCritical(result.Findings) {
		result.Confidence = 0.95
	}

	var recovery float64
	if result.HasFinding("origin-fraud") {
		recovery += d.Value * lostDutyRecoveryFraction
	}
	if gap, ok := undervaluationGap(d); ok {
		recovery += gap * (VATRate + GETFundRate + NHILRate + COVIDLevyRate)
	}
	if recovery > 0 {
		recovery = round2(recovery)
		result.Metadata.RecoveryAmount = &recovery
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

func checkOriginFraud(d *declaration.Declaration) []penalty {
	if !d.ECOWASOrigin || declaration.IsECOWAS(d.OriginCountry) {
		return nil
	}
	return one(Finding{
		Type:        "origin-fraud",
		Description: fmt.Sprintf("ECOWAS origin claimed but origin country %q is not an ECOWAS member", d.OriginCountry),
		Severity:    SeverityCritical,
		Evidence: []string{
			"declared origin: " + d.OriginCountry,
			"ECOWAS origin claimed: true",
		},
		Recommendation: "Deny ECOWAS preference and recover the import duty forgone",
	}, originFraudPoints)
}

func checkSuspiciousOrigin(d *declaration.Declaration) []penalty {
	if !d.ECOWASOrigin {
		return nil
	}
	origin := strings.ToUpper(strings.TrimSpace(d.OriginCountry))

	var out []penalty
	for _, pattern := range suspiciousOrigins {
		prefix := pattern.prefix
		if !declaration.HasPrefix(d.HSCode, []string{prefix}) {
			continue
		}
		for _, c := range pattern.countries {
			if c != origin {
				continue
			}
			out = append(out, penalty{
				finding: Finding{
					Type:        "suspicious-origin-pattern",
					Description: fmt.Sprintf("HS %s from %s claiming ECOWAS origin is a known diversion pattern", prefix, origin),
					Severity:    SeverityHigh,
					Evidence: []string{
						"hs code: " + d.HSCode,
						"origin: " + origin,
					},
					Recommendation: "Verify production records and bill of lading for the shipment",
				},
				points: suspiciousPatternPoints,
			})
		}
	}

	if transshipmentHubs[origin] {
		out = append(out, penalty{
			finding: Finding{
				Type:           "suspicious-origin-pattern",
				Description:    fmt.Sprintf("ECOWAS origin claimed for goods shipped from transshipment hub %s", origin),
				Severity:       SeverityHigh,
				Evidence:       []string{"origin: " + origin},
				Recommendation: "Trace the shipment routing back to the port of loading",
			},
			points: suspiciousPatternPoints,
		})
	}
	return out
}

// undervaluationGap returns how far the declared value falls below the implied
// market value, when it falls more than 20% below it.
func undervaluationGap(d *declaration.Declaration) (float64, bool) {
	if d.Weight <= 0 {
		return 0, false
	}
	price, ok := MarketPrice(d.HSCode)
	if !ok {
		return 0, false
	}
	implied := d.Weight * price
	if d.Value >= implied*undervaluationThreshold {
		return 0, false
	}
	return implied - d.Value, true
}

func checkUndervaluation(d *declaration.Declaration) []penalty {
	gap, ok := undervaluationGap(d)
	if !ok {
		return nil
	}
	implied := d.Value + gap
	return one(Finding{
		Type:        "undervaluation",
		Description: "Declared value is more than 20% below the implied market value",
		Severity:    SeverityHigh,
		Evidence: []string{
			fmt.Sprintf("declared value: %.2f", d.Value),
			fmt.Sprintf("implied market value: %.2f", implied),
			fmt.Sprintf("shortfall: %.1f%%", gap/implied*100),
		},
		Recommendation: "Request invoices and apply the transaction value method",
	}, undervaluationPoints)
}

func checkCertificateOfOrigin(d *declaration.Declaration) []penalty {
	if !d.ECOWASOrigin || d.Documents.CertificateOfOrigin != "" {
		return nil
	}
	return one(Finding{
		Type:           "missing-certificate-of-origin",
		Description:    "ECOWAS origin claimed without a certificate of origin",
		Severity:       SeverityHigh,
		Evidence:       []string{"certificate of origin: none"},
		Recommendation: "Obtain the ECOWAS certificate of origin from the declarant",
	}, missingCertOriginPoints)
}
