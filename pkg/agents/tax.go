package agents

import (
	"fmt"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// Tax penalties and tolerances.
const (
	missingTaxBreakdownPoints = 40
	taxErrorHighPoints        = 20
	taxErrorMediumPoints      = 10
	missingTINPoints          = 30
	invalidTINPoints          = 20
	invalidExemptionPoints    = 20
	unpaidHighValuePoints     = 15

	taxTolerance     = 0.02
	taxHighTolerance = 0.10
)

// TaxAgent recomputes Ghana import taxes and validates the declarant's tax
// identity and exemptions.
type TaxAgent struct {
	id     string
	checks []check
}

// NewTaxAgent creates a tax-compliance agent.
func NewTaxAgent() *TaxAgent {
	return &TaxAgent{
		id: "tax-compliance-agent",
		checks: []check{
			checkTaxLines,
			checkTIN,
			checkExemption,
			checkUnpaidHighValue,
		},
	}
}

// ID implements Agent.
func (a *TaxAgent) ID() string { return a.id }

// Type implements Agent.
func (a *TaxAgent) Type() AgentType { return AgentTax }

// Analyze implements Agent. Confidence is always 1.0.
func (a *TaxAgent) Analyze(d *declaration.Declaration) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	started := time.Now()

	result := newResult(a, d, started)
	result.Findings, result.RiskScore = fold(d, a.checks)
	result.HasViolation = len(result.Findings) > 0
	result.Confidence = 1.0

	liability := TotalLiability(d.Value, d.ECOWASOrigin)
	gap := liability - statedTaxes(d.Taxes)
	result.Metadata.TotalTaxLiability = &liability
	result.Metadata.TaxGap = &gap
	if result.HasViolation && gap > 0 {
		recovery := round2(gap)
		result.Metadata.RecoveryAmount = &recovery
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

// statedTaxes sums the lines that make up the import liability.
func statedTaxes(t *declaration.TaxBreakdown) float64 {
	if t == nil {
		return 0
	}
	return t.VAT + t.GETFund + t.NHIL + t.COVID + t.ImportDuty
}

func checkTaxLines(d *declaration.Declaration) []penalty {
	if d.Taxes == nil {
		return one(Finding{
			Type:        "missing-tax-breakdown",
			Description: "Declaration carries no tax breakdown",
			Severity:    SeverityCritical,
			Evidence: []string{
				fmt.Sprintf("expected liability: %.2f", TotalLiability(d.Value, d.ECOWASOrigin)),
			},
			Recommendation: "Assess all import taxes on the declared value",
		}, missingTaxBreakdownPoints)
	}

	lines := []struct {
		name     string
		stated   float64
		expected float64
	}{
		{"VAT", d.Taxes.VAT, d.Value * VATRate},
		{"GETFund", d.Taxes.GETFund, d.Value * GETFundRate},
		{"NHIL", d.Taxes.NHIL, d.Value * NHILRate},
		{"COVID levy", d.Taxes.COVID, d.Value * COVIDLevyRate},
		{"import duty", d.Taxes.ImportDuty, ImportDuty(d.Value, d.ECOWASOrigin)},
	}

	var out []penalty
	for _, line := range lines {
		if within(line.stated, line.expected, taxTolerance) {
			continue
		}
		dev := deviation(line.stated, line.expected)
		severity, points := SeverityMedium, float64(taxErrorMediumPoints)
		if dev > taxHighTolerance {
			severity, points = SeverityHigh, taxErrorHighPoints
		}
		out = append(out, penalty{
			finding: Finding{
				Type:        "tax-calculation-error",
				Description: fmt.Sprintf("%s differs from the expected amount by %.1f%%", line.name, dev*100),
				Severity:    severity,
				Evidence: []string{
					fmt.Sprintf("stated %s: %.2f", line.name, line.stated),
					fmt.Sprintf("expected %s: %.2f", line.name, line.expected),
				},
				Recommendation: "Issue a supplementary assessment for " + line.name,
			},
			points: points,
		})
	}
	return out
}

func checkTIN(d *declaration.Declaration) []penalty {
	switch {
	case d.DeclarantTIN == "":
		return one(Finding{
			Type:           "missing-tin",
			Description:    "Declarant tax identification number is missing",
			Severity:       SeverityCritical,
			Recommendation: "Block clearance until the declarant TIN is provided",
		}, missingTINPoints)
	case !ValidTIN(d.DeclarantTIN):
		return one(Finding{
			Type:           "invalid-tin-format",
			Description:    "Declarant TIN does not match the TIN + 7-10 digits format",
			Severity:       SeverityHigh,
			Evidence:       []string{"declarant tin: " + d.DeclarantTIN},
			Recommendation: "Verify the declarant against the taxpayer register",
		}, invalidTINPoints)
	}
	return nil
}

func checkExemption(d *declaration.Declaration) []penalty {
	if d.ExemptionCode == "" || ValidExemption(d.ExemptionCode) {
		return nil
	}
	return one(Finding{
		Type:           "invalid-exemption",
		Description:    fmt.Sprintf("Exemption code %q is not recognised", d.ExemptionCode),
		Severity:       SeverityHigh,
		Evidence:       []string{"exemption code: " + d.ExemptionCode},
		Recommendation: "Reject the exemption and assess full taxes",
	}, invalidExemptionPoints)
}

func checkUnpaidHighValue(d *declaration.Declaration) []penalty {
	if d.Value <= HighValueThreshold || d.IsPaid() {
		return nil
	}
	status := "none"
	if d.Payment != nil && d.Payment.Status != "" {
		status = string(d.Payment.Status)
	}
	return one(Finding{
		Type:        "unpaid-high-value",
		Description: "High-value declaration has not been paid",
		Severity:    SeverityHigh,
		Evidence: []string{
			fmt.Sprintf("declared value: %.2f", d.Value),
			"payment status: " + status,
		},
		Recommendation: "Hold release pending TSA payment confirmation",
	}, unpaidHighValuePoints)
}
