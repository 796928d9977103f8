package agents

import (
	"fmt"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// ATG penalties and tolerances.
const (
	missingATGCertPoints     = 30
	atgShortfallPoints       = 35
	missingATGReadingPoints  = 20
	weightVolumePoints       = 20
	petroleumTaxPoints       = 10
	missingQualityCertPoints = 10

	shortfallTolerance    = 0.05
	densityTolerance      = 0.10
	petroleumTaxTolerance = 0.05
)

// ATGAgent reconciles petroleum declarations against Automated Transfer
// Gauger readings.
type ATGAgent struct {
	id     string
	checks []check
}

// NewATGAgent creates a volumetric-shortfall agent.
func NewATGAgent() *ATGAgent {
	return &ATGAgent{
		id: "atg-agent",
		checks: []check{
			checkATGCertificate,
			checkATGShortfall,
			checkWeightVolume,
			checkPetroleumTaxes,
			checkQualityCertificate,
		},
	}
}

// ID implements Agent.
func (a *ATGAgent) ID() string { return a.id }

// Type implements Agent.
func (a *ATGAgent) Type() AgentType { return AgentATG }

// Analyze implements Agent. Non-petroleum declarations and declarations without
// a declared volume return a zero-risk result marked not applicable.
func (a *ATGAgent) Analyze(d *declaration.Declaration) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	started := time.Now()
	result := newResult(a, d, started)

	if note, ok := atgNotApplicable(d); ok {
		result.Confidence = 1.0
		result.Metadata.NotApplicable = true
		result.Metadata.Note = note
		result.ProcessingTime = time.Since(started)
		return result, nil
	}

	result.Findings, result.RiskScore = fold(d, a.checks)
	result.HasViolation = len(result.Findings) > 0

	switch {
	case result.RiskScore > 70:
		result.Confidence = 0.96
	case result.RiskScore >= 40:
		result.Confidence = 0.88
	default:
		result.Confidence = 0.90
	}

	if litres, ok := atgShortfall(d); ok {
		value := round2(litres * d.Value / *d.Volume)
		result.Metadata.ShortfallVolume = &litres
		result.Metadata.EstimatedShortfall = &value
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

func atgNotApplicable(d *declaration.Declaration) (string, bool) {
	switch {
	case !declaration.IsPetroleum(d.HSCode):
		return "not a petroleum declaration", true
	case d.Volume == nil || *d.Volume <= 0:
		return "declared volume missing; shortfall cannot be computed", true
	}
	return "", false
}

// atgShortfall returns the shortfall in litres when the ATG reading is more than
// 5% below the declared volume.
func atgShortfall(d *declaration.Declaration) (float64, bool) {
	if d.ATGReadings == nil || d.Volume == nil || *d.Volume <= 0 {
		return 0, false
	}
	shortfall := *d.Volume - d.ATGReadings.FinalVolume
	if shortfall/(*d.Volume) <= shortfallTolerance {
		return 0, false
	}
	return shortfall, true
}

func checkATGCertificate(d *declaration.Declaration) []penalty {
	if d.Documents.ATGCertificate != "" {
		return nil
	}
	return one(Finding{
		Type:           "missing-atg-certificate",
		Description:    "Petroleum declaration has no ATG certificate",
		Severity:       SeverityCritical,
		Evidence:       []string{"hs code: " + d.HSCode},
		Recommendation: "Obtain the ATG discharge certificate from the depot",
	}, missingATGCertPoints)
}

func checkATGShortfall(d *declaration.Declaration) []penalty {
	if d.ATGReadings == nil {
		return one(Finding{
			Type:           "missing-atg-reading",
			Description:    "No ATG final volume reading was recorded",
			Severity:       SeverityHigh,
			Evidence:       []string{fmt.Sprintf("declared volume: %.2f L", *d.Volume)},
			Recommendation: "Request gauger readings for the discharge",
		}, missingATGReadingPoints)
	}

	litres, ok := atgShortfall(d)
	if !ok {
		return nil
	}
	return one(Finding{
		Type:        "atg-shortfall",
		Description: fmt.Sprintf("ATG reading is %.1f%% below declared volume", litres / *d.Volume * 100),
		Severity:    SeverityCritical,
		Evidence: []string{
			fmt.Sprintf("declared volume: %.2f L", *d.Volume),
			fmt.Sprintf("ATG final volume: %.2f L", d.ATGReadings.FinalVolume),
			fmt.Sprintf("shortfall: %.2f L", litres),
			fmt.Sprintf("estimated value: %.2f", litres*d.Value / *d.Volume),
		},
		Recommendation: "Assess duties on the shortfall and investigate the discharge chain",
	}, atgShortfallPoints)
}

func checkWeightVolume(d *declaration.Declaration) []penalty {
	if d.Weight <= 0 {
		return nil
	}
	expected := *d.Volume * PetroleumDensity
	if within(d.Weight, expected, densityTolerance) {
		return nil
	}
	return one(Finding{
		Type:        "weight-volume-mismatch",
		Description: "Declared weight is inconsistent with declared volume",
		Severity:    SeverityHigh,
		Evidence: []string{
			fmt.Sprintf("declared weight: %.2f kg", d.Weight),
			fmt.Sprintf("expected weight at %.2f kg/L: %.2f kg", PetroleumDensity, expected),
		},
		Recommendation: "Verify density certificate and re-gauge the cargo",
	}, weightVolumePoints)
}

func checkPetroleumTaxes(d *declaration.Declaration) []penalty {
	if d.Taxes == nil {
		return nil
	}
	var excise float64
	if d.Taxes.Excise != nil {
		excise = *d.Taxes.Excise
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
		{"excise duty", excise, d.Value * ExciseRate(d.HSCode)},
	}

	var out []penalty
	for _, line := range lines {
		if within(line.stated, line.expected, petroleumTaxTolerance) {
			continue
		}
		out = append(out, penalty{
			finding: Finding{
				Type:        "petroleum-tax-mismatch",
				Description: fmt.Sprintf("%s does not match the petroleum tax schedule", line.name),
				Severity:    SeverityMedium,
				Evidence: []string{
					fmt.Sprintf("stated %s: %.2f", line.name, line.stated),
					fmt.Sprintf("expected %s: %.2f", line.name, line.expected),
				},
				Recommendation: "Reassess " + line.name + " on the declared value",
			},
			points: petroleumTaxPoints,
		})
	}
	return out
}

func checkQualityCertificate(d *declaration.Declaration) []penalty {
	if d.Documents.QualityCertificate != "" {
		return nil
	}
	return one(Finding{
		Type:           "missing-quality-certificate",
		Description:    "Petroleum declaration has no quality certificate",
		Severity:       SeverityMedium,
		Evidence:       []string{"quality certificate: none"},
		Recommendation: "Request the product quality certificate",
	}, missingQualityCertPoints)
}
