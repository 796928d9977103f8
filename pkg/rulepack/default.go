package rulepack

import "gra-pca/sentinel/pkg/declaration"

// DefaultID is the identifier of the built-in pack.
const DefaultID = "gra-default"

func threshold(v float64) *float64 {
	return &v
}

// Default returns the built-in Ghana Revenue Authority pack. Each call returns
// a fresh copy.
func Default() *RulePack {
	return &RulePack{
		ID:          DefaultID,
		Name:        "GRA Post-Clearance Audit",
		Version:     "1.0.0",
		Description: "Baseline sectoral rules for petroleum, textiles and vehicles.",
		IsActive:    true,
		SectoralFocus: SectoralFocus{
			Petroleum: SectorFocus{
				Enabled: true,
				Weight:  0.4,
				Flags:   map[string]bool{"atg_monitoring": true, "volume_reconciliation": true},
			},
			Textiles: SectorFocus{
				Enabled: true,
				Weight:  0.35,
				Flags:   map[string]bool{"origin_verification": true, "undervaluation_check": true},
			},
			Vehicles: SectorFocus{
				Enabled: true,
				Weight:  0.25,
				Flags:   map[string]bool{"valuation_check": true},
			},
		},
		RiskLevels: RiskLevels{
			Low:    RiskTier{Threshold: 30, Action: "auto-approve"},
			Medium: RiskTier{Threshold: 60, Action: "document-review"},
			High:   RiskTier{Threshold: 80, Action: "immediate-audit"},
		},
		Rules: []Rule{
			{
				ID:          "petroleum-volume-shortfall",
				Name:        "Petroleum volumetric shortfall",
				Description: "Petroleum imports below reference value with ATG reconciliation.",
				Category:    CategoryPetroleum,
				RiskLevel:   RiskHigh,
				Enabled:     true,
				Criteria: Criteria{
					ValueThreshold:     threshold(50000),
					HSCodePatterns:     append([]string(nil), declaration.PetroleumPrefixes...),
					RiskScoreThreshold: threshold(45),
				},
				Compliance: Compliance{ATG: true, VAT: true, TSA: true},
				Impact:     Impact{RecoveryRate: 0.15, FalsePositiveRate: 0.08, Accuracy: 0.92},
			},
			{
				ID:          "textiles-ecowas-origin",
				Name:        "Textiles ECOWAS origin claim",
				Description: "Preferential origin claimed on textiles shipped from outside ECOWAS.",
				Category:    CategoryTextiles,
				RiskLevel:   RiskHigh,
				Enabled:     true,
				Criteria: Criteria{
					ValueThreshold:     threshold(10000),
					HSCodePatterns:     []string{"52", "61", "62", "63"},
					CountryPatterns:    declaration.ECOWASMembers(),
					RiskScoreThreshold: threshold(45),
				},
				Compliance: Compliance{ECOWASOrigin: true, VAT: true, GETFund: true, NHIL: true},
				Impact:     Impact{RecoveryRate: 0.25, FalsePositiveRate: 0.12, Accuracy: 0.88},
			},
			{
				ID:          "vehicles-undervaluation",
				Name:        "Vehicle undervaluation",
				Description: "Passenger vehicles declared well below market value.",
				Category:    CategoryVehicles,
				RiskLevel:   RiskMedium,
				Enabled:     true,
				Criteria: Criteria{
					ValueThreshold:     threshold(5000),
					HSCodePatterns:     []string{"8703", "8704"},
					RiskScoreThreshold: threshold(45),
				},
				Compliance: Compliance{VAT: true, GETFund: true, NHIL: true, COVIDLevy: true},
				Impact:     Impact{RecoveryRate: 0.2, FalsePositiveRate: 0.1, Accuracy: 0.85},
			},
			{
				ID:          "general-tax-levies",
				Name:        "Statutory levies",
				Description: "VAT, GETFund, NHIL and COVID levy on all imports.",
				Category:    CategoryGeneral,
				RiskLevel:   RiskLow,
				Enabled:     true,
				Compliance:  Compliance{VAT: true, GETFund: true, NHIL: true, COVIDLevy: true, TSA: true},
				Impact:      Impact{RecoveryRate: 0.05, FalsePositiveRate: 0.05, Accuracy: 0.9},
			},
		},
	}
}
