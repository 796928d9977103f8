package agents

import (
	"errors"
	"math"
	"testing"

	"gra-pca/sentinel/pkg/declaration"
)

// compliantTaxes returns a tax breakdown that matches the schedule exactly.
func compliantTaxes(value float64, ecowas bool) *declaration.TaxBreakdown {
	return &declaration.TaxBreakdown{
		VAT:        value * VATRate,
		GETFund:    value * GETFundRate,
		NHIL:       value * NHILRate,
		COVID:      value * COVIDLevyRate,
		ImportDuty: ImportDuty(value, ecowas),
	}
}

func TestMalformedDeclaration(t *testing.T) {
	for _, a := range DefaultRegistry().All() {
		t.Run(string(a.Type()), func(t *testing.T) {
			if _, err := a.Analyze(nil); !errors.Is(err, ErrMalformedDeclaration) {
				t.Errorf("Analyze(nil) error = %v, want ErrMalformedDeclaration", err)
			}
			if _, err := a.Analyze(&declaration.Declaration{}); !errors.Is(err, ErrMalformedDeclaration) {
				t.Errorf("Analyze(no id) error = %v, want ErrMalformedDeclaration", err)
			}
		})
	}
}

func TestOriginAgent(t *testing.T) {
	tests := []struct {
		name         string
		decl         *declaration.Declaration
		wantFindings map[string]int
		wantRisk     float64
		wantConf     float64
	}{
		{
			name: "china claiming ecowas",
			decl: &declaration.Declaration{
				ID: "D1", HSCode: "27101990", OriginCountry: "CN", ECOWASOrigin: true,
				Documents: declaration.Documents{CertificateOfOrigin: "COO-1"},
			},
			wantFindings: map[string]int{"origin-fraud": 1},
			wantRisk:     40,
			wantConf:     0.95,
		},
		{
			name: "genuine nigerian origin",
			decl: &declaration.Declaration{
				ID: "D2", HSCode: "27101990", OriginCountry: "NG", ECOWASOrigin: true,
				Documents: declaration.Documents{CertificateOfOrigin: "COO-2"},
			},
			wantFindings: map[string]int{},
			wantRisk:     0,
			wantConf:     0.85,
		},
		{
			name: "textiles diverted from china without certificate",
			decl: &declaration.Declaration{
				ID: "D3", HSCode: "61091000", OriginCountry: "CN", ECOWASOrigin: true,
			},
			wantFindings: map[string]int{
				"origin-fraud":                  1,
				"suspicious-origin-pattern":     1,
				"missing-certificate-of-origin": 1,
			},
			wantRisk: 80,
			wantConf: 0.95,
		},
		{
			name: "vehicles from the emirates hit pattern and hub",
			decl: &declaration.Declaration{
				ID: "D4", HSCode: "87032390", OriginCountry: "AE", ECOWASOrigin: true,
				Documents: declaration.Documents{CertificateOfOrigin: "COO-4"},
			},
			wantFindings: map[string]int{
				"origin-fraud":              1,
				"suspicious-origin-pattern": 2,
			},
			wantRisk: 90,
			wantConf: 0.95,
		},
		{
			name: "padded lowercase origin hits pattern and hub",
			decl: &declaration.Declaration{
				ID: "D4b", HSCode: "87032390", OriginCountry: " ae ", ECOWASOrigin: true,
				Documents: declaration.Documents{CertificateOfOrigin: "COO-4"},
			},
			wantFindings: map[string]int{
				"origin-fraud":              1,
				"suspicious-origin-pattern": 2,
			},
			wantRisk: 90,
			wantConf: 0.95,
		},
		{
			name: "everything at once is capped",
			decl: &declaration.Declaration{
				ID: "D5", HSCode: "87032390", OriginCountry: "AE", ECOWASOrigin: true,
				Value: 1000, Weight: 1000,
			},
			wantFindings: map[string]int{
				"origin-fraud":                  1,
				"suspicious-origin-pattern":     2,
				"undervaluation":                1,
				"missing-certificate-of-origin": 1,
			},
			wantRisk: 100,
			wantConf: 0.95,
		},
		{
			name: "undervalued ghanaian rice without claim",
			decl: &declaration.Declaration{
				ID: "D6", HSCode: "10063000", OriginCountry: "GH", Value: 5000, Weight: 2000,
			},
			wantFindings: map[string]int{"undervaluation": 1},
			wantRisk:     20,
			wantConf:     0.85,
		},
	}

	agent := NewOriginAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := agent.Analyze(tt.decl)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			total := 0
			for typ, n := range tt.wantFindings {
				total += n
				if got := result.CountFindings(typ); got != n {
					t.Errorf("CountFindings(%q) = %d, want %d", typ, got, n)
				}
			}
			if len(result.Findings) != total {
				t.Errorf("len(Findings) = %d, want %d: %+v", len(result.Findings), total, result.Findings)
			}
			if result.HasViolation != (total > 0) {
				t.Errorf("HasViolation = %v, want %v", result.HasViolation, total > 0)
			}
			if result.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %v, want %v", result.RiskScore, tt.wantRisk)
			}
			if result.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConf)
			}
		})
	}
}

func TestOriginAgentRecovery(t *testing.T) {
	d := &declaration.Declaration{
		ID: "D1", HSCode: "52010000", OriginCountry: "CN", ECOWASOrigin: true,
		Value: 8000, Weight: 1000,
		Documents: declaration.Documents{CertificateOfOrigin: "COO"},
	}
	result, err := NewOriginAgent().Analyze(d)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	// lost duty 8000*0.05 plus (12000-8000)*0.21
	want := 400.0 + 4000*0.21
	if result.Metadata.RecoveryAmount == nil {
		t.Fatal("RecoveryAmount = nil")
	}
	if math.Abs(*result.Metadata.RecoveryAmount-want) > 0.01 {
		t.Errorf("RecoveryAmount = %v, want %v", *result.Metadata.RecoveryAmount, want)
	}
}

func TestATGAgentShortfallScenario(t *testing.T) {
	d := &declaration.Declaration{
		ID:            "PET-001",
		HSCode:        "27101990",
		Value:         100000,
		ECOWASOrigin:  true,
		OriginCountry: "NG",
		ATGApplicable: declaration.Bool(true),
		ATGReadings:   &declaration.ATGReading{FinalVolume: 5000},
		Volume:        declaration.Float(5882),
		Sector:        declaration.SectorPetroleum,
	}

	result, err := NewATGAgent().Analyze(d)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if !result.HasViolation {
		t.Fatal("HasViolation = false, want true")
	}
	if n := result.CountFindings("atg-shortfall"); n != 1 {
		t.Fatalf("atg-shortfall findings = %d, want 1", n)
	}
	if result.RiskScore < 15 {
		t.Errorf("RiskScore = %v, want >= 15", result.RiskScore)
	}
	if v := result.Metadata.ShortfallVolume; v == nil || *v != 882 {
		t.Errorf("ShortfallVolume = %v, want 882", v)
	}
	if v := result.Metadata.EstimatedShortfall; v == nil || math.Abs(*v-14994.9) > 0.01 {
		t.Errorf("EstimatedShortfall = %v, want 14994.9", v)
	}

	found := false
	for _, f := range result.Findings {
		if f.Type != "atg-shortfall" {
			continue
		}
		if f.Severity != SeverityCritical {
			t.Errorf("atg-shortfall severity = %s, want critical", f.Severity)
		}
		for _, e := range f.Evidence {
			if e == "shortfall: 882.00 L" {
				found = true
			}
		}
	}
	if !found {
		t.Error("atg-shortfall evidence does not report 882 L")
	}
	if result.Metadata.Sector != "petroleum" {
		t.Errorf("Metadata.Sector = %q, want petroleum", result.Metadata.Sector)
	}
}

func TestATGAgent(t *testing.T) {
	value := 100000.0
	docs := declaration.Documents{ATGCertificate: "ATG-1", QualityCertificate: "Q-1"}

	tests := []struct {
		name         string
		decl         *declaration.Declaration
		wantNA       bool
		wantFindings []string
		wantRisk     float64
		wantConf     float64
	}{
		{
			name:     "non petroleum",
			decl:     &declaration.Declaration{ID: "T1", HSCode: "52010000", Volume: declaration.Float(100)},
			wantNA:   true,
			wantConf: 1.0,
		},
		{
			name:     "no declared volume",
			decl:     &declaration.Declaration{ID: "P0", HSCode: "27101990"},
			wantNA:   true,
			wantConf: 1.0,
		},
		{
			name: "self-declared not applicable still checked",
			decl: &declaration.Declaration{
				ID: "P00", HSCode: "27101990", Value: value, Volume: declaration.Float(10000),
				ATGApplicable: declaration.Bool(false),
				ATGReadings:   &declaration.ATGReading{FinalVolume: 1700},
			},
			wantFindings: []string{"missing-atg-certificate", "atg-shortfall", "missing-quality-certificate"},
			wantRisk:     75,
			wantConf:     0.96,
		},
		{
			name: "clean discharge",
			decl: &declaration.Declaration{
				ID: "P1", HSCode: "27101990", Value: value, Volume: declaration.Float(10000),
				Weight: 8500, ATGReadings: &declaration.ATGReading{FinalVolume: 9900}, Documents: docs,
			},
			wantConf: 0.90,
		},
		{
			name: "missing reading and certificates",
			decl: &declaration.Declaration{
				ID: "P2", HSCode: "27111200", Value: value, Volume: declaration.Float(10000),
			},
			wantFindings: []string{"missing-atg-certificate", "missing-atg-reading", "missing-quality-certificate"},
			wantRisk:     60,
			wantConf:     0.88,
		},
		{
			name: "heavy cargo",
			decl: &declaration.Declaration{
				ID: "P3", HSCode: "27090000", Value: value, Volume: declaration.Float(10000),
				Weight: 12000, ATGReadings: &declaration.ATGReading{FinalVolume: 10000}, Documents: docs,
			},
			wantFindings: []string{"weight-volume-mismatch"},
			wantRisk:     20,
			wantConf:     0.90,
		},
		{
			name: "petroleum taxes understated on every line",
			decl: &declaration.Declaration{
				ID: "P4", HSCode: "27101210", Value: value, Volume: declaration.Float(10000),
				ATGReadings: &declaration.ATGReading{FinalVolume: 10000}, Documents: docs,
				Taxes: &declaration.TaxBreakdown{VAT: 1, GETFund: 1, NHIL: 1, COVID: 1},
			},
			wantFindings: []string{
				"petroleum-tax-mismatch", "petroleum-tax-mismatch", "petroleum-tax-mismatch",
				"petroleum-tax-mismatch", "petroleum-tax-mismatch",
			},
			wantRisk: 50,
			wantConf: 0.88,
		},
		{
			name: "shortfall with missing paperwork",
			decl: &declaration.Declaration{
				ID: "P5", HSCode: "27101990", Value: value, Volume: declaration.Float(10000),
				ATGReadings: &declaration.ATGReading{FinalVolume: 8000},
			},
			wantFindings: []string{"missing-atg-certificate", "atg-shortfall", "missing-quality-certificate"},
			wantRisk:     75,
			wantConf:     0.96,
		},
	}

	agent := NewATGAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := agent.Analyze(tt.decl)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if result.Metadata.NotApplicable != tt.wantNA {
				t.Errorf("NotApplicable = %v, want %v", result.Metadata.NotApplicable, tt.wantNA)
			}
			if len(result.Findings) != len(tt.wantFindings) {
				t.Fatalf("Findings = %+v, want types %v", result.Findings, tt.wantFindings)
			}
			for i, f := range result.Findings {
				if f.Type != tt.wantFindings[i] {
					t.Errorf("Findings[%d].Type = %q, want %q", i, f.Type, tt.wantFindings[i])
				}
			}
			if result.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %v, want %v", result.RiskScore, tt.wantRisk)
			}
			if result.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", result.Confidence, tt.wantConf)
			}
		})
	}
}

func TestTaxAgent(t *testing.T) {
	taxes := compliantTaxes(10000, false)
	underVAT := *taxes
	underVAT.VAT = taxes.VAT * 0.95
	wrongDuty := *compliantTaxes(10000, true)
	wrongDuty.ImportDuty = 500

	tests := []struct {
		name         string
		decl         *declaration.Declaration
		wantFindings map[string]Severity
		wantRisk     float64
	}{
		{
			name: "compliant",
			decl: &declaration.Declaration{ID: "X1", Value: 10000, Taxes: taxes, DeclarantTIN: "TIN1234567"},
		},
		{
			name:         "six digit tin",
			decl:         &declaration.Declaration{ID: "X2", Value: 10000, Taxes: taxes, DeclarantTIN: "TIN123"},
			wantFindings: map[string]Severity{"invalid-tin-format": SeverityHigh},
			wantRisk:     20,
		},
		{
			name:         "missing tin and breakdown",
			decl:         &declaration.Declaration{ID: "X3", Value: 10000},
			wantFindings: map[string]Severity{"missing-tin": SeverityCritical, "missing-tax-breakdown": SeverityCritical},
			wantRisk:     70,
		},
		{
			name:         "vat off by five percent",
			decl:         &declaration.Declaration{ID: "X4", Value: 10000, Taxes: &underVAT, DeclarantTIN: "TIN1234567890"},
			wantFindings: map[string]Severity{"tax-calculation-error": SeverityMedium},
			wantRisk:     10,
		},
		{
			name:         "duty charged on ecowas goods",
			decl:         &declaration.Declaration{ID: "X5", Value: 10000, ECOWASOrigin: true, Taxes: &wrongDuty, DeclarantTIN: "TIN1234567"},
			wantFindings: map[string]Severity{"tax-calculation-error": SeverityHigh},
			wantRisk:     20,
		},
		{
			name: "unknown exemption",
			decl: &declaration.Declaration{ID: "X6", Value: 10000, Taxes: taxes, DeclarantTIN: "TIN1234567",
				ExemptionCode: "FRIENDS_AND_FAMILY"},
			wantFindings: map[string]Severity{"invalid-exemption": SeverityHigh},
			wantRisk:     20,
		},
		{
			name: "recognised exemption in lower case",
			decl: &declaration.Declaration{ID: "X7", Value: 10000, Taxes: taxes, DeclarantTIN: "TIN1234567",
				ExemptionCode: "un-agency"},
		},
		{
			name: "unpaid high value",
			decl: &declaration.Declaration{ID: "X8", Value: 200000, Taxes: compliantTaxes(200000, false),
				DeclarantTIN: "TIN1234567", Payment: &declaration.Payment{Status: declaration.PaymentPending}},
			wantFindings: map[string]Severity{"unpaid-high-value": SeverityHigh},
			wantRisk:     15,
		},
	}

	agent := NewTaxAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := agent.Analyze(tt.decl)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if len(result.Findings) != len(tt.wantFindings) {
				t.Fatalf("Findings = %+v, want %v", result.Findings, tt.wantFindings)
			}
			for _, f := range result.Findings {
				want, ok := tt.wantFindings[f.Type]
				if !ok {
					t.Errorf("unexpected finding %q", f.Type)
					continue
				}
				if f.Severity != want {
					t.Errorf("%s severity = %s, want %s", f.Type, f.Severity, want)
				}
			}
			if result.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %v, want %v", result.RiskScore, tt.wantRisk)
			}
			if result.Confidence != 1.0 {
				t.Errorf("Confidence = %v, want 1.0", result.Confidence)
			}
			if result.Metadata.TotalTaxLiability == nil || result.Metadata.TaxGap == nil {
				t.Error("tax liability metadata missing")
			}
		})
	}
}

func TestTaxAgentGap(t *testing.T) {
	d := &declaration.Declaration{ID: "G1", Value: 10000, DeclarantTIN: "TIN1234567"}
	result, err := NewTaxAgent().Analyze(d)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if got := *result.Metadata.TotalTaxLiability; math.Abs(got-2600) > 1e-9 {
		t.Errorf("TotalTaxLiability = %v, want 2600", got)
	}
	if got := *result.Metadata.TaxGap; math.Abs(got-2600) > 1e-9 {
		t.Errorf("TaxGap = %v, want 2600", got)
	}
	if result.Metadata.RecoveryAmount == nil || *result.Metadata.RecoveryAmount != 2600 {
		t.Errorf("RecoveryAmount = %v, want 2600", result.Metadata.RecoveryAmount)
	}
}

func TestPaymentAgent(t *testing.T) {
	liability := TotalLiability(10000, false)

	tests := []struct {
		name         string
		payment      *declaration.Payment
		wantFindings []string
		wantRisk     float64
		wantStatus   ReconciliationStatus
	}{
		{
			name:         "no payment",
			wantFindings: []string{"missing-tsa-reference"},
			wantRisk:     40,
			wantStatus:   ReconciliationNotInitiated,
		},
		{
			name:         "malformed reference",
			payment:      &declaration.Payment{Reference: "TSA12345", Status: declaration.PaymentPending},
			wantFindings: []string{"invalid-tsa-reference"},
			wantRisk:     25,
			wantStatus:   ReconciliationPending,
		},
		{
			name: "verified",
			payment: &declaration.Payment{Reference: "TSA123456789012", Status: declaration.PaymentPaid,
				ConfirmationAmount: declaration.Float(liability * 1.005)},
			wantStatus: ReconciliationVerified,
		},
		{
			name: "short payment",
			payment: &declaration.Payment{Reference: "TSA123456789012", Status: declaration.PaymentPaid,
				ConfirmationAmount: declaration.Float(liability * 0.9)},
			wantFindings: []string{"payment-amount-mismatch"},
			wantRisk:     25,
			wantStatus:   ReconciliationUnverified,
		},
		{
			name: "usd rate off reference",
			payment: &declaration.Payment{Reference: "TSA123456789012", Status: declaration.PaymentPaid,
				ConfirmationAmount: declaration.Float(liability), Currency: "USD", ExchangeRate: declaration.Float(10)},
			wantFindings: []string{"exchange-rate-deviation"},
			wantRisk:     10,
			wantStatus:   ReconciliationVerified,
		},
		{
			name: "cedi rate ignored",
			payment: &declaration.Payment{Reference: "TSA123456789012", Status: declaration.PaymentPaid,
				ConfirmationAmount: declaration.Float(liability), Currency: "GHS", ExchangeRate: declaration.Float(3)},
			wantStatus: ReconciliationVerified,
		},
	}

	agent := NewPaymentAgent()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &declaration.Declaration{ID: "PAY", Value: 10000, Payment: tt.payment}
			result, err := agent.Analyze(d)
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if len(result.Findings) != len(tt.wantFindings) {
				t.Fatalf("Findings = %+v, want %v", result.Findings, tt.wantFindings)
			}
			for i, f := range result.Findings {
				if f.Type != tt.wantFindings[i] {
					t.Errorf("Findings[%d].Type = %q, want %q", i, f.Type, tt.wantFindings[i])
				}
			}
			if result.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %v, want %v", result.RiskScore, tt.wantRisk)
			}
			if result.Metadata.ReconciliationStatus != tt.wantStatus {
				t.Errorf("ReconciliationStatus = %s, want %s", result.Metadata.ReconciliationStatus, tt.wantStatus)
			}
		})
	}
}

func TestPaymentAgentRecovery(t *testing.T) {
	liability := TotalLiability(10000, false)
	d := &declaration.Declaration{ID: "PAY", Value: 10000, Payment: &declaration.Payment{
		Reference: "TSA123456789012", ConfirmationAmount: declaration.Float(liability - 1000),
	}}
	result, err := NewPaymentAgent().Analyze(d)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Metadata.RecoveryAmount == nil || *result.Metadata.RecoveryAmount != 1000 {
		t.Errorf("RecoveryAmount = %v, want 1000", result.Metadata.RecoveryAmount)
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	all := r.All()
	if len(all) != 4 {
		t.Fatalf("len(All()) = %d, want 4", len(all))
	}
	for i, want := range Order {
		if all[i].Type() != want {
			t.Errorf("All()[%d].Type() = %s, want %s", i, all[i].Type(), want)
		}
	}
	if _, ok := r.Get(AgentATG); !ok {
		t.Error("Get(AgentATG) not found")
	}

	empty := NewRegistry()
	if _, ok := empty.Get(AgentTax); ok {
		t.Error("empty registry returned an agent")
	}

	// A fresh registry is independent of another one.
	r.Register(NewTaxAgent())
	if len(DefaultRegistry().All()) != 4 {
		t.Error("DefaultRegistry() shares state between calls")
	}
}

func TestMetadataRecovery(t *testing.T) {
	tests := []struct {
		name string
		m    Metadata
		want float64
	}{
		{"empty", Metadata{}, 0},
		{"shortfall only", Metadata{EstimatedShortfall: declaration.Float(7)}, 7},
		{"recovery wins", Metadata{RecoveryAmount: declaration.Float(3), EstimatedShortfall: declaration.Float(7)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Recovery(); got != tt.want {
				t.Errorf("Recovery() = %v, want %v", got, tt.want)
			}
		})
	}
}
