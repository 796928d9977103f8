package audit

import (
	"time"

	"gra-pca/sentinel/pkg/agents"
	"gra-pca/sentinel/pkg/declaration"
)

func day(month time.Month, d int) time.Time {
	return time.Date(2024, month, d, 9, 0, 0, 0, time.UTC)
}

// fixtures returns four declarations that select 4, 3, 1 and 3 agents.
func fixtures() []*declaration.Declaration {
	return []*declaration.Declaration{
		{
			ID: "D1", Type: declaration.TypeImport, HSCode: "27101990", Sector: declaration.SectorPetroleum,
			OriginCountry: "NG", DestinationCountry: "GH", ECOWASOrigin: true,
			Value: 100000, Weight: 5000, Volume: declaration.Float(5882),
			ATGApplicable: declaration.Bool(true),
			ATGReadings:   &declaration.ATGReading{FinalVolume: 5000},
			DeclarantTIN:  "TIN1234567",
			Date:          day(time.January, 10),
			RiskScore:     declaration.Float(72),
		},
		{
			ID: "D2", Type: declaration.TypeImport, HSCode: "52010000", Sector: declaration.SectorTextiles,
			OriginCountry: "CN", DestinationCountry: "GH", ECOWASOrigin: true,
			Value: 8000, Weight: 1000,
			DeclarantTIN: "TIN7654321",
			Date:         day(time.February, 15),
			RiskScore:    declaration.Float(55),
		},
		{
			ID: "D3", Type: declaration.TypeImport, HSCode: "87032390", Sector: declaration.SectorVehicles,
			OriginCountry: "JP", DestinationCountry: "GH",
			Value:        500,
			DeclarantTIN: "TIN123",
			Date:         day(time.March, 20),
		},
		{
			ID: "D4", Type: declaration.TypeExport, HSCode: "10063000", Sector: declaration.SectorOther,
			OriginCountry: "GH", DestinationCountry: "TG",
			Value: 20000, Weight: 4000,
			DeclarantTIN: "TIN2223334",
			Taxes: &declaration.TaxBreakdown{
				VAT: 3000, GETFund: 500, NHIL: 500, COVID: 200, ImportDuty: 0,
			},
			Payment: &declaration.Payment{
				Reference: "TSA123456789012", Status: declaration.PaymentPaid,
				ConfirmationAmount: declaration.Float(4200),
			},
			Date:      day(time.April, 25),
			RiskScore: declaration.Float(30),
		},
	}
}

// stubAgent lets tests script an agent's behaviour.
type stubAgent struct {
	typ     agents.AgentType
	analyze func(d *declaration.Declaration) (*agents.Result, error)
}

func (s stubAgent) ID() string { return "stub-" + string(s.typ) }
func (s stubAgent) Type() agents.AgentType { return s.typ }
func (s stubAgent) Analyze(d *declaration.Declaration) (*agents.Result, error) {
	return s.analyze(d)
}

func ids(decls []*declaration.Declaration) []string {
	out := make([]string, len(decls))
	for i, d := range decls {
		out[i] = d.ID
	}
	return out
}
