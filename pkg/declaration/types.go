package declaration

import "time"

// Type is the customs regime of a declaration.
type Type string

const (
	TypeImport  Type = "import"
	TypeExport  Type = "export"
	TypeTransit Type = "transit"
)

// Sector tags a declaration with the audit focus area it belongs to.
type Sector string

const (
	SectorPetroleum Sector = "petroleum"
	SectorTextiles  Sector = "textiles"
	SectorVehicles  Sector = "vehicles"
	SectorOther     Sector = "other"
)

// Valid reports whether s is one of the known sectors.
func (s Sector) Valid() bool {
	switch s {
	case SectorPetroleum, SectorTextiles, SectorVehicles, SectorOther:
		return true
	}
	return false
}

// PaymentStatus is the settlement state reported by the payment channel.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

// Declaration is a single customs filing. Declarations are read-only inputs:
// nothing in the audit pipeline mutates them.
type Declaration struct {
	// Identity
	ID   string `json:"id" yaml:"id"`
	Type Type   `json:"type" yaml:"type"`

	// Goods
	HSCode      string `json:"hs_code" yaml:"hs_code"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Sector      Sector `json:"sector" yaml:"sector"`

	// Routing
	OriginCountry      string    `json:"origin_country" yaml:"origin_country"`
	DestinationCountry string    `json:"destination_country" yaml:"destination_country"`
	PortOfEntry        string    `json:"port_of_entry,omitempty" yaml:"port_of_entry,omitempty"`
	Date               time.Time `json:"date" yaml:"date"`

	// Valuation
	Value     float64  `json:"value" yaml:"value"`
	Currency  string   `json:"currency,omitempty" yaml:"currency,omitempty"`
	Weight    float64  `json:"weight,omitempty" yaml:"weight,omitempty"`         // kg
	Volume    *float64 `json:"volume,omitempty" yaml:"volume,omitempty"`         // litres, petroleum only
	RiskScore *float64 `json:"risk_score,omitempty" yaml:"risk_score,omitempty"` // pre-assessed profile score

	// Declarant
	DeclarantTIN  string `json:"declarant_tin,omitempty" yaml:"declarant_tin,omitempty"`
	ExemptionCode string `json:"exemption_code,omitempty" yaml:"exemption_code,omitempty"`

	// Origin preference
	ECOWASOrigin bool `json:"ecowas_origin" yaml:"ecowas_origin"`

	// Petroleum measurement
	ATGApplicable *bool       `json:"atg_applicable,omitempty" yaml:"atg_applicable,omitempty"`
	ATGReadings   *ATGReading `json:"atg_readings,omitempty" yaml:"atg_readings,omitempty"`

	Taxes     *TaxBreakdown `json:"taxes,omitempty" yaml:"taxes,omitempty"`
	Payment   *Payment      `json:"payment,omitempty" yaml:"payment,omitempty"`
	Documents Documents     `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// ATGReading is the gauged outturn of a petroleum discharge.
type ATGReading struct {
	FinalVolume float64 `json:"final_volume" yaml:"final_volume"`
}

// TaxBreakdown holds the tax lines stated by the declarant.
type TaxBreakdown struct {
	VAT        float64  `json:"vat" yaml:"vat"`
	GETFund    float64  `json:"getfund" yaml:"getfund"`
	NHIL       float64  `json:"nhil" yaml:"nhil"`
	COVID      float64  `json:"covid" yaml:"covid"`
	ImportDuty float64  `json:"import_duty" yaml:"import_duty"`
	Excise     *float64 `json:"excise,omitempty" yaml:"excise,omitempty"`
}

// Total returns the sum of every stated tax line.
func (t *TaxBreakdown) Total() float64 {
	if t == nil {
		return 0
	}
	total := t.VAT + t.GETFund + t.NHIL + t.COVID + t.ImportDuty
	if t.Excise != nil {
		total += *t.Excise
	}
	return total
}

// Payment is the settlement record from the Treasury Single Account.
type Payment struct {
	Reference          string        `json:"reference,omitempty" yaml:"reference,omitempty"`
	Status             PaymentStatus `json:"status,omitempty" yaml:"status,omitempty"`
	ConfirmationAmount *float64      `json:"confirmation_amount,omitempty" yaml:"confirmation_amount,omitempty"`
	Currency           string        `json:"currency,omitempty" yaml:"currency,omitempty"`
	ExchangeRate       *float64      `json:"exchange_rate,omitempty" yaml:"exchange_rate,omitempty"`
}

// Documents carries references to supporting certificates.
type Documents struct {
	CertificateOfOrigin string `json:"certificate_of_origin,omitempty" yaml:"certificate_of_origin,omitempty"`
	ATGCertificate      string `json:"atg_certificate,omitempty" yaml:"atg_certificate,omitempty"`
	QualityCertificate  string `json:"quality_certificate,omitempty" yaml:"quality_certificate,omitempty"`
}

// IsPaid reports whether the payment channel confirmed settlement.
func (d *Declaration) IsPaid() bool {
	return d.Payment != nil && d.Payment.Status == PaymentPaid
}

// EffectiveRiskScore returns the pre-assessed risk score, or 0 when none was
// supplied.
func (d *Declaration) EffectiveRiskScore() float64 {
	if d.RiskScore == nil {
		return 0
	}
	return *d.RiskScore
}

// Float returns a pointer to v. It keeps literal declarations in tests and
// fixtures readable.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
