package agents

import (
	"regexp"
	"strings"

	"gra-pca/sentinel/pkg/declaration"
)

// Ghana import tax schedule, as fractions of declared value.
const (
	VATRate        = 0.15
	GETFundRate    = 0.025
	NHILRate       = 0.025
	COVIDLevyRate  = 0.01
	ImportDutyRate = 0.05
)

// PetroleumDensity is the kg/L constant used to cross-check weight and volume.
const PetroleumDensity = 0.85

// Thresholds shared by the agents and the orchestrator.
const (
	HighValueThreshold    = 100000.0
	PaymentValueThreshold = 1000.0
)

var (
	tinPattern = regexp.MustCompile(`^TIN\d{7,10}$`)
	tsaPattern = regexp.MustCompile(`^TSA\d{12}$`)
)

// exciseRates maps HS prefixes to petroleum excise rates.
var exciseRates = map[string]float64{
	"271012": 0.17, // motor spirit
	"271019": 0.13, // gas oil, kerosene
	"2711":   0.05, // LPG
	"2709":   0,    // crude
}

// exemptions is the whitelist of recognised tax exemption codes.
var exemptions = map[string]bool{
	"DIPLOMATIC":  true,
	"UN_AGENCY":   true,
	"GOVERNMENT":  true,
	"EDUCATIONAL": true,
	"RELIGIOUS":   true,
	"CHARITABLE":  true,
}

// referenceRates are GHS per unit of foreign currency.
var referenceRates = map[string]float64{
	"USD": 12.0,
	"EUR": 13.0,
	"GBP": 15.2,
	"CNY": 1.66,
	"XOF": 0.0198,
	"NGN": 0.0078,
}

// marketPrices are reference unit prices per kg keyed by HS prefix.
var marketPrices = map[string]float64{
	"2709": 6.0,
	"2710": 9.5,
	"2711": 7.0,
	"1006": 6.5,
	"52":   12.0,
	"61":   25.0,
	"62":   30.0,
	"85":   80.0,
	"87":   60.0,
}

// suspiciousOrigins lists origin countries that are red flags for a given HS
// prefix when ECOWAS origin is claimed.
var suspiciousOrigins = []struct {
	prefix    string
	countries []string
}{
	{"61", []string{"CN", "BD", "VN", "IN"}},
	{"62", []string{"CN", "BD", "VN", "IN"}},
	{"52", []string{"CN", "IN", "PK"}},
	{"87", []string{"CN", "JP", "KR", "AE"}},
	{"85", []string{"CN", "HK", "AE"}},
	{"2710", []string{"AE", "SG", "NL"}},
}

// transshipmentHubs are ports of origin commonly used to disguise goods
// diverted into the ECOWAS preference.
var transshipmentHubs = map[string]bool{
	"AE": true,
	"SG": true,
	"HK": true,
	"MY": true,
	"PA": true,
}

// ImportDuty returns the duty owed on value.
func ImportDuty(value float64, ecowas bool) float64 {
	if ecowas {
		return 0
	}
	return float64(value * ImportDutyRate)
}

// TotalLiability returns VAT, GETFund, NHIL, COVID levy and import duty owed on
// value. The conversions keep each product rounded so the result does not
// depend on fused multiply-add.
func TotalLiability(value float64, ecowas bool) float64 {
	return float64(value*(VATRate+GETFundRate+NHILRate+COVIDLevyRate)) + ImportDuty(value, ecowas)
}

// ExciseRate returns the excise rate for hsCode using the longest matching
// prefix. Unknown codes have a zero rate.
func ExciseRate(hsCode string) float64 {
	rate, _ := longestPrefix(hsCode, exciseRates)
	return rate
}

// MarketPrice returns the reference unit price per kg for hsCode.
func MarketPrice(hsCode string) (float64, bool) {
	return longestPrefix(hsCode, marketPrices)
}

// ReferenceRate returns the fixed GHS reference rate for currency.
func ReferenceRate(currency string) (float64, bool) {
	rate, ok := referenceRates[strings.ToUpper(currency)]
	return rate, ok
}

// ValidTIN reports whether tin matches "TIN" followed by 7 to 10 digits.
func ValidTIN(tin string) bool {
	return tinPattern.MatchString(tin)
}

// ValidTSAReference reports whether ref matches "TSA" followed by 12 digits.
func ValidTSAReference(ref string) bool {
	return tsaPattern.MatchString(ref)
}

// ValidExemption reports whether code is a recognised exemption.
func ValidExemption(code string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	return exemptions[normalized]
}

func longestPrefix(hsCode string, table map[string]float64) (float64, bool) {
	code := declaration.NormalizeHSCode(hsCode)
	best := ""
	for prefix := range table {
		if strings.HasPrefix(code, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0, false
	}
	return table[best], true
}
