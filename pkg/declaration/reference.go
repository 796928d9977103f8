package declaration

import (
	"slices"
	"strings"
)

// ecowasMembers is the ECOWAS member set used for origin preference.
var ecowasMembers = map[string]bool{
	"BJ": true, // Benin
	"BF": true, // Burkina Faso
	"CV": true, // Cabo Verde
	"CI": true, // Côte d'Ivoire
	"GM": true, // Gambia
	"GH": true, // Ghana
	"GN": true, // Guinea
	"GW": true, // Guinea-Bissau
	"LR": true, // Liberia
	"ML": true, // Mali
	"NE": true, // Niger
	"NG": true, // Nigeria
	"SN": true, // Senegal
	"SL": true, // Sierra Leone
	"TG": true, // Togo
}

// PetroleumPrefixes are the HS headings subject to ATG measurement.
var PetroleumPrefixes = []string{"2709", "2710", "2711"}

// IsECOWAS reports whether the ISO country code belongs to ECOWAS.
func IsECOWAS(country string) bool {
	return ecowasMembers[strings.ToUpper(strings.TrimSpace(country))]
}

// ECOWASMembers returns the member country codes in sorted order.
func ECOWASMembers() []string {
	members := make([]string, 0, len(ecowasMembers))
	for code := range ecowasMembers {
		members = append(members, code)
	}
	slices.Sort(members)
	return members
}

// IsPetroleum reports whether the HS code falls under a petroleum heading.
func IsPetroleum(hsCode string) bool {
	return HasPrefix(hsCode, PetroleumPrefixes)
}

// HasPrefix reports whether hsCode starts with any of the given prefixes.
// Dots and spaces are ignored so "2710.19.90" matches "271019".
func HasPrefix(hsCode string, prefixes []string) bool {
	code := NormalizeHSCode(hsCode)
	for _, p := range prefixes {
		p = NormalizeHSCode(p)
		if p != "" && strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// NormalizeHSCode strips separators from an HS code.
func NormalizeHSCode(hsCode string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ' ' || r == '-' {
			return -1
		}
		return r
	}, hsCode)
}
