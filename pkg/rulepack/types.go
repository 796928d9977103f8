package rulepack

import (
	"maps"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// Category is the sector a rule targets.
type Category string

const (
	CategoryPetroleum Category = "petroleum"
	CategoryTextiles  Category = "textiles"
	CategoryVehicles  Category = "vehicles"
	CategoryGeneral   Category = "general"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryPetroleum, CategoryTextiles, CategoryVehicles, CategoryGeneral:
		return true
	}
	return false
}

// RiskLevel is one of the three tiers of a pack's risk policy.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether l is a known risk level.
func (l RiskLevel) Valid() bool {
	return l == RiskLow || l == RiskMedium || l == RiskHigh
}

// RulePack is a named, versioned collection of rules.
type RulePack struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsActive    bool   `json:"is_active" yaml:"is_active"`

	SectoralFocus SectoralFocus `json:"sectoral_focus" yaml:"sectoral_focus"`
	RiskLevels    RiskLevels    `json:"risk_levels" yaml:"risk_levels"`
	Rules         []Rule        `json:"rules" yaml:"rules"`

	CreatedAt time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// SectoralFocus weights the three audited sectors.
type SectoralFocus struct {
	Petroleum SectorFocus `json:"petroleum" yaml:"petroleum"`
	Textiles  SectorFocus `json:"textiles" yaml:"textiles"`
	Vehicles  SectorFocus `json:"vehicles" yaml:"vehicles"`
}

// SectorFocus enables a sector and sets its weight in [0, 1].
type SectorFocus struct {
	Enabled bool            `json:"enabled" yaml:"enabled"`
	Weight  float64         `json:"weight" yaml:"weight"`
	Flags   map[string]bool `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// For returns the focus of a declaration sector. Sectors outside the three
// audited ones report false.
func (s SectoralFocus) For(sector declaration.Sector) (SectorFocus, bool) {
	switch sector {
	case declaration.SectorPetroleum:
		return s.Petroleum, true
	case declaration.SectorTextiles:
		return s.Textiles, true
	case declaration.SectorVehicles:
		return s.Vehicles, true
	}
	return SectorFocus{}, false
}

// RiskLevels is the three-tier risk policy. Thresholds ascend from Low to High.
type RiskLevels struct {
	Low    RiskTier `json:"low" yaml:"low"`
	Medium RiskTier `json:"medium" yaml:"medium"`
	High   RiskTier `json:"high" yaml:"high"`
}

// RiskTier is a score threshold and the action taken at or above it.
type RiskTier struct {
	Threshold float64 `json:"threshold" yaml:"threshold"`
	Action    string  `json:"action" yaml:"action"`
}

// Rule is a declarative check definition.
type Rule struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Category    Category   `json:"category" yaml:"category"`
	RiskLevel   RiskLevel  `json:"risk_level" yaml:"risk_level"`
	Enabled     bool       `json:"enabled" yaml:"enabled"`
	Criteria    Criteria   `json:"criteria" yaml:"criteria"`
	Compliance  Compliance `json:"compliance" yaml:"compliance"`
	Impact      Impact     `json:"impact" yaml:"impact"`
}

// Criteria are the match conditions of a rule. Nil thresholds are unset.
type Criteria struct {
	ValueThreshold     *float64 `json:"value_threshold,omitempty" yaml:"value_threshold,omitempty"`
	WeightThreshold    *float64 `json:"weight_threshold,omitempty" yaml:"weight_threshold,omitempty"`
	HSCodePatterns     []string `json:"hs_code_patterns,omitempty" yaml:"hs_code_patterns,omitempty"`
	CountryPatterns    []string `json:"country_patterns,omitempty" yaml:"country_patterns,omitempty"`
	RiskScoreThreshold *float64 `json:"risk_score_threshold,omitempty" yaml:"risk_score_threshold,omitempty"`
}

// Compliance flags the Ghana checks a rule requires.
type Compliance struct {
	ECOWASOrigin bool `json:"ecowas_origin" yaml:"ecowas_origin"`
	ATG          bool `json:"atg" yaml:"atg"`
	VAT          bool `json:"vat" yaml:"vat"`
	GETFund      bool `json:"getfund" yaml:"getfund"`
	NHIL         bool `json:"nhil" yaml:"nhil"`
	COVIDLevy    bool `json:"covid_levy" yaml:"covid_levy"`
	TSA          bool `json:"tsa" yaml:"tsa"`
}

// Impact holds static estimates used by simulations. All values are
// fractions in [0, 1].
type Impact struct {
	RecoveryRate      float64 `json:"recovery_rate" yaml:"recovery_rate"`
	FalsePositiveRate float64 `json:"false_positive_rate" yaml:"false_positive_rate"`
	Accuracy          float64 `json:"accuracy" yaml:"accuracy"`
}

// Classify maps a score onto the pack's risk tiers.
func (p *RulePack) Classify(score float64) RiskLevel {
	switch {
	case score >= p.RiskLevels.High.Threshold:
		return RiskHigh
	case score >= p.RiskLevels.Medium.Threshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Tier returns the tier for level.
func (p *RulePack) Tier(level RiskLevel) RiskTier {
	switch level {
	case RiskHigh:
		return p.RiskLevels.High
	case RiskMedium:
		return p.RiskLevels.Medium
	default:
		return p.RiskLevels.Low
	}
}

// CategoryEnabled reports whether rules of category c take part in scoring.
// General rules always do; sector rules follow the sector focus.
func (p *RulePack) CategoryEnabled(c Category) bool {
	switch c {
	case CategoryPetroleum:
		return p.SectoralFocus.Petroleum.Enabled
	case CategoryTextiles:
		return p.SectoralFocus.Textiles.Enabled
	case CategoryVehicles:
		return p.SectoralFocus.Vehicles.Enabled
	case CategoryGeneral:
		return true
	}
	return false
}

// ActiveRules returns the enabled rules whose category is enabled, in pack
// order.
func (p *RulePack) ActiveRules() []Rule {
	rules := []Rule{}
	for _, r := range p.Rules {
		if r.Enabled && p.CategoryEnabled(r.Category) {
			rules = append(rules, r)
		}
	}
	return rules
}

// Clone returns a deep copy of p.
func (p *RulePack) Clone() *RulePack {
	c := *p
	c.SectoralFocus.Petroleum.Flags = maps.Clone(p.SectoralFocus.Petroleum.Flags)
	c.SectoralFocus.Textiles.Flags = maps.Clone(p.SectoralFocus.Textiles.Flags)
	c.SectoralFocus.Vehicles.Flags = maps.Clone(p.SectoralFocus.Vehicles.Flags)

	if p.Rules != nil {
		c.Rules = make([]Rule, len(p.Rules))
		for i, r := range p.Rules {
			c.Rules[i] = r.clone()
		}
	}
	return &c
}

func (r Rule) clone() Rule {
	c := r
	c.Criteria.ValueThreshold = cloneFloat(r.Criteria.ValueThreshold)
	c.Criteria.WeightThreshold = cloneFloat(r.Criteria.WeightThreshold)
	c.Criteria.RiskScoreThreshold = cloneFloat(r.Criteria.RiskScoreThreshold)
	c.Criteria.HSCodePatterns = append([]string(nil), r.Criteria.HSCodePatterns...)
	c.Criteria.CountryPatterns = append([]string(nil), r.Criteria.CountryPatterns...)
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
