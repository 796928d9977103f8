package rulepack

import (
	"fmt"
	"math"
	"regexp"
)

var (
	packIDPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
	hsCodePattern  = regexp.MustCompile(`^\d{2,10}$`)
	countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)
)

// Validate checks the pack and returns a *ValidationError listing every
// problem, or nil.
func (p *RulePack) Validate() error {
	var errs []FieldError
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if p.ID == "" {
		add("id", "is required")
	} else if !packIDPattern.MatchString(p.ID) {
		add("id", "must be lowercase alphanumeric with '.', '_' or '-', got %q", p.ID)
	}
	if p.Name == "" {
		add("name", "is required")
	}
	if p.Version == "" {
		add("version", "is required")
	}

	for _, s := range []struct {
		field string
		focus SectorFocus
	}{
		{"sectoral_focus.petroleum", p.SectoralFocus.Petroleum},
		{"sectoral_focus.textiles", p.SectoralFocus.Textiles},
		{"sectoral_focus.vehicles", p.SectoralFocus.Vehicles},
	} {
		if !fraction(s.focus.Weight) {
			add(s.field+".weight", "must be between 0 and 1, got %v", s.focus.Weight)
		}
	}

	tiers := p.RiskLevels
	for _, t := range []struct {
		field string
		tier  RiskTier
	}{
		{"risk_levels.low", tiers.Low},
		{"risk_levels.medium", tiers.Medium},
		{"risk_levels.high", tiers.High},
	} {
		if !score(t.tier.Threshold) {
			add(t.field+".threshold", "must be between 0 and 100, got %v", t.tier.Threshold)
		}
	}
	if tiers.Low.Threshold >= tiers.Medium.Threshold || tiers.Medium.Threshold >= tiers.High.Threshold {
		add("risk_levels", "thresholds must ascend from low to high, got %v/%v/%v",
			tiers.Low.Threshold, tiers.Medium.Threshold, tiers.High.Threshold)
	}

	seen := make(map[string]int, len(p.Rules))
	for i, r := range p.Rules {
		prefix := fmt.Sprintf("rules[%d]", i)
		if r.ID == "" {
			add(prefix+".id", "is required")
		} else if first, dup := seen[r.ID]; dup {
			add(prefix+".id", "duplicates rules[%d] (%q)", first, r.ID)
		} else {
			seen[r.ID] = i
		}
		if r.Name == "" {
			add(prefix+".name", "is required")
		}
		if !r.Category.Valid() {
			add(prefix+".category", "must be petroleum, textiles, vehicles or general, got %q", r.Category)
		}
		if !r.RiskLevel.Valid() {
			add(prefix+".risk_level", "must be low, medium or high, got %q", r.RiskLevel)
		}
		errs = append(errs, validateCriteria(prefix+".criteria", r.Criteria)...)
		errs = append(errs, validateImpact(prefix+".impact", r.Impact)...)
	}

	if len(errs) > 0 {
		return &ValidationError{PackID: p.ID, Errors: errs}
	}
	return nil
}

func validateCriteria(prefix string, c Criteria) []FieldError {
	var errs []FieldError
	for _, t := range []struct {
		field string
		value *float64
	}{
		{"value_threshold", c.ValueThreshold},
		{"weight_threshold", c.WeightThreshold},
	} {
		if t.value != nil && (*t.value < 0 || math.IsNaN(*t.value) || math.IsInf(*t.value, 0)) {
			errs = append(errs, FieldError{
				Field:   prefix + "." + t.field,
				Message: fmt.Sprintf("must be a non-negative number, got %v", *t.value),
			})
		}
	}
	if c.RiskScoreThreshold != nil && (*c.RiskScoreThreshold < 0 || math.IsNaN(*c.RiskScoreThreshold)) {
		errs = append(errs, FieldError{
			Field:   prefix + ".risk_score_threshold",
			Message: fmt.Sprintf("must be non-negative, got %v", *c.RiskScoreThreshold),
		})
	}
	for i, code := range c.HSCodePatterns {
		if !hsCodePattern.MatchString(code) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s.hs_code_patterns[%d]", prefix, i),
				Message: fmt.Sprintf("must be 2-10 digits, got %q", code),
			})
		}
	}
	for i, country := range c.CountryPatterns {
		if !countryPattern.MatchString(country) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("%s.country_patterns[%d]", prefix, i),
				Message: fmt.Sprintf("must be an upper-case ISO alpha-2 code, got %q", country),
			})
		}
	}
	return errs
}

func validateImpact(prefix string, im Impact) []FieldError {
	var errs []FieldError
	for _, f := range []struct {
		field string
		value float64
	}{
		{"recovery_rate", im.RecoveryRate},
		{"false_positive_rate", im.FalsePositiveRate},
		{"accuracy", im.Accuracy},
	} {
		if !fraction(f.value) {
			errs = append(errs, FieldError{
				Field:   prefix + "." + f.field,
				Message: fmt.Sprintf("must be between 0 and 1, got %v", f.value),
			})
		}
	}
	return errs
}

func fraction(v float64) bool {
	return v >= 0 && v <= 1
}

func score(v float64) bool {
	return v >= 0 && v <= 100
}
