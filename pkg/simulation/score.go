package simulation

import (
	"slices"
	"strings"

	"gra-pca/sentinel/pkg/declaration"
	"gra-pca/sentinel/pkg/rulepack"
)

// Points awarded per matched criterion.
const (
	PointsHSCode       = 20
	PointsLowValue     = 15
	PointsECOWASOrigin = 30
	PointsSector       = 10
)

// criterion is one predicate over a rule and a declaration.
type criterion struct {
	points float64
	match  func(r *rulepack.Rule, d *declaration.Declaration) bool
}

var criteria = []criterion{
	{PointsHSCode, func(r *rulepack.Rule, d *declaration.Declaration) bool {
		return declaration.HasPrefix(d.HSCode, r.Criteria.HSCodePatterns)
	}},
	{PointsLowValue, func(r *rulepack.Rule, d *declaration.Declaration) bool {
		return r.Criteria.ValueThreshold != nil && d.Value < *r.Criteria.ValueThreshold
	}},
	{PointsECOWASOrigin, func(r *rulepack.Rule, d *declaration.Declaration) bool {
		if !r.Compliance.ECOWASOrigin || !d.ECOWASOrigin {
			return false
		}
		origin := strings.ToUpper(strings.TrimSpace(d.OriginCountry))
		return !slices.Contains(r.Criteria.CountryPatterns, origin)
	}},
	{PointsSector, func(r *rulepack.Rule, d *declaration.Declaration) bool {
		return string(d.Sector) == string(r.Category)
	}},
}

// ruleScore folds every criterion of r over d.
func ruleScore(r *rulepack.Rule, d *declaration.Declaration) float64 {
	var total float64
	for _, c := range criteria {
		if c.match(r, d) {
			total += c.points
		}
	}
	return total
}

// Scorer scores declarations against one rule pack.
type Scorer struct {
	pack         *rulepack.RulePack
	rules        []rulepack.Rule
	threshold    float64
	hasThreshold bool
}

// NewScorer prepares a scorer over the pack's active rules. The violation
// threshold is the lowest risk score threshold among those rules. When no
// active rule sets one, nothing is flagged.
func NewScorer(pack *rulepack.RulePack) *Scorer {
	s := &Scorer{
		pack:  pack,
		rules: pack.ActiveRules(),
	}
	for _, r := range s.rules {
		if t := r.Criteria.RiskScoreThreshold; t != nil && (!s.hasThreshold || *t < s.threshold) {
			s.threshold = *t
			s.hasThreshold = true
		}
	}
	return s
}

// Threshold returns the violation threshold and whether any active rule sets
// one.
func (s *Scorer) Threshold() (float64, bool) {
	return s.threshold, s.hasThreshold
}

// DeclarationScore is the simulated outcome for one declaration.
type DeclarationScore struct {
	DeclarationID string             `json:"declaration_id"`
	Sector        string             `json:"sector"`
	Score         float64            `json:"score"`
	MatchedRules  []string           `json:"matched_rules"`
	Tier          rulepack.RiskLevel `json:"tier"`
	HasViolation  bool               `json:"has_violation"`
	FalsePositive bool               `json:"false_positive"`

	// RecoveryRate is the highest recovery rate among matched rules.
	RecoveryRate float64 `json:"recovery_rate"`
}

// Score evaluates d. FalsePositive is left for the caller to label.
func (s *Scorer) Score(d *declaration.Declaration) DeclarationScore {
	out := DeclarationScore{
		DeclarationID: d.ID,
		Sector:        sectorKey(d.Sector),
		MatchedRules:  []string{},
	}
	for i := range s.rules {
		r := &s.rules[i]
		points := ruleScore(r, d)
		if points == 0 {
			continue
		}
		out.Score += points
		out.MatchedRules = append(out.MatchedRules, r.ID)
		out.RecoveryRate = max(out.RecoveryRate, r.Impact.RecoveryRate)
	}
	out.Tier = s.pack.Classify(out.Score)
	out.HasViolation = s.hasThreshold && out.Score >= s.threshold
	return out
}

func sectorKey(s declaration.Sector) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
