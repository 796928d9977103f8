package simulation

import (
	"fmt"
	"time"

	"gra-pca/sentinel/pkg/rulepack"
)

// Result is the outcome of one simulation run.
type Result struct {
	ID              string `json:"id"`
	RulePackID      string `json:"rule_pack_id"`
	RulePackVersion string `json:"rule_pack_version"`

	TotalDeclarations  int `json:"total_declarations"`
	ViolationsDetected int `json:"violations_detected"`
	FalsePositives     int `json:"false_positives"`

	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`

	// ExpectedAccuracy is the mean static accuracy of the active rules.
	ExpectedAccuracy  float64 `json:"expected_accuracy"`
	Threshold         float64 `json:"threshold"`
	HasThreshold      bool    `json:"has_threshold"`
	EstimatedRecovery float64 `json:"estimated_recovery"`

	Sectors          map[string]SectorResult    `json:"sectors"`
	TierDistribution map[rulepack.RiskLevel]int `json:"tier_distribution"`
	Declarations     []DeclarationScore         `json:"declarations"`
	Recommendations  []string                   `json:"recommendations"`

	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
}

// SectorResult holds the per-sector estimates.
type SectorResult struct {
	Declarations   int     `json:"declarations"`
	Violations     int     `json:"violations"`
	FalsePositives int     `json:"false_positives"`
	Accuracy       float64 `json:"accuracy"`
	Recovery       float64 `json:"recovery"`
}

// TruePositives returns the flagged declarations not labelled false
// positives.
func (r *Result) TruePositives() int {
	return r.ViolationsDetected - r.FalsePositives
}

// Recommendation thresholds.
const (
	MinPrecision = 0.8
	MinRecall    = 0.7
	MinF1        = 0.75

	// AccuracyTolerance is how far observed accuracy may trail the pack's
	// expected accuracy before it is called out.
	AccuracyTolerance = 0.1
)

// recommend derives operator-facing advice from fixed thresholds.
func recommend(r *Result) []string {
	recs := []string{}
	if r.TotalDeclarations == 0 {
		return append(recs, "Dataset is empty; supply declarations to evaluate the rule pack")
	}
	if r.ViolationsDetected == 0 {
		recs = append(recs, "No violations detected; verify rule criteria match the dataset")
	}
	if r.ViolationsDetected > 0 && r.Precision < MinPrecision {
		recs = append(recs, fmt.Sprintf(
			"Review false-positive patterns: precision %.1f%% is below %.0f%%", r.Precision*100, MinPrecision*100))
	}
	if r.Recall < MinRecall {
		recs = append(recs, fmt.Sprintf(
			"Broaden HS code and value criteria: recall %.1f%% is below %.0f%%", r.Recall*100, MinRecall*100))
	}
	if r.ViolationsDetected > 0 && r.F1Score < MinF1 {
		recs = append(recs, fmt.Sprintf(
			"Rebalance risk score thresholds: F1 score %.2f is below %.2f", r.F1Score, MinF1))
	}
	if r.ExpectedAccuracy > 0 && r.Accuracy < r.ExpectedAccuracy-AccuracyTolerance {
		recs = append(recs, fmt.Sprintf(
			"Observed accuracy %.1f%% trails the expected %.1f%%; recalibrate rule impact estimates",
			r.Accuracy*100, r.ExpectedAccuracy*100))
	}
	if len(recs) == 0 {
		recs = append(recs, "Rule pack performance is within target thresholds")
	}
	return recs
}
