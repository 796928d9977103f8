package agents

import (
	"errors"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// MaxRiskScore caps the additive risk score of a single result.
const MaxRiskScore = 100.0

// ErrMalformedDeclaration is returned by Analyze when the input cannot be
// described by findings at all (nil declaration, missing identifier).
var ErrMalformedDeclaration = errors.New("malformed declaration")

// AgentType identifies one of the violation-detection agents.
type AgentType string

const (
	AgentOrigin  AgentType = "origin"
	AgentATG     AgentType = "atg"
	AgentTax     AgentType = "tax"
	AgentPayment AgentType = "payment"
)

// Order is the canonical agent order used when running and sorting results.
var Order = []AgentType{AgentOrigin, AgentATG, AgentTax, AgentPayment}

// Rank returns the position of t in Order, or len(Order) for unknown types.
func Rank(t AgentType) int {
	for i, o := range Order {
		if o == t {
			return i
		}
	}
	return len(Order)
}

// Severity grades a single finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ReconciliationStatus is the payment reconciliation outcome.
type ReconciliationStatus string

const (
	ReconciliationNotInitiated ReconciliationStatus = "not-initiated"
	ReconciliationPending      ReconciliationStatus = "pending"
	ReconciliationVerified     ReconciliationStatus = "verified"
	ReconciliationUnverified   ReconciliationStatus = "unverified"
)

// Agent analyzes one declaration at a time. Implementations hold no mutable
// state, so a single Agent may be shared across goroutines.
type Agent interface {
	// ID returns a stable identifier for this agent instance.
	ID() string

	// Type returns the agent's type tag.
	Type() AgentType

	// Analyze scores d. Data-quality problems are reported as findings; an
	// error is returned only for ErrMalformedDeclaration.
	Analyze(d *declaration.Declaration) (*Result, error)
}

// Finding is one evidence-backed issue raised by an agent.
type Finding struct {
	Type           string   `json:"type"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Evidence       []string `json:"evidence,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Metadata carries the numbers an agent computed alongside its findings.
// Pointer fields are nil when the agent did not compute them.
type Metadata struct {
	Sector string `json:"sector,omitempty"`

	// RecoveryAmount is the revenue the agent estimates can be recovered.
	RecoveryAmount *float64 `json:"recovery_amount,omitempty"`

	// EstimatedShortfall is the monetary value of a volumetric shortfall.
	EstimatedShortfall *float64 `json:"estimated_shortfall,omitempty"`

	// ShortfallVolume is the shortfall in litres.
	ShortfallVolume *float64 `json:"shortfall_volume,omitempty"`

	TotalTaxLiability *float64 `json:"total_tax_liability,omitempty"`
	TaxGap            *float64 `json:"tax_gap,omitempty"`

	ReconciliationStatus ReconciliationStatus `json:"reconciliation_status,omitempty"`

	// NotApplicable marks an early exit where the agent had nothing to check.
	NotApplicable bool   `json:"not_applicable,omitempty"`
	Note          string `json:"note,omitempty"`
}

// Recovery returns RecoveryAmount, falling back to EstimatedShortfall, then 0.
func (m Metadata) Recovery() float64 {
	if m.RecoveryAmount != nil {
		return *m.RecoveryAmount
	}
	if m.EstimatedShortfall != nil {
		return *m.EstimatedShortfall
	}
	return 0
}

// Result is the output of one agent run against one declaration. Results are
// never modified after Analyze returns.
type Result struct {
	AgentID        string        `json:"agent_id"`
	AgentType      AgentType     `json:"agent_type"`
	DeclarationID  string        `json:"declaration_id"`
	HasViolation   bool          `json:"has_violation"`
	Confidence     float64       `json:"confidence"`
	RiskScore      float64       `json:"risk_score"`
	Findings       []Finding     `json:"findings"`
	ProcessingTime time.Duration `json:"processing_time"`
	Metadata       Metadata      `json:"metadata"`
	CreatedAt      time.Time     `json:"created_at"`
}

// HasFinding reports whether the result contains a finding of the given type.
func (r *Result) HasFinding(findingType string) bool {
	for _, f := range r.Findings {
		if f.Type == findingType {
			return true
		}
	}
	return false
}

// CountFindings returns how many findings of the given type the result holds.
func (r *Result) CountFindings(findingType string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Type == findingType {
			n++
		}
	}
	return n
}

func validate(d *declaration.Declaration) error {
	if d == nil {
		return ErrMalformedDeclaration
	}
	if d.ID == "" {
		return errors.Join(ErrMalformedDeclaration, errors.New("declaration has no identifier"))
	}
	return nil
}
