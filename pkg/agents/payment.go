package agents

import (
	"fmt"
	"strings"
	"time"

	"gra-pca/sentinel/pkg/declaration"
)

// Payment penalties and tolerances.
const (
	missingTSAPoints      = 40
	invalidTSAPoints      = 25
	amountMismatchPoints  = 25
	exchangeRatePoints    = 10
	paymentTolerance      = 0.01
	exchangeRateTolerance = 0.02
	localCurrency         = "GHS"
)

// PaymentAgent reconciles a declaration's payment against the Treasury Single
// Account.
type PaymentAgent struct {
	id     string
	checks []check
}

// NewPaymentAgent creates a payment-reconciliation agent.
func NewPaymentAgent() *PaymentAgent {
	return &PaymentAgent{
		id: "payment-reconciliation-agent",
		checks: []check{
			checkTSAReference,
			checkPaymentAmount,
			checkExchangeRate,
		},
	}
}

// ID implements Agent.
func (a *PaymentAgent) ID() string { return a.id }

// Type implements Agent.
func (a *PaymentAgent) Type() AgentType { return AgentPayment }

// Analyze implements Agent. Confidence is always 1.0.
func (a *PaymentAgent) Analyze(d *declaration.Declaration) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	started := time.Now()

	result := newResult(a, d, started)
	result.Findings, result.RiskScore = fold(d, a.checks)
	result.HasViolation = len(result.Findings) > 0
	result.Confidence = 1.0

	liability := TotalLiability(d.Value, d.ECOWASOrigin)
	result.Metadata.TotalTaxLiability = &liability
	result.Metadata.ReconciliationStatus = reconciliationStatus(d, liability)

	if d.Payment != nil && d.Payment.ConfirmationAmount != nil {
		if owed := liability - *d.Payment.ConfirmationAmount; result.HasFinding("payment-amount-mismatch") && owed > 0 {
			recovery := round2(owed)
			result.Metadata.RecoveryAmount = &recovery
		}
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

func reconciliationStatus(d *declaration.Declaration, liability float64) ReconciliationStatus {
	switch {
	case d.Payment == nil:
		return ReconciliationNotInitiated
	case d.Payment.ConfirmationAmount == nil:
		return ReconciliationPending
	case within(*d.Payment.ConfirmationAmount, liability, paymentTolerance):
		return ReconciliationVerified
	default:
		return ReconciliationUnverified
	}
}

func checkTSAReference(d *declaration.Declaration) []penalty {
	if d.Payment == nil || d.Payment.Reference == "" {
		return one(Finding{
			Type:           "missing-tsa-reference",
			Description:    "No Treasury Single Account payment reference",
			Severity:       SeverityCritical,
			Evidence:       []string{fmt.Sprintf("declared value: %.2f", d.Value)},
			Recommendation: "Obtain proof of payment into the TSA",
		}, missingTSAPoints)
	}
	if !ValidTSAReference(d.Payment.Reference) {
		return one(Finding{
			Type:           "invalid-tsa-reference",
			Description:    "TSA reference does not match the TSA + 12 digits format",
			Severity:       SeverityHigh,
			Evidence:       []string{"tsa reference: " + d.Payment.Reference},
			Recommendation: "Confirm the reference with the Controller and Accountant-General",
		}, invalidTSAPoints)
	}
	return nil
}

func checkPaymentAmount(d *declaration.Declaration) []penalty {
	if d.Payment == nil || d.Payment.ConfirmationAmount == nil {
		return nil
	}
	liability := TotalLiability(d.Value, d.ECOWASOrigin)
	confirmed := *d.Payment.ConfirmationAmount
	if within(confirmed, liability, paymentTolerance) {
		return nil
	}
	return one(Finding{
		Type:        "payment-amount-mismatch",
		Description: "Confirmed payment does not match the computed tax liability",
		Severity:    SeverityHigh,
		Evidence: []string{
			fmt.Sprintf("confirmed amount: %.2f", confirmed),
			fmt.Sprintf("computed liability: %.2f", liability),
		},
		Recommendation: "Reconcile the TSA credit against the assessment",
	}, amountMismatchPoints)
}

func checkExchangeRate(d *declaration.Declaration) []penalty {
	if d.Payment == nil || d.Payment.ExchangeRate == nil {
		return nil
	}
	currency := d.Payment.Currency
	if currency == "" {
		currency = d.Currency
	}
	if currency == "" || strings.EqualFold(currency, localCurrency) {
		return nil
	}
	reference, ok := ReferenceRate(currency)
	if !ok {
		return nil
	}
	applied := *d.Payment.ExchangeRate
	if within(applied, reference, exchangeRateTolerance) {
		return nil
	}
	return one(Finding{
		Type:        "exchange-rate-deviation",
		Description: fmt.Sprintf("%s exchange rate deviates from the reference rate", strings.ToUpper(currency)),
		Severity:    SeverityMedium,
		Evidence: []string{
			fmt.Sprintf("applied rate: %.4f", applied),
			fmt.Sprintf("reference rate: %.4f", reference),
		},
		Recommendation: "Reassess using the Bank of Ghana reference rate",
	}, exchangeRatePoints)
}
