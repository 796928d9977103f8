package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys. Domain keys live under the "sentinel." namespace.
const (
	AttrExecutionID   = attribute.Key("sentinel.execution.id")
	AttrCaseID        = attribute.Key("sentinel.case.id")
	AttrStatus        = attribute.Key("sentinel.execution.status")
	AttrScope         = attribute.Key("sentinel.audit.scope")
	AttrMode          = attribute.Key("sentinel.audit.mode")
	AttrDeclarations  = attribute.Key("sentinel.declarations")
	AttrProcessed     = attribute.Key("sentinel.declarations.processed")
	AttrFailed        = attribute.Key("sentinel.declarations.failed")
	AttrViolations    = attribute.Key("sentinel.violations")
	AttrRecovery      = attribute.Key("sentinel.recovery")
	AttrDeclarationID = attribute.Key("sentinel.declaration.id")
	AttrHSCode        = attribute.Key("sentinel.declaration.hs_code")
	AttrAgents        = attribute.Key("sentinel.agents")
	AttrSimulationID  = attribute.Key("sentinel.simulation.id")
	AttrRulePackID    = attribute.Key("sentinel.rulepack.id")
	AttrRulePackVer   = attribute.Key("sentinel.rulepack.version")
	AttrPrecision     = attribute.Key("sentinel.simulation.precision")
	AttrRecall        = attribute.Key("sentinel.simulation.recall")
	AttrF1            = attribute.Key("sentinel.simulation.f1")
)

// ExecutionAttributes identify an audit execution.
func ExecutionAttributes(executionID, caseID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrExecutionID.String(executionID),
		AttrCaseID.String(caseID),
	}
}

// DeclarationAttributes identify a single declaration.
func DeclarationAttributes(declarationID, hsCode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrDeclarationID.String(declarationID)}
	if hsCode != "" {
		attrs = append(attrs, AttrHSCode.String(hsCode))
	}
	return attrs
}

// RulePackAttributes identify the rule pack under evaluation.
func RulePackAttributes(id, version string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrRulePackID.String(id),
		AttrRulePackVer.String(version),
	}
}
