package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// ExecutionIDKey is the context key for audit execution IDs.
	ExecutionIDKey contextKey = "execution_id"

	// CaseIDKey is the context key for audit case IDs.
	CaseIDKey contextKey = "case_id"

	// DeclarationIDKey is the context key for declaration IDs.
	DeclarationIDKey contextKey = "declaration_id"

	// RulePackIDKey is the context key for rule pack IDs.
	RulePackIDKey contextKey = "rule_pack_id"

	// SimulationIDKey is the context key for simulation IDs.
	SimulationIDKey contextKey = "simulation_id"

	// RequestIDKey is the context key for monitor HTTP request IDs.
	RequestIDKey contextKey = "request_id"
)

// contextKeys is the order in which fields are emitted.
var contextKeys = []contextKey{
	ExecutionIDKey,
	CaseIDKey,
	DeclarationIDKey,
	RulePackIDKey,
	SimulationIDKey,
	RequestIDKey,
}

// WithExecution adds execution and case IDs to the context.
func WithExecution(ctx context.Context, executionID, caseID string) context.Context {
	ctx = context.WithValue(ctx, ExecutionIDKey, executionID)
	if caseID != "" {
		ctx = context.WithValue(ctx, CaseIDKey, caseID)
	}
	return ctx
}

// GetExecutionID retrieves the execution ID from the context.
func GetExecutionID(ctx context.Context) string {
	return stringValue(ctx, ExecutionIDKey)
}

// GetCaseID retrieves the case ID from the context.
func GetCaseID(ctx context.Context) string {
	return stringValue(ctx, CaseIDKey)
}

// WithDeclarationID adds a declaration ID to the context.
func WithDeclarationID(ctx context.Context, declarationID string) context.Context {
	return context.WithValue(ctx, DeclarationIDKey, declarationID)
}

// GetDeclarationID retrieves the declaration ID from the context.
func GetDeclarationID(ctx context.Context) string {
	return stringValue(ctx, DeclarationIDKey)
}

// WithRulePackID adds a rule pack ID to the context.
func WithRulePackID(ctx context.Context, rulePackID string) context.Context {
	return context.WithValue(ctx, RulePackIDKey, rulePackID)
}

// WithSimulationID adds a simulation ID to the context.
func WithSimulationID(ctx context.Context, simulationID string) context.Context {
	return context.WithValue(ctx, SimulationIDKey, simulationID)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the known fields present in ctx as attributes,
// followed by trace_id and span_id when ctx carries a recording span.
func extractContextFields(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	for _, key := range contextKeys {
		if v := stringValue(ctx, key); v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)
		}
	}
	return attrs
}
