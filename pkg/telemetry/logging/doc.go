// Package logging builds the structured loggers used across sentinel.
//
// # Overview
//
// New wraps a log/slog JSON or text handler with a handler that:
//   - adds execution_id, case_id, declaration_id, rule_pack_id and
//     simulation_id attributes found in the context
//   - masks taxpayer identification numbers and TSA payment references
//     when redaction is enabled
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Redact: true})
//	if err != nil {
//	    return err
//	}
//
//	ctx = logging.WithExecution(ctx, exec.ID, exec.CaseID)
//	logger.InfoContext(ctx, "declaration analysed", "declarant", "TIN1234567")
//	// {"msg":"declaration analysed","execution_id":"...","declarant":"TIN*******"}
//
// # Redaction
//
//   - TIN1234567 -> TIN*******
//   - TSA123456789012 -> TSA1234********
//   - kofi@gra.gov.gh -> ***@gra.gov.gh
//   - +233241234567 -> +233*********
//
// Attributes named password, secret, token, api_key or authorization (or
// ending in _<name>) are replaced by "***".
package logging
