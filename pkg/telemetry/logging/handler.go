package logging

import (
	"context"
	"log/slog"
)

// contextHandler adds known context fields to every record and redacts
// attribute values before delegating.
type contextHandler struct {
	next     slog.Handler
	redactor *Redactor
}

func newContextHandler(next slog.Handler, redactor *Redactor) *contextHandler {
	return &contextHandler{next: next, redactor: redactor}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.redactor.RedactString(r.Message), r.PC)
	for _, a := range extractContextFields(ctx) {
		out.AddAttrs(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactor.RedactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactor.RedactAttr(a)
	}
	return &contextHandler{next: h.next.WithAttrs(redacted), redactor: h.redactor}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), redactor: h.redactor}
}
