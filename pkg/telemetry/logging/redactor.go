package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"gra-pca/sentinel/pkg/config"
)

// Redactor masks taxpayer identifiers and payment references in log fields.
type Redactor struct {
	patterns []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternTIN         = "tin"
	PatternTSA         = "tsa_reference"
	PatternEmail       = "email"
	PatternGhanaPhone  = "ghana_phone"
	PatternBearerToken = "bearer_token"
)

var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternTIN, `\bTIN\d{7,10}\b`, "TIN*******"},
	{PatternTSA, `\bTSA(\d{4})\d{8}\b`, "TSA${1}********"},
	{PatternEmail, `\b[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`, "***@$1"},
	{PatternGhanaPhone, `(\+233|\b0)[235]\d{8}\b`, "${1}*********"},
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
}

// sensitiveKeys are attribute keys whose string values are masked entirely.
var sensitiveKeys = []string{"password", "secret", "token", "api_key", "authorization"}

// NewRedactor creates a Redactor with the built-in patterns followed by the
// custom ones. Invalid custom patterns are skipped.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, &redactPattern{name: p.Name, regex: regex, replacement: p.Replacement})
	}
	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr returns a copy of a with string values redacted. Groups are
// walked recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if isSensitiveKey(a.Key) && v.String() != "" {
			return slog.String(a.Key, "***")
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]any, 0, len(group))
		for _, ga := range group {
			out = append(out, r.RedactAttr(ga))
		}
		return slog.Group(a.Key, out...)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if lower == s || strings.HasSuffix(lower, "_"+s) {
			return true
		}
	}
	return false
}

// RedactTIN masks a taxpayer identification number, keeping the TIN prefix.
func RedactTIN(tin string) string {
	if !strings.HasPrefix(strings.ToUpper(tin), "TIN") {
		return "***"
	}
	return tin[:3] + "*******"
}
