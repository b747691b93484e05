package logger

import (
	"log/slog"
	"strings"
)

// Attribute keys whose values are never logged verbatim. "value" covers
// stored payloads.
var sensitiveKeyPatterns = []string{
	"value",
	"payload",
	"password",
	"secret",
	"token",
	"auth",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if !IsSensitiveKey(a.Key) {
		return a
	}

	switch a.Value.Kind() {
	case slog.KindString:
		if a.Value.String() == "" {
			return a
		}
	case slog.KindAny:
		if b, ok := a.Value.Any().([]byte); ok && len(b) == 0 {
			return a
		}
	default:
		return a
	}
	return slog.String(a.Key, redactedValue)
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, p := range sensitiveKeyPatterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}
