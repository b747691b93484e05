package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactSensitive(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"stored value", slog.String("value", "secret-data"), redactedValue},
		{"value bytes", slog.Any("value", []byte("abc")), redactedValue},
		{"password", slog.String("db_password", "hunter2"), redactedValue},
		{"empty value kept", slog.String("value", ""), ""},
		{"plain key", slog.String("command", "GET"), "GET"},
		{"non-string value", slog.Int("value_len", 3), "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := redactSensitive(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("redactSensitive(%v) = %q, want %q", tt.attr, got.Value.String(), tt.want)
			}
		})
	}
}

func TestRedactSensitive_Group(t *testing.T) {
	attr := slog.Group("cmd", slog.String("name", "SET"), slog.String("value", "x"))
	got := redactSensitive(attr)

	for _, a := range got.Value.Group() {
		if a.Key == "value" && a.Value.String() != redactedValue {
			t.Errorf("nested value not redacted: %v", a)
		}
		if a.Key == "name" && a.Value.String() != "SET" {
			t.Errorf("nested name changed: %v", a)
		}
	}
}

func TestLoggerRedactsOutput(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("set", "key", "user:1", "value", "top-secret")

	out := buf.String()
	if strings.Contains(out, "top-secret") {
		t.Errorf("value leaked: %q", out)
	}
	if !strings.Contains(out, "user:1") {
		t.Errorf("key missing: %q", out)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	for _, k := range []string{"value", "Password", "auth_header", "api_token"} {
		if !IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = false", k)
		}
	}
	for _, k := range []string{"key", "conn_id", "command"} {
		if IsSensitiveKey(k) {
			t.Errorf("IsSensitiveKey(%q) = true", k)
		}
	}
}
