package log

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type secret string

func (secret) String() string { return "[REDACTED]" }

func TestToFields(t *testing.T) {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		name  string
		input []any
		want  int
	}{
		{"empty input", []any{}, 0},
		{"string-int-bool", []any{"a", "x", "b", 123, "c", true}, 3},
		{"time type", []any{"t", now}, 1},
		{"duration", []any{"d", 3 * time.Second}, 1},
		{"bytes", []any{"data", []byte("xyz")}, 1},
		{"error only", []any{err}, 1},
		{"mixed field types", []any{"msg", "ok", zap.String("x", "y"), "num", 42}, 3},
		{"odd number of args", []any{"key1", "val1", "key2"}, 2},
		{"non-string key", []any{123, "value"}, 1},
		{"nil values", []any{"a", nil, "b", (*int)(nil)}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := toFields(tt.input...)
			if len(fields) != tt.want {
				t.Fatalf("got %d fields, want %d: %+v", len(fields), tt.want, fields)
			}
			for _, f := range fields {
				if f.Key == "" {
					t.Errorf("field has empty key: %+v", f)
				}
			}
		})
	}
}

func TestToFieldsUsesStringer(t *testing.T) {
	fields := toFields("credentials", secret("hunter2"))
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(fields))
	}
	if fields[0].Type != zapcore.StringType || fields[0].String != "[REDACTED]" {
		t.Fatalf("stringer value was not rendered through String(): %+v", fields[0])
	}
}

func TestSetLevel(t *testing.T) {
	l := NewLogger(&Options{Level: "info", Format: "json", OutputPaths: []string{"stderr"}})
	z := l.(*zapLogger)

	if z.core.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be disabled at info level")
	}
	if err := l.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if !z.core.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be enabled after SetLevel(debug)")
	}

	child := l.WithName("child").(*zapLogger)
	if err := child.SetLevel("error"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if z.core.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("level change on a derived logger should be shared")
	}

	if err := l.SetLevel("loud"); err == nil {
		t.Fatal("expected an error for an unknown level")
	}
}

func TestOptionsValidate(t *testing.T) {
	opts := NewOptions()
	if errs := opts.Validate(); len(errs) != 0 {
		t.Fatalf("defaults should validate, got %v", errs)
	}

	opts.Level = "chatty"
	opts.Format = "xml"
	if errs := opts.Validate(); len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
}

func TestToFieldsRedactsSensitiveKeys(t *testing.T) {
	for _, key := range []string{"password", "mqtt.Password", "api_token", "clientSecret"} {
		fields := toFields(key, "hunter2")
		if len(fields) != 1 || fields[0].String != Redacted {
			t.Errorf("%s: value was not redacted: %+v", key, fields)
		}
	}
	if fields := toFields("username", "gatekeeper"); fields[0].String != "gatekeeper" {
		t.Errorf("username should not be redacted: %+v", fields[0])
	}
}

func TestToFieldsPayload(t *testing.T) {
	fields := toFields("payload", []byte(`{"hb":"2024-05-01T10:00:00Z"}`))
	if fields[0].Type != zapcore.StringType || fields[0].String != `{"hb":"2024-05-01T10:00:00Z"}` {
		t.Errorf("text payload should be logged as a string: %+v", fields[0])
	}

	long := make([]byte, MaxPayloadLen+10)
	for i := range long {
		long[i] = 'a'
	}
	fields = toFields("payload", long)
	if got := len(fields[0].String); got != MaxPayloadLen+3 {
		t.Errorf("long payload was not truncated: %d bytes", got)
	}

	fields = toFields("payload", []byte{0xff, 0xfe})
	if fields[0].Type != zapcore.BinaryType {
		t.Errorf("invalid UTF-8 should be logged as binary: %+v", fields[0])
	}
}
