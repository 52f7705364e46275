package log

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Redacted replaces the value of any field whose key looks sensitive.
const Redacted = "******"

// MaxPayloadLen caps how much of a []byte value (an MQTT payload, usually)
// ends up in a log line.
const MaxPayloadLen = 256

var sensitiveMarkers = []string{"password", "secret", "token"}

// Sensitive reports whether values stored under key must never be logged.
func Sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(k, m) {
			return true
		}
	}
	return false
}

// toFields converts logr-style arguments to zap fields. Errors and zap.Field
// values may appear on their own; everything else is read as key/value pairs.
func toFields(args ...any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2+1)
	for i := 0; i < len(args); {
		switch v := args[i].(type) {
		case zap.Field:
			fields = append(fields, v)
			i++
			continue
		case error:
			fields = append(fields, zap.Error(v))
			i++
			continue
		}

		if i == len(args)-1 {
			fields = append(fields, zap.Any(fmt.Sprintf("arg#%d", i), args[i]))
			break
		}

		key, val := args[i], args[i+1]
		i += 2

		name, ok := key.(string)
		if !ok {
			fields = append(fields, zap.Any(fmt.Sprintf("invalid_key_%d", i/2), map[string]any{
				"key":   key,
				"value": val,
			}))
			continue
		}
		fields = append(fields, field(name, val))
	}
	return fields
}

func field(key string, val any) zap.Field {
	if Sensitive(key) {
		return zap.String(key, Redacted)
	}

	switch v := val.(type) {
	case string:
		return zap.String(key, v)
	case bool:
		return zap.Bool(key, v)
	case int:
		return zap.Int(key, v)
	case int64:
		return zap.Int64(key, v)
	case uint64:
		return zap.Uint64(key, v)
	case float64:
		return zap.Float64(key, v)
	case time.Duration:
		return zap.Duration(key, v)
	case time.Time:
		return zap.Time(key, v)
	case error:
		return zap.NamedError(key, v)
	case fmt.Stringer:
		return zap.String(key, v.String())
	case []byte:
		return payloadField(key, v)
	default:
		return zap.Any(key, v)
	}
}

// payloadField logs printable payloads as text and everything else as binary,
// truncated to MaxPayloadLen bytes.
func payloadField(key string, b []byte) zap.Field {
	truncated := len(b) > MaxPayloadLen
	if truncated {
		b = b[:MaxPayloadLen]
	}
	if !utf8.Valid(b) {
		return zap.Binary(key, b)
	}
	s := string(b)
	if truncated {
		s += "..."
	}
	return zap.String(key, s)
}
