package session

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/autopeer-io/gatepanel/internal/gatepanel/core/model"
)

// ErrMalformedHeartbeat is returned for status messages that carry neither a
// timestamp nor an offline marker.
var ErrMalformedHeartbeat = errors.New("malformed heartbeat")

const offlineMarker = "offline"

// Keys that may carry the heartbeat timestamp, in lookup order.
var timestampKeys = []string{"hb", "timestamp", "ts"}

// Accepted textual timestamp layouts. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	time.RFC1123,
	time.RFC1123Z,
}

// Epoch values at or above this are milliseconds.
const epochMillisThreshold = 1e11

// Signal is a decoded status topic message.
type Signal struct {
	Liveness model.GateLiveness
	// Timestamp is set for online heartbeats only.
	Timestamp time.Time
}

// ParseHeartbeat decodes a status topic payload.
//
// Online heartbeats are a JSON object with the timestamp under "hb" (or
// "timestamp"/"ts"), or the bare timestamp. Offline heartbeats are the bare
// word "offline" or one of {"hb":"offline"}, {"status":"offline"},
// {"online":false}.
func ParseHeartbeat(payload []byte) (Signal, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return Signal{}, fmt.Errorf("%w: empty payload", ErrMalformedHeartbeat)
	}

	if strings.HasPrefix(text, "{") {
		var doc structpb.Struct
		if err := protojson.Unmarshal([]byte(text), &doc); err != nil {
			return Signal{}, fmt.Errorf("%w: %v", ErrMalformedHeartbeat, err)
		}
		return parseDocument(doc.GetFields())
	}

	return parseScalar(strings.Trim(text, `"`))
}

func parseDocument(fields map[string]*structpb.Value) (Signal, error) {
	if v, ok := fields["online"]; ok {
		if b, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool && !b.BoolValue {
			return offline(), nil
		}
	}
	if v, ok := fields["status"]; ok && strings.EqualFold(v.GetStringValue(), offlineMarker) {
		return offline(), nil
	}

	for _, key := range timestampKeys {
		v, ok := fields[key]
		if !ok {
			continue
		}
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			return parseScalar(kind.StringValue)
		case *structpb.Value_NumberValue:
			ts, err := fromEpoch(kind.NumberValue)
			if err != nil {
				return Signal{}, err
			}
			return online(ts), nil
		default:
			return Signal{}, fmt.Errorf("%w: %q is neither a string nor a number", ErrMalformedHeartbeat, key)
		}
	}

	return Signal{}, fmt.Errorf("%w: no timestamp field", ErrMalformedHeartbeat)
}

func parseScalar(s string) (Signal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Signal{}, fmt.Errorf("%w: empty timestamp", ErrMalformedHeartbeat)
	}
	if strings.EqualFold(s, offlineMarker) {
		return offline(), nil
	}
	ts, err := parseTimestamp(s)
	if err != nil {
		return Signal{}, err
	}
	return online(ts), nil
}

func parseTimestamp(s string) (time.Time, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(n)
	}

	// Date.prototype.toString appends the zone name in parentheses.
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrMalformedHeartbeat, s)
}

func fromEpoch(n float64) (time.Time, error) {
	if n <= 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return time.Time{}, fmt.Errorf("%w: invalid epoch %v", ErrMalformedHeartbeat, n)
	}
	if n >= epochMillisThreshold {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

func online(ts time.Time) Signal {
	return Signal{Liveness: model.LivenessOnline, Timestamp: ts}
}

func offline() Signal {
	return Signal{Liveness: model.LivenessOffline}
}
